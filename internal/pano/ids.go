// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package pano

import (
	"sync/atomic"
)

// Monotonic image id allocator. Extraction runs images concurrently, so ids
// must stay unique without a lock
var nextFreeID int32

// Returns the next unique image id, counting upwards from 0
func NextFreeID() int32 {
	return atomic.AddInt32(&nextFreeID, 1) - 1
}

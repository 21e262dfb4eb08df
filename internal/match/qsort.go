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


package match

// Rearranges the matches so the k smallest by descriptor distance occupy
// a[:k], in no particular order. A partial quickselect, cheaper than a
// full sort when only the best few matches are kept
func QSelectMatches(a []Match, k int) {
	left, right := 0, len(a)-1
	for left < right {
		index := qPartitionMatches(a[left : right+1])
		index += left
		if k-1 <= index {
			right = index
		} else {
			left = index + 1
		}
	}
}

// Partitions matches around the middle pivot element by ascending distance,
// and returns the pivot index
func qPartitionMatches(a []Match) int {
	left, right := 0, len(a)-1
	mid := (left + right) >> 1
	pivot := a[mid].DistSqr
	l := left - 1
	r := right + 1
	for {
		for {
			l++
			if a[l].DistSqr >= pivot {
				break
			}
		}
		for {
			r--
			if a[r].DistSqr <= pivot {
				break
			}
		}
		if l >= r {
			return r
		}
		a[l], a[r] = a[r], a[l]
	}
}

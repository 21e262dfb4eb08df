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


package rest

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/panorec/internal/conf"
	"github.com/mlnoga/panorec/internal/pano"
)

// A stitch job posted to the API: the input image files to recognize
// panoramas in. Paths are resolved relative to the serving directory
type StitchJob struct {
	Files []string `json:"files" form:"files"`
}

// Serve the stitching API and result files via HTTP
func Serve(port int, settings *conf.Settings) error {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/stitch", func(c *gin.Context) { postStitch(c, settings) })
			v1.StaticFS("/files", http.Dir("."))
		}
	}
	return r.Run(fmt.Sprintf(":%d", port))
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

func postStitch(c *gin.Context, settings *conf.Settings) {
	var job StitchJob
	if err := c.ShouldBind(&job); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(job.Files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no input files given"})
		return
	}

	// stream the pipeline log back while the job runs
	logWriter := c.Writer
	header := logWriter.Header()
	header.Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)

	fmt.Fprintf(logWriter, "Stitching %d files\n", len(job.Files))
	outputs, err := pano.Run(job.Files, settings, logWriter)
	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		return
	}
	for _, output := range outputs {
		fmt.Fprintf(logWriter, "Result: /api/v1/files/%s\n", output)
	}
	logWriter.(http.Flusher).Flush()

	debug.FreeOSMemory()
}

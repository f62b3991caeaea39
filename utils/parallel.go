// Package utils contains small helpers shared by the image and geometry packages.
package utils

import (
	"image"
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. Tests that process many small
// frames can lower it to avoid goroutine overhead.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// ParallelForEachPixel loops through the image and calls f for each [x, y] position.
// The image is cut into horizontal bands, one per worker; f must only write to
// state owned by its own pixel.
func ParallelForEachPixel(size image.Point, f func(x, y int)) {
	ParallelForEachRow(size.Y, func(y int) {
		for x := 0; x < size.X; x++ {
			f(x, y)
		}
	})
}

// ParallelForEachRow calls f for every row in [0, rows) spread over ParallelFactor workers.
func ParallelForEachRow(rows int, f func(y int)) {
	procs := ParallelFactor
	if procs > rows {
		procs = rows
	}
	if procs <= 1 {
		for y := 0; y < rows; y++ {
			f(y)
		}
		return
	}
	band := rows / procs
	var waitGroup sync.WaitGroup
	waitGroup.Add(procs)
	for i := 0; i < procs; i++ {
		startY := i * band
		endY := startY + band
		if i == procs-1 {
			endY = rows
		}
		utils.PanicCapturingGo(func() {
			defer waitGroup.Done()
			for y := startY; y < endY; y++ {
				f(y)
			}
		})
	}
	waitGroup.Wait()
}

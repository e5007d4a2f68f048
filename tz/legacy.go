// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package tz

// The following functions retain the integer return conventions expected by
// existing command and driver layers.

// TrustzoneEfuse performs an eFuse request, it returns 0 on success and -1
// on failure.
func (c *Context) TrustzoneEfuse(req *EfuseRequest) int {
	if _, err := c.Efuse(req); err != nil {
		return -1
	}

	return 0
}

// TrustzoneEfuseGetMax returns the size of the user accessible fuse area, or
// -1 for requests other than EfuseQueryMax.
func (c *Context) TrustzoneEfuseGetMax(req *EfuseRequest) int64 {
	if req.Command != EfuseQueryMax {
		return -1
	}

	return int64(c.EfuseMax())
}

// DebugEfuseReadPattern returns the secure monitor status of a debug pattern
// read, or -1 when the service is not available.
func (c *Context) DebugEfuseReadPattern(buf []byte) int64 {
	n, err := c.DebugReadPattern(buf)

	if err != nil {
		return -1
	}

	return int64(n)
}

// DebugEfuseWritePattern returns the secure monitor status of a debug pattern
// write, or -1 when the service is not available.
func (c *Context) DebugEfuseWritePattern(buf []byte) int64 {
	n, err := c.DebugWritePattern(buf)

	if err != nil {
		return -1
	}

	return int64(n)
}

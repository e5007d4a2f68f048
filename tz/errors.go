// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package tz

import (
	"errors"
)

var (
	// ErrUnavailable is returned when a shared memory region could not be
	// resolved.
	ErrUnavailable = errors.New("secure service unavailable")

	// ErrSecureCallFailed is returned when the secure monitor reports that
	// no bytes were processed.
	ErrSecureCallFailed = errors.New("secure call failed")

	// ErrBoundary is returned when a payload does not fit the caller
	// buffer.
	ErrBoundary = errors.New("buffer boundary exceeded")
)

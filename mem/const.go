// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mem

// This memory layout hosts the emulated Meson secure monitor in the Secure
// World and a TamaGo unikernel in the NonSecure World, the BL31 shared memory
// buffers are carved out of the NonSecure memory range.
const (
	// Secure Monitor
	SecureStart = 0x90000000
	SecureSize  = 0x05f00000 // 95MB

	// Secure Monitor DMA (relocated to avoid conflicts with Main OS)
	SecureDMAStart = 0x95f00000
	SecureDMASize  = 0x00100000 // 1MB

	// Main OS
	NonSecureStart = 0x80000000
	NonSecureSize  = 0x0ff00000 // 255MB

	// BL31 shared memory (NonSecure accessible)
	SharedStart = NonSecureStart + NonSecureSize
	SharedSize  = 0x00100000 // 1MB

	// SMC bulk payload buffers, the secure monitor reads from the input
	// buffer and writes to the output buffer.
	ShareMemInputStart  = SharedStart
	ShareMemOutputStart = SharedStart + ShareMemBufferSize
	ShareMemBufferSize  = 0x1000 // 4KB
)

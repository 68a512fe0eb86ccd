// Copyright 2024 Dean Ji
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmi2c

var ResponseLength = responseLength

const HeaderSize = headerSize

// StagingBuffer exposes the device buffer to tests.
func (t *Transport) StagingBuffer() []byte {
	return t.buf[:]
}

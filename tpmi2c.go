// Copyright 2024 Dean Ji
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

/*
Package tpmi2c implements a [tpm2.Transport] for Atmel AT97SC3204T TPMs
connected directly to an I2C bus, preserving the request/response protocol of
the original tpm_i2c_atmel kernel driver.

The chip speaks a simple framing protocol: a command is transmitted to the
chip in a single raw write transfer, and the response is retrieved with two
read transfers - one for the fixed-size header, which carries the total
response length, and a second one for the complete response. Whilst the chip
is preparing a response it NACKs read transfers, so reads are polled with a
bounded retry budget rather than failing immediately.

Access to a physical chip on Linux is provided by the linux subpackage.
*/
package tpmi2c

import "time"

const (
	// BufferSize is the capacity of the single buffer through which commands
	// and responses are staged, and therefore the maximum command and
	// response size.
	BufferSize = 1024

	// headerSize is the size of the fixed response header. Bytes 4 and 5 of
	// the header carry the size of the entire response, header included, as
	// a big-endian 16-bit field.
	headerSize = 6
)

// Direction indicates the direction of a raw transfer on the bus.
type Direction int

const (
	// BusRead transfers bytes from the chip to the host.
	BusRead Direction = iota

	// BusWrite transfers bytes from the host to the chip.
	BusWrite
)

// Bus represents a connection to an I2C adapter with a TPM bound at a fixed
// chip address.
type Bus interface {
	// Transfer performs exactly one raw transfer on the bus and returns the
	// number of bytes moved. For BusRead the chip fills buf, for BusWrite
	// the contents of buf are transmitted to the chip. Implementations
	// don't retry - a transfer that the chip NACKs fails immediately.
	// Adapters that cannot perform raw transfers fail with a
	// [ErrNotSupported] error.
	Transfer(dir Direction, buf []byte) (int, error)

	// Close closes the connection to the adapter.
	Close() error
}

// RetryParams contains the polling parameters used whilst waiting for the
// chip to answer a read transfer.
type RetryParams struct {
	// MaxAttempts is the maximum number of read transfers attempted before
	// giving up with ErrResponseTimeout. A read is always attempted once.
	MaxAttempts uint

	// Interval is the amount of time to wait between attempts.
	Interval time.Duration
}

// DefaultRetryParams returns the polling parameters suited to the
// AT97SC3204T - 60000 attempts at 5ms intervals, for a worst case wait of
// around 5 minutes.
func DefaultRetryParams() RetryParams {
	return RetryParams{MaxAttempts: 60000, Interval: 5 * time.Millisecond}
}

// Copyright 2024 Dean Ji
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmi2c

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSupported indicates that the underlying adapter cannot perform
	// raw I2C transfers.
	ErrNotSupported = errors.New("adapter does not support raw I2C transfers")

	// ErrResponseTimeout indicates that the chip did not answer a read
	// transfer within the retry budget.
	ErrResponseTimeout = errors.New("timed out whilst waiting for the chip to become ready")

	// ErrCommandTooLarge indicates that a command exceeds the capacity of
	// the device buffer.
	ErrCommandTooLarge = errors.New("command exceeds the device buffer capacity")

	// ErrClosed indicates that the transport is closed.
	ErrClosed = errors.New("transport is closed")
)

// TransportError is returned when a raw transfer on the underlying bus
// fails.
type TransportError struct {
	Op  string // The operation that caused the error
	err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cannot complete %s operation on I2C bus: %v", e.Op, e.err)
}

func (e *TransportError) Unwrap() error {
	return e.err
}

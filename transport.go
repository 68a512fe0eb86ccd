// Copyright 2024 Dean Ji
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tpmi2c

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/xerrors"
)

// Transport represents a connection to an Atmel I2C TPM. It implements
// [tpm2.Transport].
//
// Logical read and write operations are serialized internally - the single
// device buffer is shared between both paths, and the buffer is only
// consistent whilst one operation owns it.
type Transport struct {
	mu    sync.Mutex // serializes logical read and write operations
	busMu sync.Mutex // exclusive use of the adapter for a single raw transfer

	bus   Bus
	retry RetryParams

	buf [BufferSize]byte
	rsp *bytes.Reader // staged response, nil when no response bytes remain

	closeOnce sync.Once
	closed    chan struct{}
}

// NewTransport returns a Transport that drives a TPM through the supplied
// bus using the supplied polling parameters. The returned transport owns
// the bus and closes it when it is itself closed.
func NewTransport(bus Bus, retry RetryParams) *Transport {
	return &Transport{
		bus:    bus,
		retry:  retry,
		closed: make(chan struct{}),
	}
}

// transfer performs a single raw transfer, holding the adapter exclusively
// for the duration of that transfer only.
func (t *Transport) transfer(dir Direction, buf []byte) (int, error) {
	t.busMu.Lock()
	defer t.busMu.Unlock()
	return t.bus.Transfer(dir, buf)
}

// readWithRetry polls the chip with read transfers until one returns a
// positive byte count. The chip NACKs read transfers whilst it is preparing
// a response, so any non-positive result is treated uniformly as not-ready
// and retried after the configured interval, up to the configured attempt
// budget. At least one transfer is always performed. An adapter that cannot
// perform raw transfers fails immediately.
func (t *Transport) readWithRetry(buf []byte) (int, error) {
	for attempts := max(t.retry.MaxAttempts, 1); attempts > 0; attempts-- {
		n, err := t.transfer(BusRead, buf)
		switch {
		case errors.Is(err, ErrNotSupported):
			return 0, err
		case err == nil && n > 0:
			return n, nil
		}

		select {
		case <-time.After(t.retry.Interval):
		case <-t.closed:
			return 0, ErrClosed
		}
	}

	return 0, ErrResponseTimeout
}

// responseLength decodes the size of the entire response, header included,
// from the supplied response header.
func responseLength(hdr []byte) int {
	return int(binary.BigEndian.Uint16(hdr[4:6]))
}

// readResponse retrieves a complete response packet from the chip.
func (t *Transport) readResponse() ([]byte, error) {
	t.zeroBuffer()

	if _, err := t.readWithRetry(t.buf[:headerSize]); err != nil {
		return nil, xerrors.Errorf("cannot read response header from chip: %w", err)
	}

	total := responseLength(t.buf[:headerSize])
	if total > BufferSize {
		// A well-behaved chip never reports a response larger than the
		// device buffer.
		return nil, fmt.Errorf("invalid response size in header (%d bytes)", total)
	}

	if total > headerSize {
		// The chip retransmits the entire response, header included, from
		// its beginning on the second read rather than just the remaining
		// bytes, so the full length is read again into the start of the
		// buffer.
		if _, err := t.readWithRetry(t.buf[:total]); err != nil {
			return nil, xerrors.Errorf("cannot read response body from chip: %w", err)
		}
	}

	rsp := make([]byte, total)
	copy(rsp, t.buf[:total])
	return rsp, nil
}

// Read implements [tpm2.Transport.Read].
//
// When no response bytes are staged from a previous call, it executes the
// full response protocol against the chip, blocking until the chip answers
// or the retry budget is exhausted. A call to Close from another goroutine
// unblocks it. A staged response may be consumed over multiple calls.
func (t *Transport) Read(data []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.closed:
		return 0, ErrClosed
	default:
	}

	if t.rsp == nil {
		rsp, err := t.readResponse()
		if err != nil {
			return 0, err
		}
		t.rsp = bytes.NewReader(rsp)
	}

	n, err := t.rsp.Read(data)
	if t.rsp.Len() == 0 {
		// The staged response is fully consumed. Make the next call run
		// the response protocol again.
		t.rsp = nil

		if err == io.EOF {
			// tpm2.Transport.Read must never return io.EOF whilst the
			// transport is open, so clear it.
			err = nil
		}
	}
	return n, err
}

// Write implements [tpm2.Transport.Write]. A command must be supplied in a
// single write, is staged through the device buffer and is transmitted to
// the chip in exactly one raw transfer. There are no partial writes - either
// the whole command is accepted and transferred, or nothing is.
func (t *Transport) Write(data []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.closed:
		return 0, ErrClosed
	default:
	}

	if t.rsp != nil {
		return 0, errors.New("unread bytes from previous response")
	}
	if len(data) > BufferSize {
		return 0, ErrCommandTooLarge
	}

	t.zeroBuffer()
	copy(t.buf[:], data)

	n, err := t.transfer(BusWrite, t.buf[:len(data)])
	switch {
	case err != nil:
		return 0, &TransportError{"write", err}
	case n < len(data):
		return 0, &TransportError{"write", io.ErrShortWrite}
	}

	return len(data), nil
}

// Close implements [tpm2.Transport.Close]. It closes the underlying bus and
// unblocks a read that is polling the chip. Subsequent calls return
// ErrClosed.
func (t *Transport) Close() error {
	err := ErrClosed
	t.closeOnce.Do(func() {
		close(t.closed)
		err = t.bus.Close()
	})
	return err
}

// zeroBuffer clears the device buffer. Every logical operation fully
// overwrites the buffer before use so that stale bytes from a previous
// operation never leak into a later response.
func (t *Transport) zeroBuffer() {
	for i := range t.buf {
		t.buf[i] = 0
	}
}

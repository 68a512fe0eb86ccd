// Copyright 2024 Dean Ji
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

/*
Package mocktpm provides a fake Atmel I2C TPM for exercising the transport
protocol without hardware.
*/
package mocktpm

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gopkg.in/tomb.v2"

	tpmi2c "github.com/deanjicn/tpm-i2c-atmel"
)

// ErrNotReady is returned from read transfers whilst the chip is preparing
// a response, mimicking a NACKed transfer on a real bus.
var ErrNotReady = errors.New("chip is busy (transfer NACKed)")

// Handler produces the chip's response packet for a received command packet.
type Handler func(cmd []byte) []byte

// Chip is a fake AT97SC3204T that implements [tpmi2c.Bus].
//
// Commands accepted by a write transfer are handed to a worker goroutine
// which runs the handler and, after an optional busy period, stages the
// response. Read transfers NACK with ErrNotReady until the response is
// staged. Like the real chip, every read transfer retransmits the staged
// response from its beginning, regardless of how much of it earlier
// transfers have already seen.
type Chip struct {
	tomb    *tomb.Tomb
	handler Handler
	busy    time.Duration

	cmds chan []byte

	mu        sync.Mutex
	rsp       []byte // staged response, nil whilst the chip is busy
	readSizes []int  // sizes requested by read transfers, in order
	writes    [][]byte
}

// New returns a started Chip that answers commands with the supplied
// handler. The returned chip must be shut down with Close.
func New(handler Handler) *Chip {
	c := &Chip{
		tomb:    new(tomb.Tomb),
		handler: handler,
		cmds:    make(chan []byte, 1),
	}
	c.tomb.Go(c.run)
	return c
}

// SetBusyDuration arranges for the chip to NACK read transfers for the
// supplied duration after accepting a command. It must be called before the
// command is written.
func (c *Chip) SetBusyDuration(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = d
}

func (c *Chip) run() error {
	for c.tomb.Alive() {
		select {
		case cmd := <-c.cmds:
			rsp := c.handler(cmd)

			c.mu.Lock()
			busy := c.busy
			c.mu.Unlock()

			if busy > 0 {
				select {
				case <-time.After(busy):
				case <-c.tomb.Dying():
					return tomb.ErrDying
				}
			}

			c.mu.Lock()
			c.rsp = rsp
			c.mu.Unlock()
		case <-c.tomb.Dying():
			return tomb.ErrDying
		}
	}
	return tomb.ErrDying
}

// Transfer implements [tpmi2c.Bus.Transfer].
func (c *Chip) Transfer(dir tpmi2c.Direction, buf []byte) (int, error) {
	switch dir {
	case tpmi2c.BusWrite:
		cmd := append([]byte(nil), buf...)

		c.mu.Lock()
		c.rsp = nil
		c.writes = append(c.writes, cmd)
		c.mu.Unlock()

		select {
		case c.cmds <- cmd:
		case <-c.tomb.Dying():
			return 0, errors.New("chip is shut down")
		}
		return len(buf), nil
	case tpmi2c.BusRead:
		c.mu.Lock()
		defer c.mu.Unlock()

		c.readSizes = append(c.readSizes, len(buf))
		if c.rsp == nil {
			return 0, ErrNotReady
		}
		return copy(buf, c.rsp), nil
	default:
		return 0, fmt.Errorf("unexpected transfer direction %d", dir)
	}
}

// Close implements [tpmi2c.Bus.Close]. It shuts down the worker goroutine
// and waits for it to finish.
func (c *Chip) Close() error {
	c.tomb.Kill(nil)
	return c.tomb.Wait()
}

// ReadSizes returns the sizes requested by each read transfer observed so
// far, in order.
func (c *Chip) ReadSizes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.readSizes...)
}

// Writes returns the payload of each write transfer observed so far, in
// order.
func (c *Chip) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([][]byte, len(c.writes))
	for i, w := range c.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

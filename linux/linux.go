// Copyright 2024 Dean Ji
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

/*
Package linux provides an interface for communicating with an Atmel I2C TPM
through a Linux I2C character device (/dev/i2c-N).
*/
package linux

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/canonical/go-tpm2"
	"golang.org/x/xerrors"

	tpmi2c "github.com/deanjicn/tpm-i2c-atmel"
)

const (
	// DefaultBus is the adapter number the chip sits on in the reference
	// deployment - i2c2 on the Beaglebone, which the kernel exposes as
	// /dev/i2c-3.
	DefaultBus = 3

	// DefaultAddr is the chip address documented by Atmel.
	DefaultAddr uint16 = 0x29
)

var devPath = "/dev"

// Device represents an Atmel TPM behind a Linux I2C character device. It
// implements [tpm2.TPMDevice].
type Device struct {
	bus  int
	addr uint16
}

// NewDevice returns a device for the chip at the supplied address on the
// supplied adapter number.
func NewDevice(bus int, addr uint16) *Device {
	return &Device{bus: bus, addr: addr}
}

// DefaultDevice is the device at the reference deployment's bus and address.
var DefaultDevice = NewDevice(DefaultBus, DefaultAddr)

// Path returns the path of the adapter's character device.
func (d *Device) Path() string {
	return filepath.Join(devPath, fmt.Sprintf("i2c-%d", d.bus))
}

// Bus returns the adapter number.
func (d *Device) Bus() int {
	return d.bus
}

// Addr returns the chip address on the bus.
func (d *Device) Addr() uint16 {
	return d.addr
}

// OpenTransport opens the adapter's character device, binds the chip
// address and returns a transport that uses the supplied polling
// parameters. The adapter must support raw I2C transfers - if it does not,
// this fails with an error wrapping [tpmi2c.ErrNotSupported].
func (d *Device) OpenTransport(retry tpmi2c.RetryParams) (*tpmi2c.Transport, error) {
	f, err := openI2CFile(d.Path(), d.addr)
	if err != nil {
		return nil, err
	}
	return tpmi2c.NewTransport(f, retry), nil
}

// Open implements [tpm2.TPMDevice.Open]. It opens a transport with the
// default polling parameters.
func (d *Device) Open() (tpm2.Transport, error) {
	return d.OpenTransport(tpmi2c.DefaultRetryParams())
}

// ShouldRetry implements [tpm2.TPMDevice.ShouldRetry]. The transport
// already polls the chip itself.
func (d *Device) ShouldRetry() bool {
	return false
}

// String implements [fmt.Stringer].
func (d *Device) String() string {
	return fmt.Sprintf("linux I2C TPM device: %s, chip address 0x%02x", d.Path(), d.addr)
}

// Probe checks that a chip answers at the device's address by performing a
// single one byte read transfer. Unlike a response read, it does not retry.
func (d *Device) Probe() error {
	f, err := openI2CFile(d.Path(), d.addr)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, 1)
	if _, err := f.Transfer(tpmi2c.BusRead, buf); err != nil {
		return xerrors.Errorf("no chip answered at address 0x%02x: %w", d.addr, err)
	}
	return nil
}

// ListDevices returns a candidate device, with the default chip address,
// for every I2C adapter present on this host, sorted by adapter number.
func ListDevices() (out []*Device, err error) {
	f, err := os.Open(devPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	names, err := f.Readdirnames(0)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		var bus int
		if _, err := fmt.Sscanf(name, "i2c-%d", &bus); err != nil {
			continue
		}
		out = append(out, NewDevice(bus, DefaultAddr))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].bus < out[j].bus
	})
	return out, nil
}

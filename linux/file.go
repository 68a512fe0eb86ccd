// Copyright 2024 Dean Ji
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package linux

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	tpmi2c "github.com/deanjicn/tpm-i2c-atmel"
)

// i2c-dev ioctl numbers and adapter functionality bits, from the kernel's
// include/uapi/linux/i2c-dev.h and i2c.h.
const (
	i2cSlave = 0x0703
	i2cFuncs = 0x0705

	i2cFuncI2C = 0x00000001
)

func ignoringEINTR(fn func() (int, error)) (int, error) {
	for {
		n, err := fn()
		if err != syscall.EINTR {
			return n, err
		}
	}
}

// i2cFile is a connection to an I2C adapter's character device with the
// chip address bound. It implements [tpmi2c.Bus].
//
// Transfers use raw read and write system calls via the syscall.RawConn
// implementation provided by os.File. A transfer that the chip NACKs fails
// with the error reported by the kernel (typically EREMOTEIO or ENXIO) and
// is not retried here - the transport above owns the retry policy.
type i2cFile struct {
	file *os.File
	conn syscall.RawConn
}

// openI2CFile opens the adapter at path, verifies that it can perform raw
// I2C transfers and binds the chip address for subsequent reads and writes.
func openI2CFile(path string, addr uint16) (*i2cFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	conn, err := f.SyscallConn()
	if err != nil {
		f.Close()
		return nil, err
	}

	var ctrlErr error
	if err := conn.Control(func(fd uintptr) {
		funcs, err := unix.IoctlGetInt(int(fd), i2cFuncs)
		switch {
		case err != nil:
			ctrlErr = err
		case funcs&i2cFuncI2C == 0:
			ctrlErr = tpmi2c.ErrNotSupported
		default:
			ctrlErr = unix.IoctlSetInt(int(fd), i2cSlave, int(addr))
		}
	}); err != nil {
		f.Close()
		return nil, err
	}
	if ctrlErr != nil {
		f.Close()
		return nil, &os.PathError{Op: "open", Path: path, Err: ctrlErr}
	}

	return &i2cFile{file: f, conn: conn}, nil
}

func (f *i2cFile) wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &os.PathError{
		Op:   op,
		Path: f.file.Name(),
		Err:  err}
}

func (f *i2cFile) read(data []byte) (n int, err error) {
	var readErr error
	if err := f.conn.Read(func(fd uintptr) bool {
		n, readErr = ignoringEINTR(func() (int, error) {
			return syscall.Read(int(fd), data)
		})
		return true
	}); err != nil {
		return 0, f.wrapErr("read", err)
	}
	return n, f.wrapErr("read", readErr)
}

func (f *i2cFile) write(data []byte) (n int, err error) {
	var writeErr error
	if err := f.conn.Write(func(fd uintptr) bool {
		n, writeErr = ignoringEINTR(func() (int, error) {
			return syscall.Write(int(fd), data)
		})
		return true
	}); err != nil {
		return 0, f.wrapErr("write", err)
	}
	return n, f.wrapErr("write", writeErr)
}

// Transfer implements [tpmi2c.Bus.Transfer].
func (f *i2cFile) Transfer(dir tpmi2c.Direction, buf []byte) (int, error) {
	switch dir {
	case tpmi2c.BusRead:
		return f.read(buf)
	case tpmi2c.BusWrite:
		return f.write(buf)
	default:
		return 0, fmt.Errorf("unexpected transfer direction %d", dir)
	}
}

// Close implements [tpmi2c.Bus.Close].
func (f *i2cFile) Close() error {
	return f.file.Close()
}

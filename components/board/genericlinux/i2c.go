// Package genericlinux provides the I2C bus of a Linux board through periph.io.
package genericlinux

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"go.viam.com/servokit/components/board"
)

var _ = board.I2C(&I2CBus{})

// I2CBus is a periph.io I2C bus. Only one handle may be open on it at a time.
type I2CBus struct {
	mu   sync.Mutex
	name string
	bus  i2c.BusCloser
}

// NewI2CBus opens the named I2C bus. An empty name opens the first bus periph registers, which
// is the default platform bus on boards with a single user-facing I2C header.
func NewI2CBus(name string) (*I2CBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize periph host drivers")
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open i2c bus %q", name)
	}
	return &I2CBus{name: name, bus: bus}, nil
}

// Name returns the name the bus was opened with.
func (b *I2CBus) Name() string {
	return b.name
}

// Periph exposes the underlying periph bus for drivers written against periph directly.
func (b *I2CBus) Periph() i2c.Bus {
	return b.bus
}

// OpenHandle locks the bus and returns a handle addressing addr. The bus stays locked until the
// handle is closed.
func (b *I2CBus) OpenHandle(addr byte) (board.I2CHandle, error) {
	b.mu.Lock()
	return &localI2C{bus: b, dev: &i2c.Dev{Bus: b.bus, Addr: uint16(addr)}}, nil
}

// Close releases the bus.
func (b *I2CBus) Close() error {
	return b.bus.Close()
}

// periph's i2c.Dev has no notion of registers or contexts, so this wraps it to satisfy
// board.I2CHandle.
type localI2C struct {
	bus      *I2CBus
	dev      *i2c.Dev
	closeMu  sync.Mutex
	released bool
}

func (h *localI2C) Write(ctx context.Context, tx []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	written, err := h.dev.Write(tx)
	if err != nil {
		return errors.Wrapf(err, "failed to write %d bytes to i2c address %#x", len(tx), h.dev.Addr)
	}
	if written != len(tx) {
		return errors.Errorf("not all bytes were written to i2c address %#x on bus %q: had %d, wrote %d",
			h.dev.Addr, h.bus.name, len(tx), written)
	}
	return nil
}

func (h *localI2C) Read(ctx context.Context, count int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buffer := make([]byte, count)
	if err := h.dev.Tx(nil, buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}

func (h *localI2C) ReadByteData(ctx context.Context, register byte) (byte, error) {
	data, err := h.ReadBlockData(ctx, register, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (h *localI2C) WriteByteData(ctx context.Context, register, data byte) error {
	return h.Write(ctx, []byte{register, data})
}

func (h *localI2C) ReadBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results := make([]byte, numBytes)
	if err := h.dev.Tx([]byte{register}, results); err != nil {
		return nil, errors.Wrapf(err, "failed to read %d bytes from register %#x", numBytes, register)
	}
	return results, nil
}

// On devices that use registers, a block write is the register address followed by the data.
func (h *localI2C) WriteBlockData(ctx context.Context, register byte, data []byte) error {
	rawData := make([]byte, len(data)+1)
	rawData[0] = register
	copy(rawData[1:], data)
	return h.Write(ctx, rawData)
}

func (h *localI2C) Close() error {
	h.closeMu.Lock()
	defer h.closeMu.Unlock()
	if h.released {
		return nil
	}
	h.released = true
	h.bus.mu.Unlock()
	return nil
}

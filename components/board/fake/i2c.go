// Package fake implements an in-memory I2C bus.
package fake

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/servokit/components/board"
)

var _ = board.I2C(&I2C{})

// A Write records one register write that reached the fake bus.
type Write struct {
	Addr     byte
	Register byte
	Data     []byte
}

// I2C is an in-memory I2C bus. Every address behaves like a device with a 256-byte register
// file and an auto-incrementing register pointer, which is enough to exercise register drivers.
type I2C struct {
	mu        sync.Mutex
	registers map[byte]*[256]byte
	pointers  map[byte]byte
	writes    []Write
	absent    map[byte]bool
}

// NewI2C returns an empty fake bus.
func NewI2C() *I2C {
	return &I2C{
		registers: map[byte]*[256]byte{},
		pointers:  map[byte]byte{},
		absent:    map[byte]bool{},
	}
}

// Disconnect makes every transfer to addr fail, like a device that does not ACK.
func (b *I2C) Disconnect(addr byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.absent[addr] = true
}

// Register returns the current value of a register.
func (b *I2C) Register(addr, register byte) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.device(addr)[register]
}

// SetRegister sets a register without recording a write.
func (b *I2C) SetRegister(addr, register, value byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.device(addr)[register] = value
}

// Writes returns every write recorded so far, in order.
func (b *I2C) Writes() []Write {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Write(nil), b.writes...)
}

// OpenHandle returns a handle addressing addr.
func (b *I2C) OpenHandle(addr byte) (board.I2CHandle, error) {
	return &handle{bus: b, addr: addr}, nil
}

func (b *I2C) device(addr byte) *[256]byte {
	regs, ok := b.registers[addr]
	if !ok {
		regs = &[256]byte{}
		b.registers[addr] = regs
	}
	return regs
}

func (b *I2C) write(addr, register byte, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.absent[addr] {
		return errors.Errorf("no device acknowledged address %#x", addr)
	}
	regs := b.device(addr)
	for i, d := range data {
		regs[register+byte(i)] = d
	}
	b.pointers[addr] = register + byte(len(data))
	b.writes = append(b.writes, Write{Addr: addr, Register: register, Data: append([]byte(nil), data...)})
	return nil
}

func (b *I2C) read(addr, register byte, count int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.absent[addr] {
		return nil, errors.Errorf("no device acknowledged address %#x", addr)
	}
	regs := b.device(addr)
	out := make([]byte, count)
	for i := range out {
		out[i] = regs[register+byte(i)]
	}
	b.pointers[addr] = register + byte(count)
	return out, nil
}

// handle may be closed from another goroutine than the one using it.
type handle struct {
	bus    *I2C
	addr   byte
	closed atomic.Bool
}

func (h *handle) checkOpen(ctx context.Context) error {
	if h.closed.Load() {
		return errors.New("i2c handle already closed")
	}
	return ctx.Err()
}

// Write treats the first byte as the register pointer, as register devices do.
func (h *handle) Write(ctx context.Context, tx []byte) error {
	if err := h.checkOpen(ctx); err != nil {
		return err
	}
	if len(tx) == 0 {
		return nil
	}
	if len(tx) == 1 {
		h.bus.mu.Lock()
		h.bus.pointers[h.addr] = tx[0]
		h.bus.mu.Unlock()
		return nil
	}
	return h.bus.write(h.addr, tx[0], tx[1:])
}

func (h *handle) Read(ctx context.Context, count int) ([]byte, error) {
	if err := h.checkOpen(ctx); err != nil {
		return nil, err
	}
	h.bus.mu.Lock()
	pointer := h.bus.pointers[h.addr]
	h.bus.mu.Unlock()
	return h.bus.read(h.addr, pointer, count)
}

func (h *handle) ReadByteData(ctx context.Context, register byte) (byte, error) {
	data, err := h.ReadBlockData(ctx, register, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (h *handle) WriteByteData(ctx context.Context, register, data byte) error {
	return h.WriteBlockData(ctx, register, []byte{data})
}

func (h *handle) ReadBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
	if err := h.checkOpen(ctx); err != nil {
		return nil, err
	}
	return h.bus.read(h.addr, register, int(numBytes))
}

func (h *handle) WriteBlockData(ctx context.Context, register byte, data []byte) error {
	if err := h.checkOpen(ctx); err != nil {
		return err
	}
	return h.bus.write(h.addr, register, data)
}

func (h *handle) Close() error {
	h.closed.Store(true)
	return nil
}

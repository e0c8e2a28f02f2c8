package genericlinux

import (
	"context"
	"testing"

	"go.viam.com/test"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestRegisterTransfers(t *testing.T) {
	ctx := context.Background()
	playback := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x40, W: []byte{0x00, 0x10}},
			{Addr: 0x40, W: []byte{0x06, 0x00, 0x00, 0x33, 0x01}},
			{Addr: 0x40, W: []byte{0xFE}, R: []byte{121}},
			{Addr: 0x40, W: []byte{0x06}, R: []byte{0x00, 0x00, 0x33, 0x01}},
		},
		DontPanic: true,
	}
	bus := &I2CBus{name: "playback", bus: playback}

	handle, err := bus.OpenHandle(0x40)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, handle.WriteByteData(ctx, 0x00, 0x10), test.ShouldBeNil)
	test.That(t, handle.WriteBlockData(ctx, 0x06, []byte{0x00, 0x00, 0x33, 0x01}), test.ShouldBeNil)
	prescale, err := handle.ReadByteData(ctx, 0xFE)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, prescale, test.ShouldEqual, byte(121))
	counts, err := handle.ReadBlockData(ctx, 0x06, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, counts, test.ShouldResemble, []byte{0x00, 0x00, 0x33, 0x01})
	test.That(t, handle.Close(), test.ShouldBeNil)

	test.That(t, bus.Close(), test.ShouldBeNil)
}

func TestTransferErrors(t *testing.T) {
	ctx := context.Background()
	bus := &I2CBus{name: "playback", bus: &i2ctest.Playback{DontPanic: true}}

	handle, err := bus.OpenHandle(0x41)
	test.That(t, err, test.ShouldBeNil)
	err = handle.WriteByteData(ctx, 0x00, 0x10)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to write 2 bytes to i2c address 0x41")

	_, err = handle.ReadBlockData(ctx, 0x06, 4)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to read 4 bytes from register 0x6")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	test.That(t, handle.Write(cancelled, []byte{0x00}), test.ShouldEqual, context.Canceled)
	test.That(t, handle.Close(), test.ShouldBeNil)
	// Closing twice does not unlock the bus twice.
	test.That(t, handle.Close(), test.ShouldBeNil)

	other, err := bus.OpenHandle(0x41)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, other.Close(), test.ShouldBeNil)
}

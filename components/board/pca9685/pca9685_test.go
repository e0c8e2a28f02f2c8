package pca9685

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/servokit/components/board"
	"go.viam.com/servokit/components/board/fake"
	"go.viam.com/servokit/logging"
)

func newTestPCA(t *testing.T, conf Config) (*PCA9685, *fake.I2C) {
	t.Helper()
	bus := fake.NewI2C()
	pca, err := New(context.Background(), bus, conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return pca, bus
}

func TestNewResetsChip(t *testing.T) {
	bus := fake.NewI2C()
	bus.SetRegister(DefaultAddress, mode1Reg, 0x11)

	pca, err := New(context.Background(), bus, Config{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pca.Address(), test.ShouldEqual, DefaultAddress)
	test.That(t, bus.Register(DefaultAddress, mode1Reg), test.ShouldEqual, byte(0))
	test.That(t, pca.Frequency(), test.ShouldEqual, 0.0)
}

func TestNewErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)

	_, err := New(context.Background(), nil, Config{}, logger)
	test.That(t, err, test.ShouldBeError, "pca9685 requires an i2c bus")

	bus := fake.NewI2C()
	bus.Disconnect(0x41)
	_, err = New(context.Background(), bus, Config{Address: 0x41}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to reset pca9685 at 0x41")

	_, err = New(context.Background(), bus, Config{ReferenceClockSpeed: -1}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSetFrequency(t *testing.T) {
	ctx := context.Background()

	t.Run("default reference clock", func(t *testing.T) {
		pca, bus := newTestPCA(t, Config{})
		test.That(t, pca.SetFrequency(ctx, 50), test.ShouldBeNil)

		test.That(t, bus.Register(DefaultAddress, prescaleReg), test.ShouldEqual, byte(121))
		test.That(t, bus.Register(DefaultAddress, mode1Reg), test.ShouldEqual, byte(0xA0))
		test.That(t, pca.Frequency(), test.ShouldAlmostEqual, 50.0288, 0.001)

		freq, err := pca.ReadFrequency(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, freq, test.ShouldAlmostEqual, pca.Frequency())

		// reset, sleep, prescale, restore, restart
		writes := bus.Writes()
		test.That(t, writes, test.ShouldHaveLength, 5)
		test.That(t, writes[1], test.ShouldResemble, fake.Write{Addr: DefaultAddress, Register: mode1Reg, Data: []byte{0x10}})
		test.That(t, writes[2], test.ShouldResemble, fake.Write{Addr: DefaultAddress, Register: prescaleReg, Data: []byte{121}})
		test.That(t, writes[3], test.ShouldResemble, fake.Write{Addr: DefaultAddress, Register: mode1Reg, Data: []byte{0x00}})
		test.That(t, writes[4], test.ShouldResemble, fake.Write{Addr: DefaultAddress, Register: mode1Reg, Data: []byte{0xA0}})
	})

	t.Run("calibrated reference clock", func(t *testing.T) {
		pca, bus := newTestPCA(t, Config{Address: 0x41, ReferenceClockSpeed: 26000000})
		test.That(t, pca.SetFrequency(ctx, 50), test.ShouldBeNil)
		test.That(t, bus.Register(0x41, prescaleReg), test.ShouldEqual, byte(126))
		test.That(t, pca.Frequency(), test.ShouldAlmostEqual, 49.9815, 0.001)
	})

	t.Run("out of range", func(t *testing.T) {
		pca, _ := newTestPCA(t, Config{})
		for _, hz := range []float64{0, -50, 1, 2000} {
			test.That(t, pca.SetFrequency(ctx, hz), test.ShouldNotBeNil)
		}
		test.That(t, pca.Frequency(), test.ShouldEqual, 0.0)
	})

	t.Run("waits on the injected clock", func(t *testing.T) {
		mock := clock.NewMock()
		bus := fake.NewI2C()
		pca, err := New(ctx, bus, Config{}, logging.NewTestLogger(t), WithClock(mock))
		test.That(t, err, test.ShouldBeNil)

		done := make(chan error, 1)
		go func() {
			done <- pca.SetFrequency(ctx, 60)
		}()
		for {
			select {
			case err := <-done:
				test.That(t, err, test.ShouldBeNil)
				test.That(t, bus.Register(DefaultAddress, prescaleReg), test.ShouldEqual, byte(101))
				return
			default:
				mock.Add(time.Millisecond)
			}
		}
	})
}

func TestReadFrequencyUnset(t *testing.T) {
	pca, _ := newTestPCA(t, Config{})
	_, err := pca.ReadFrequency(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "prescale register returned 0")
}

func TestChannelDutyCycle(t *testing.T) {
	ctx := context.Background()
	pca, bus := newTestPCA(t, Config{})
	test.That(t, pca.SetFrequency(ctx, 50), test.ShouldBeNil)

	out, err := pca.Channel(2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Frequency(), test.ShouldEqual, pca.Frequency())

	const ch2 = led0OnLReg + 8

	test.That(t, out.SetDutyCycle(ctx, board.DutyCycleMax), test.ShouldBeNil)
	test.That(t, bus.Register(DefaultAddress, ch2+1), test.ShouldEqual, byte(0x10))
	duty, err := out.DutyCycle(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, duty, test.ShouldEqual, board.DutyCycleMax)

	test.That(t, out.SetDutyCycle(ctx, 0x8000), test.ShouldBeNil)
	test.That(t, bus.Register(DefaultAddress, ch2), test.ShouldEqual, byte(0))
	test.That(t, bus.Register(DefaultAddress, ch2+1), test.ShouldEqual, byte(0))
	test.That(t, bus.Register(DefaultAddress, ch2+2), test.ShouldEqual, byte(0x00))
	test.That(t, bus.Register(DefaultAddress, ch2+3), test.ShouldEqual, byte(0x08))
	duty, err = out.DutyCycle(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, duty, test.ShouldEqual, uint16(0x8000))

	test.That(t, out.SetDutyCycle(ctx, 0), test.ShouldBeNil)
	duty, err = out.DutyCycle(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, duty, test.ShouldEqual, uint16(0))

	// Full-off bit set by something else reads back as off.
	bus.SetRegister(DefaultAddress, ch2+3, 0x10)
	duty, err = out.DutyCycle(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, duty, test.ShouldEqual, uint16(0))
}

func TestChannelRange(t *testing.T) {
	pca, _ := newTestPCA(t, Config{})
	for _, index := range []int{-1, NumChannels} {
		_, err := pca.Channel(index)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "pca9685 channel must be 0-15")
	}
	_, err := pca.Channel(NumChannels - 1)
	test.That(t, err, test.ShouldBeNil)
}

func TestDutyEncoding(t *testing.T) {
	for _, tc := range []struct {
		duty    uint16
		on, off uint16
	}{
		{0, 0, 0},
		{0x000F, 0, 1},
		{0x7FFF, 0, 0x800},
		{0xFFFE, 0, 0xFFF},
		{0xFFFF, 0x1000, 0},
	} {
		on, off := dutyToCounts(tc.duty)
		test.That(t, on, test.ShouldEqual, tc.on)
		test.That(t, off, test.ShouldEqual, tc.off)
	}
	test.That(t, countsToDuty(0, 0x800), test.ShouldEqual, uint16(0x8000))
	test.That(t, countsToDuty(0x1000, 0), test.ShouldEqual, uint16(0xFFFF))
	test.That(t, countsToDuty(0, 0x1000), test.ShouldEqual, uint16(0))
}

func TestPeriphRejectsCalibratedClock(t *testing.T) {
	_, err := NewPeriph(nil, Config{ReferenceClockSpeed: 26000000}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "only supports a 25000000Hz reference clock")
}

func TestCloseKeepsOutputs(t *testing.T) {
	ctx := context.Background()
	pca, bus := newTestPCA(t, Config{})
	test.That(t, pca.SetFrequency(ctx, 50), test.ShouldBeNil)
	out, err := pca.Channel(4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.SetDutyCycle(ctx, 0x8000), test.ShouldBeNil)

	test.That(t, pca.Close(ctx), test.ShouldBeNil)
	test.That(t, bus.Register(DefaultAddress, mode1Reg), test.ShouldEqual, byte(0))
	test.That(t, bus.Register(DefaultAddress, prescaleReg), test.ShouldEqual, byte(121))
	duty, err := out.DutyCycle(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, duty, test.ShouldEqual, uint16(0x8000))
}

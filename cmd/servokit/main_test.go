package main

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/servokit/logging"
)

func runApp(t *testing.T, args ...string) error {
	t.Helper()
	var logger logging.Logger
	return newApp(&logger).Run(append([]string{"servokit", "--backend", "fake"}, args...))
}

func TestCommandsOnFakeBackend(t *testing.T) {
	test.That(t, runApp(t, "angle", "-n", "3", "-d", "90"), test.ShouldBeNil)
	test.That(t, runApp(t, "--channels", "8", "angle", "-n", "7", "-d", "45", "--release"), test.ShouldBeNil)
	test.That(t, runApp(t, "throttle", "-n", "15", "-t", "-0.5"), test.ShouldBeNil)
	test.That(t, runApp(t, "release", "-n", "0"), test.ShouldBeNil)
	test.That(t, runApp(t, "sweep", "--count", "2", "--dwell", "0s"), test.ShouldBeNil)
}

func TestCommandErrors(t *testing.T) {
	err := runApp(t, "--channels", "8", "angle", "-n", "8", "-d", "90")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "servo must be 0-7")

	err = runApp(t, "--channels", "12", "release", "-n", "0")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid configuration")

	err = runApp(t, "angle", "-n", "0", "-d", "190")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to move channel 0")

	err = runApp(t, "throttle", "-n", "0", "-t", "2")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "throttle must be between -1.0 and 1.0")
}

func TestConfigFileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kit.json")
	test.That(t, os.WriteFile(path, []byte(`{"channels": 8, "address": 65}`), 0o600), test.ShouldBeNil)

	err := runApp(t, "--config", path, "angle", "-n", "9", "-d", "10")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "servo must be 0-7")

	test.That(t, runApp(t, "--config", path, "--channels", "16", "angle", "-n", "9", "-d", "10"), test.ShouldBeNil)
}

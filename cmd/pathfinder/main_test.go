// cmd/pathfinder/main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(fmt.Errorf("run: %w", context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.New("run ended without reaching the goal: stalled")))
}

func TestHandlePanic(t *testing.T) {
	origWrite, origExit := osWriteFile, osExit
	t.Cleanup(func() { osWriteFile, osExit = origWrite, origExit })

	var (
		written []byte
		path    string
		code    = -1
	)
	osWriteFile = func(name string, data []byte, _ os.FileMode) error {
		path, written = name, data
		return nil
	}
	osExit = func(c int) { code = c }

	func() {
		defer handlePanic()
		panic("boom")
	}()

	assert.Equal(t, panicLogFile, path)
	require.NotEmpty(t, written)
	assert.Contains(t, string(written), "panic: boom")
	assert.Contains(t, string(written), "goroutine")
	assert.Equal(t, 2, code)
}

func TestHandlePanic_WriteFails(t *testing.T) {
	origWrite, origExit := osWriteFile, osExit
	t.Cleanup(func() { osWriteFile, osExit = origWrite, origExit })

	osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only fs") }
	code := -1
	osExit = func(c int) { code = c }

	func() {
		defer handlePanic()
		panic("boom")
	}()
	assert.Equal(t, 2, code)
}

func TestHandlePanic_NoPanic(t *testing.T) {
	origExit := osExit
	t.Cleanup(func() { osExit = origExit })
	called := false
	osExit = func(int) { called = true }

	func() { defer handlePanic() }()
	assert.False(t, called)
}

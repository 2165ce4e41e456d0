package bootloader_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Alia5/matrixkb/firmware"
	"github.com/Alia5/matrixkb/firmware/bootloader"
	"github.com/Alia5/matrixkb/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ firmware.Bootloader = (*bootloader.Exec)(nil)

func TestNewRequiresCommand(t *testing.T) {
	_, err := bootloader.New(nil, nil)
	assert.ErrorIs(t, err, bootloader.ErrNoCommand)
	_, err = bootloader.New([]string{""}, nil)
	assert.ErrorIs(t, err, bootloader.ErrNoCommand)
}

func TestNewResolvesPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "flash")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	b, err := bootloader.New([]string{script, "--reboot"}, log.Discard())
	require.NoError(t, err)
	assert.Equal(t, script, b.Path())

	_, err = bootloader.New([]string{filepath.Join(dir, "missing")}, log.Discard())
	assert.Error(t, err)
}

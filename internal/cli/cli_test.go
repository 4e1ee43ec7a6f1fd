package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the command tree with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := RootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

// TestFlashWithoutDeviceIsBenign verifies that forgetting the device
// argument shows usage and is not treated as a failure (exit 0).
func TestFlashWithoutDeviceIsBenign(t *testing.T) {
	out, errOut, err := execute(t, "flash")
	require.NoError(t, err)
	assert.Contains(t, out+errOut, "flash <device>")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestArtifactsCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "rpi-firmware"), 0755))
	for name, content := range map[string]string{
		"zImage":                    "kernel bits",
		"rootfs.tar":                "tar bits",
		"rpi-firmware/bootcode.bin": "bootcode",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	out, _, err := execute(t, "artifacts", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "zImage")
	assert.Contains(t, out, "rootfs.tar")
	assert.Contains(t, out, "bootcode.bin")
	assert.Contains(t, out, "3 files")
}

func TestArtifactsCommandMissingSet(t *testing.T) {
	_, _, err := execute(t, "artifacts", "--dir", filepath.Join(t.TempDir(), "empty"))
	require.Error(t, err)
}

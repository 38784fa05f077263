package terminal

import (
	"io"
	"os"
	"testing"

	"research_probe/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	f()
	require.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestPrintHeader(t *testing.T) {
	cfg := config.Default()
	cfg.TargetURL = "https://chat.example.com/"
	cfg.OutputFile = "probe_output.log"

	out := captureStdout(t, func() { printHeader(cfg) })

	assert.Contains(t, out, "Research Probe")
	assert.Contains(t, out, "v"+version)
	assert.Contains(t, out, "Target: https://chat.example.com/")
	assert.Contains(t, out, "Output: probe_output.log")
	assert.Contains(t, out, "Step Delay: ")
}

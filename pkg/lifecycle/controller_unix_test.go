//go:build unix

package lifecycle

import (
	"context"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunHandlesProcessSignal(t *testing.T) {
	f := newFixture(t)

	result := f.run(t, context.Background())

	// Run installed its handler before entering the loop.
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	assert.Equal(t, ExitOK, waitCode(t, result))
	assert.Equal(t, StateStopping, f.ctrl.State())
}

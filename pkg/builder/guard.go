package builder

import (
	"errors"
	"fmt"
	"os"
)

// Guard protects the build descriptor while a run rewrites it segment by
// segment. Acquire moves the original out of the way; Restore moves it back.
// Restore is idempotent so it can sit in a defer and also run from a signal
// handler without double-restoring.
type Guard struct {
	descriptor string
	backup     string
	active     bool
}

// NewGuard creates a guard for the given descriptor and backup paths.
func NewGuard(descriptor, backup string) *Guard {
	return &Guard{descriptor: descriptor, backup: backup}
}

// Acquire stashes the descriptor at the backup path. It refuses to run when
// the backup already exists: that means an earlier run never restored, and
// overwriting would destroy the only intact copy of the original.
func (g *Guard) Acquire() error {
	if _, err := os.Stat(g.backup); err == nil {
		return fmt.Errorf("backup %s already exists, restore or remove it before building", g.backup)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking backup: %w", err)
	}

	if err := os.Rename(g.descriptor, g.backup); err != nil {
		return fmt.Errorf("backing up descriptor: %w", err)
	}
	g.active = true
	return nil
}

// Restore moves the backup over the descriptor, discarding whatever the run
// last wrote there. Calling it when nothing is stashed is a no-op.
func (g *Guard) Restore() error {
	if !g.active {
		return nil
	}
	if err := os.Rename(g.backup, g.descriptor); err != nil {
		return fmt.Errorf("restoring descriptor: %w", err)
	}
	g.active = false
	return nil
}

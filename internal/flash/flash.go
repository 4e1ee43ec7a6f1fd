// Package flash implements the flash sequence: validate, confirm, wipe,
// partition, format, populate. Each step is a hard precondition for the
// next; there are no retries and no rollback.
package flash

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gokrazy/sdflash/internal/artifacts"
	"github.com/gokrazy/sdflash/internal/block"
	"github.com/gokrazy/sdflash/internal/config"
	"github.com/gokrazy/sdflash/internal/exitcode"
	"github.com/gokrazy/sdflash/internal/tools"
)

// Flasher writes a built image onto one block device.
type Flasher struct {
	Device    string
	Cfg       config.Config
	Runner    Runner
	DryRun    bool
	AssumeYes bool

	Stdin  io.Reader
	Stdout io.Writer

	// Artifacts is located during Run unless preset.
	Artifacts *artifacts.Set

	// Hooks for tests; Run fills in the real implementations when nil.
	geteuid    func() int
	blockCheck func(string) (bool, error)
	lookPath   func(string) (string, error)
}

func (f *Flasher) applyDefaults() {
	if f.Runner == nil {
		f.Runner = ExecRunner{}
	}
	if f.Stdin == nil {
		f.Stdin = os.Stdin
	}
	if f.Stdout == nil {
		f.Stdout = os.Stdout
	}
	if f.geteuid == nil {
		f.geteuid = os.Geteuid
	}
	if f.blockCheck == nil {
		f.blockCheck = block.IsBlockDevice
	}
	if f.lookPath == nil {
		f.lookPath = exec.LookPath
	}
}

// Run executes the full flash sequence. The returned error carries the
// process exit code (see the exitcode package).
func (f *Flasher) Run(ctx context.Context) error {
	start := time.Now()
	f.applyDefaults()

	if f.geteuid() != 0 {
		return exitcode.Errorf(exitcode.Failure, "sdflash must run as root to partition and mount %s", f.Device)
	}
	isBlock, err := f.blockCheck(f.Device)
	if err != nil {
		return exitcode.Errorf(exitcode.Failure, "stat %s: %v", f.Device, err)
	}
	if !isBlock {
		return exitcode.Errorf(exitcode.Failure, "%s is not a block device", f.Device)
	}

	if err := tools.Check(f.lookPath); err != nil {
		return exitcode.Errorf(exitcode.MissingTool, "%v", err)
	}

	if f.Artifacts == nil {
		set, err := artifacts.Locate(f.Cfg.ArtifactsDir)
		if err != nil {
			return exitcode.Errorf(exitcode.Failure, "%v", err)
		}
		f.Artifacts = set
	}
	fmt.Fprintf(f.Stdout, "Using build artifacts from %s\n", f.Artifacts.Dir)

	if !f.AssumeYes {
		if err := f.confirm(); err != nil {
			return err
		}
	}

	if err := f.unmountExisting(); err != nil {
		return err
	}
	if err := f.zero(ctx); err != nil {
		return err
	}
	if err := f.partition(); err != nil {
		return err
	}
	if err := f.format(); err != nil {
		return err
	}
	if err := f.populateBoot(); err != nil {
		return err
	}
	if err := f.populateRoot(); err != nil {
		return err
	}

	if !f.DryRun {
		if err := os.RemoveAll(f.Cfg.MountDir); err != nil {
			return exitcode.Errorf(exitcode.Failure, "removing %s: %v", f.Cfg.MountDir, err)
		}
		// The report is informational; a failure to write it does not
		// invalidate the flash.
		if err := f.writeReport(ctx, start); err != nil {
			log.Printf("writing flash report: %v", err)
		}
	}

	fmt.Fprintf(f.Stdout, "Flashed %s in %v\n", f.Device, time.Since(start).Round(time.Second))
	return nil
}

// confirm asks for a literal y/Y before anything destructive happens.
func (f *Flasher) confirm() error {
	fmt.Fprintf(f.Stdout, "About to erase all data on %s. Continue? (y/N) ", f.Device)
	sc := bufio.NewScanner(f.Stdin)
	sc.Scan()
	if err := sc.Err(); err != nil {
		return exitcode.Errorf(exitcode.Failure, "reading confirmation: %v", err)
	}
	switch strings.TrimSpace(sc.Text()) {
	case "y", "Y":
		return nil
	}
	return exitcode.Errorf(exitcode.Failure, "aborted, %s left untouched", f.Device)
}

// unmountExisting clears every mount of the target device before it gets
// repartitioned.
func (f *Flasher) unmountExisting() error {
	mounts, err := block.MountedFrom(f.Device)
	if err != nil {
		return exitcode.Errorf(exitcode.Failure, "scanning mounts of %s: %v", f.Device, err)
	}
	for _, m := range mounts {
		fmt.Fprintf(f.Stdout, "Unmounting %s from %s\n", m.Source, m.Target)
		if err := f.Runner.Run(nil, "umount", m.Target); err != nil {
			return exitcode.Errorf(exitcode.MountFailure, "unmounting %s: %v", m.Target, err)
		}
	}
	return nil
}

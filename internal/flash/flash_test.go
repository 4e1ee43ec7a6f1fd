package flash

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gokrazy/sdflash/internal/artifacts"
	"github.com/gokrazy/sdflash/internal/config"
	"github.com/gokrazy/sdflash/internal/exitcode"
)

// fakeRunner records every command instead of executing it and can inject
// a failure for commands matching failOn.
type fakeRunner struct {
	commands []string
	stdins   []string
	failOn   string
}

func (r *fakeRunner) Run(stdin io.Reader, name string, arg ...string) error {
	line := strings.Join(append([]string{name}, arg...), " ")
	var in string
	if stdin != nil {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return err
		}
		in = string(b)
	}
	r.commands = append(r.commands, line)
	r.stdins = append(r.stdins, in)
	if r.failOn != "" && strings.HasPrefix(line, r.failOn) {
		return fmt.Errorf("injected failure for %q", line)
	}
	return nil
}

func fabricateArtifacts(t *testing.T) *artifacts.Set {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, artifacts.FirmwareSubdir), 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range map[string]string{
		artifacts.KernelImage:   "kernel bits",
		artifacts.RootfsArchive: "tar bits",
		filepath.Join(artifacts.FirmwareSubdir, "bootcode.bin"): "bootcode",
		filepath.Join(artifacts.FirmwareSubdir, "start.elf"):    "start",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	set, err := artifacts.Locate(dir)
	if err != nil {
		t.Fatal(err)
	}
	return set
}

// newTestFlasher returns a dry-run Flasher against a fake device with all
// preflight hooks passing.
func newTestFlasher(t *testing.T, runner Runner) *Flasher {
	t.Helper()
	cfg := config.Default()
	cfg.MountDir = filepath.Join(t.TempDir(), ".mnt")
	return &Flasher{
		Device:     "/dev/sdz",
		Cfg:        cfg,
		Runner:     runner,
		DryRun:     true,
		AssumeYes:  true,
		Stdin:      strings.NewReader(""),
		Stdout:     io.Discard,
		Artifacts:  fabricateArtifacts(t),
		geteuid:    func() int { return 0 },
		blockCheck: func(string) (bool, error) { return true, nil },
		lookPath:   func(name string) (string, error) { return "/usr/sbin/" + name, nil },
	}
}

func TestRunSequence(t *testing.T) {
	runner := &fakeRunner{}
	f := newTestFlasher(t, runner)
	if err := f.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	mnt := f.Cfg.MountDir
	want := []string{
		"fdisk -u /dev/sdz",
		"mkfs.vfat -F 32 -n boot /dev/sdz1",
		"mkfs.ext4 -q -L rootfs /dev/sdz2",
		"mount /dev/sdz1 " + mnt,
		"umount " + mnt,
		"mount /dev/sdz2 " + mnt,
		"tar -xpf " + f.Artifacts.Rootfs + " -C " + mnt,
		"umount " + mnt,
	}
	if diff := cmp.Diff(want, runner.commands); diff != "" {
		t.Errorf("command sequence (-want +got):\n%s", diff)
	}
	if got, want := runner.stdins[0], FdiskScript(100); got != want {
		t.Errorf("fdisk stdin = %q, want %q", got, want)
	}
}

func TestRunRequiresRoot(t *testing.T) {
	runner := &fakeRunner{}
	f := newTestFlasher(t, runner)
	f.geteuid = func() int { return 1000 }

	err := f.Run(context.Background())
	if got := exitcode.From(err); got != exitcode.Failure {
		t.Errorf("exit code = %d, want %d (err: %v)", got, exitcode.Failure, err)
	}
	if len(runner.commands) != 0 {
		t.Errorf("commands ran despite failed preflight: %v", runner.commands)
	}
}

func TestRunRejectsNonBlockDevice(t *testing.T) {
	runner := &fakeRunner{}
	f := newTestFlasher(t, runner)
	f.blockCheck = func(string) (bool, error) { return false, nil }

	err := f.Run(context.Background())
	if got := exitcode.From(err); got != exitcode.Failure {
		t.Errorf("exit code = %d, want %d (err: %v)", got, exitcode.Failure, err)
	}
	if len(runner.commands) != 0 {
		t.Errorf("commands ran despite failed preflight: %v", runner.commands)
	}
}

func TestRunMissingTool(t *testing.T) {
	runner := &fakeRunner{}
	f := newTestFlasher(t, runner)
	f.lookPath = func(name string) (string, error) {
		if name == "fdisk" {
			return "", fmt.Errorf("not found")
		}
		return "/usr/sbin/" + name, nil
	}

	err := f.Run(context.Background())
	if got := exitcode.From(err); got != exitcode.MissingTool {
		t.Errorf("exit code = %d, want %d (err: %v)", got, exitcode.MissingTool, err)
	}
}

func TestRunMissingArtifacts(t *testing.T) {
	runner := &fakeRunner{}
	f := newTestFlasher(t, runner)
	f.Artifacts = nil
	f.Cfg.ArtifactsDir = filepath.Join(t.TempDir(), "does-not-exist")

	err := f.Run(context.Background())
	if got := exitcode.From(err); got != exitcode.Failure {
		t.Errorf("exit code = %d, want %d (err: %v)", got, exitcode.Failure, err)
	}
}

func TestRunDeclinedConfirmation(t *testing.T) {
	for _, input := range []string{"", "n\n", "no\n", "yes\n", "j\n"} {
		runner := &fakeRunner{}
		f := newTestFlasher(t, runner)
		f.AssumeYes = false
		f.Stdin = strings.NewReader(input)

		err := f.Run(context.Background())
		if got := exitcode.From(err); got != exitcode.Failure {
			t.Errorf("input %q: exit code = %d, want %d", input, got, exitcode.Failure)
		}
		if len(runner.commands) != 0 {
			t.Errorf("input %q: device touched despite declined confirmation: %v", input, runner.commands)
		}
	}
}

func TestConfirmAccepts(t *testing.T) {
	for _, input := range []string{"y\n", "Y\n", "  y  \n"} {
		f := &Flasher{Device: "/dev/sdz", Stdin: strings.NewReader(input), Stdout: io.Discard}
		if err := f.confirm(); err != nil {
			t.Errorf("input %q: confirm() = %v, want nil", input, err)
		}
	}
}

func TestRunMountFailureExitsTwo(t *testing.T) {
	runner := &fakeRunner{failOn: "mount "}
	f := newTestFlasher(t, runner)

	err := f.Run(context.Background())
	if got := exitcode.From(err); got != exitcode.MountFailure {
		t.Errorf("exit code = %d, want %d (err: %v)", got, exitcode.MountFailure, err)
	}
}

func TestRunUnmountFailureExitsTwo(t *testing.T) {
	runner := &fakeRunner{failOn: "umount "}
	f := newTestFlasher(t, runner)

	err := f.Run(context.Background())
	if got := exitcode.From(err); got != exitcode.MountFailure {
		t.Errorf("exit code = %d, want %d (err: %v)", got, exitcode.MountFailure, err)
	}
}

func TestRunExtractionFailure(t *testing.T) {
	runner := &fakeRunner{failOn: "tar "}
	f := newTestFlasher(t, runner)

	err := f.Run(context.Background())
	if got := exitcode.From(err); got != exitcode.Failure {
		t.Errorf("exit code = %d, want %d (err: %v)", got, exitcode.Failure, err)
	}
}

func TestRunPartitioningFailure(t *testing.T) {
	runner := &fakeRunner{failOn: "fdisk "}
	f := newTestFlasher(t, runner)

	err := f.Run(context.Background())
	if got := exitcode.From(err); got != exitcode.Failure {
		t.Errorf("exit code = %d, want %d (err: %v)", got, exitcode.Failure, err)
	}
	if len(runner.commands) != 1 {
		t.Errorf("expected the sequence to stop after fdisk, got %v", runner.commands)
	}
}

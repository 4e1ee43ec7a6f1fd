package flash

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/gokrazy/internal/humanize"

	"github.com/gokrazy/sdflash/internal/block"
	"github.com/gokrazy/sdflash/internal/exitcode"
	"github.com/gokrazy/sdflash/internal/measure"
)

// populateBoot mounts the FAT32 partition and copies the firmware files
// and the kernel image onto it.
func (f *Flasher) populateBoot() error {
	boot := block.PartitionDevice(f.Device, 1)
	mnt := f.Cfg.MountDir

	if !f.DryRun {
		if err := os.MkdirAll(mnt, 0755); err != nil {
			return exitcode.Errorf(exitcode.Failure, "creating %s: %v", mnt, err)
		}
	}
	if err := f.Runner.Run(nil, "mount", boot, mnt); err != nil {
		return exitcode.Errorf(exitcode.MountFailure, "mounting %s on %s: %v", boot, mnt, err)
	}
	if !f.DryRun {
		if err := f.copyBootFiles(mnt); err != nil {
			return err
		}
	}
	if err := f.Runner.Run(nil, "umount", mnt); err != nil {
		return exitcode.Errorf(exitcode.MountFailure, "unmounting %s: %v", mnt, err)
	}
	return nil
}

func (f *Flasher) copyBootFiles(mnt string) error {
	firmware, err := f.Artifacts.FirmwareFiles()
	if err != nil {
		return exitcode.Errorf(exitcode.Failure, "listing firmware files: %v", err)
	}

	var total uint64
	for _, src := range append(firmware, f.Artifacts.Kernel) {
		n, err := copyFile(filepath.Join(mnt, filepath.Base(src)), src)
		if err != nil {
			return exitcode.Errorf(exitcode.Failure, "copying %s: %v", src, err)
		}
		total += uint64(n)
	}
	log.Printf("copied %d boot files (%s) onto %s", len(firmware)+1, humanize.Bytes(total), mnt)
	return nil
}

func copyFile(dest, src string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, err
	}
	return n, out.Close()
}

// populateRoot mounts the ext4 partition and extracts the root filesystem
// archive onto it. tar runs with -p so permissions, ownership and special
// files survive (sdflash runs as root).
func (f *Flasher) populateRoot() error {
	root := block.PartitionDevice(f.Device, 2)
	mnt := f.Cfg.MountDir

	if err := f.Runner.Run(nil, "mount", root, mnt); err != nil {
		return exitcode.Errorf(exitcode.MountFailure, "mounting %s on %s: %v", root, mnt, err)
	}

	fmt.Fprintf(f.Stdout, "Extracting %s onto %s\n", f.Artifacts.Rootfs, root)
	done := measure.Interactively("extracting root file system")
	err := f.Runner.Run(nil, "tar", "-xpf", f.Artifacts.Rootfs, "-C", mnt)
	done("")
	if err != nil {
		return exitcode.Errorf(exitcode.Failure, "extracting %s: %v", f.Artifacts.Rootfs, err)
	}

	if err := f.Runner.Run(nil, "umount", mnt); err != nil {
		return exitcode.Errorf(exitcode.MountFailure, "unmounting %s: %v", mnt, err)
	}
	return nil
}

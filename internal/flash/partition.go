package flash

import (
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/gokrazy/sdflash/internal/block"
	"github.com/gokrazy/sdflash/internal/exitcode"
	"github.com/gokrazy/sdflash/internal/measure"
)

// FdiskScript returns the scripted keystroke sequence fed to fdisk(8):
// a fresh DOS partition table, partition 1 of bootSizeMiB with type 0x0c
// (W95 FAT32, LBA), and partition 2 spanning the remaining space with the
// bootable flag set.
func FdiskScript(bootSizeMiB int) string {
	return strings.Join([]string{
		"o", // new DOS partition table
		"n", "p", "1", "", fmt.Sprintf("+%dM", bootSizeMiB),
		"t", "c", // only one partition so far, no number prompt
		"n", "p", "2", "", "",
		"a", "2",
		"w",
	}, "\n") + "\n"
}

func (f *Flasher) partition() error {
	fmt.Fprintf(f.Stdout, "Partitioning %s (boot: %d MiB, root: remaining space)\n", f.Device, f.Cfg.BootSizeMiB)
	script := strings.NewReader(FdiskScript(f.Cfg.BootSizeMiB))
	if err := f.Runner.Run(script, "fdisk", "-u", f.Device); err != nil {
		return exitcode.Errorf(exitcode.Failure, "partitioning %s: %v", f.Device, err)
	}
	if f.DryRun {
		return nil
	}
	if err := f.rereadPartitionTable(); err != nil {
		// fdisk already asked the kernel to re-read the table when it
		// wrote it, so a busy device here is not fatal.
		log.Printf("re-reading partition table: %v", err)
	}
	return nil
}

// rereadPartitionTable makes the kernel pick up the new partition table,
// with the same syscall sequence fdisk(8) uses.
func (f *Flasher) rereadPartitionTable() error {
	o, err := os.OpenFile(f.Device, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer o.Close()
	unix.Sync()
	return block.RereadPartitions(o.Fd())
}

func (f *Flasher) format() error {
	boot := block.PartitionDevice(f.Device, 1)
	root := block.PartitionDevice(f.Device, 2)

	if err := f.Runner.Run(nil, "mkfs.vfat", "-F", "32", "-n", f.Cfg.BootLabel, boot); err != nil {
		return exitcode.Errorf(exitcode.Failure, "formatting %s: %v", boot, err)
	}

	done := measure.Interactively("formatting " + root)
	err := f.Runner.Run(nil, "mkfs.ext4", "-q", "-L", f.Cfg.RootLabel, root)
	done("")
	if err != nil {
		return exitcode.Errorf(exitcode.Failure, "formatting %s: %v", root, err)
	}
	return nil
}

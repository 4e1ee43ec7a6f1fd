package block

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// DeviceSize returns the size in bytes of the block device open at fd.
func DeviceSize(fd uintptr) (uint64, error) {
	var devsize uint64
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&devsize))); errno != 0 {
		return 0, errno
	}
	return devsize, nil
}

// RereadPartitions makes the kernel re-read the partition table of the
// device open at fd, like fdisk(8) does after writing one.
func RereadPartitions(fd uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, unix.BLKRRPART, 0); errno != 0 {
		return errno
	}
	return nil
}

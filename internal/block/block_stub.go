//go:build !linux

package block

import "fmt"

func DeviceSize(fd uintptr) (uint64, error) {
	return 0, fmt.Errorf("determining block device sizes is only implemented on linux")
}

func RereadPartitions(fd uintptr) error {
	return fmt.Errorf("re-reading partition tables is only implemented on linux")
}

// Package tools verifies that the external programs sdflash delegates to
// are installed.
package tools

import (
	"fmt"
	"strings"
)

// Required lists the programs the flash sequence invokes. Partitioning and
// formatting are never done in-process.
var Required = []string{
	"fdisk",
	"mkfs.vfat",
	"mkfs.ext4",
	"tar",
	"mount",
	"umount",
}

// Check looks up every required tool with lookPath (typically
// exec.LookPath) and returns an error naming all missing ones.
func Check(lookPath func(string) (string, error)) error {
	var missing []string
	for _, tool := range Required {
		if _, err := lookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required tools not found in PATH: %s (install util-linux, dosfstools and e2fsprogs)", strings.Join(missing, ", "))
	}
	return nil
}

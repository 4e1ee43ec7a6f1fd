// Package block contains the small set of block device helpers sdflash
// needs: identifying block device nodes, deriving partition device names,
// and finding existing mounts of a device.
package block

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// IsBlockDevice reports whether path names a block device node.
func IsBlockDevice(path string) (bool, error) {
	st, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	mode := st.Mode()
	return mode&os.ModeDevice != 0 && mode&os.ModeCharDevice == 0, nil
}

// PartitionDevice returns the device node of partition n on device,
// following the kernel naming convention: devices whose name ends in a
// digit (mmcblk0, nvme0n1, loop0) get a "p" separator.
func PartitionDevice(device string, n int) string {
	name := strings.TrimPrefix(device, "/dev/")
	if name == "" {
		return device
	}
	if last := name[len(name)-1]; last >= '0' && last <= '9' {
		return fmt.Sprintf("/dev/%sp%d", name, n)
	}
	return fmt.Sprintf("/dev/%s%d", name, n)
}

// Mount is one entry of a mount table.
type Mount struct {
	Source string
	Target string
}

// ParseMounts parses mount table content in /proc/self/mounts format.
func ParseMounts(r io.Reader) ([]Mount, error) {
	var mounts []Mount
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		mounts = append(mounts, Mount{
			Source: unescapeMountField(fields[0]),
			Target: unescapeMountField(fields[1]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return mounts, nil
}

// FromDevice returns the entries of mounts whose source is device or one of
// its partitions.
func FromDevice(mounts []Mount, device string) []Mount {
	var matching []Mount
	for _, m := range mounts {
		if strings.HasPrefix(m.Source, device) {
			matching = append(matching, m)
		}
	}
	return matching
}

// MountedFrom returns the currently mounted filesystems whose source is
// device or one of its partitions. On systems without /proc it returns no
// mounts.
func MountedFrom(device string) ([]Mount, error) {
	f, err := os.Open("/proc/self/mounts")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	mounts, err := ParseMounts(f)
	if err != nil {
		return nil, err
	}
	return FromDevice(mounts, device), nil
}

// unescapeMountField decodes the \ooo octal escapes the kernel uses for
// spaces, tabs and backslashes in mount table fields.
func unescapeMountField(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && isOctal(s[i+1]) && isOctal(s[i+2]) && isOctal(s[i+3]) {
			b.WriteByte((s[i+1]-'0')<<6 | (s[i+2]-'0')<<3 | (s[i+3] - '0'))
			i += 3
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isOctal(c byte) bool { return c >= '0' && c <= '7' }

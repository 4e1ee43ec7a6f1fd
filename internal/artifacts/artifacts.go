// Package artifacts locates the build outputs that get flashed onto the
// card: the kernel image, the root filesystem archive and the Raspberry Pi
// firmware directory.
package artifacts

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	// KernelImage is the kernel file name, both in the artifacts directory
	// and on the boot partition.
	KernelImage = "zImage"

	// RootfsArchive is the tar archive holding the root filesystem.
	RootfsArchive = "rootfs.tar"

	// FirmwareSubdir holds the Raspberry Pi boot firmware files.
	FirmwareSubdir = "rpi-firmware"
)

// searchDirs are the two artifact directory layouts produced by the image
// build, tried in order.
var searchDirs = []string{
	"images",
	filepath.Join("output", "images"),
}

// Set is one complete set of build artifacts.
type Set struct {
	Dir      string // artifacts directory
	Kernel   string // path to the kernel image
	Rootfs   string // path to the root filesystem archive
	Firmware string // path to the firmware directory
}

// Locate returns the artifact set in dir, or, if dir is empty, in the first
// of the known artifact directories that holds a complete set.
func Locate(dir string) (*Set, error) {
	if dir != "" {
		return locateIn(dir)
	}
	return locateUnder(".")
}

func locateUnder(base string) (*Set, error) {
	for _, d := range searchDirs {
		if s, err := locateIn(filepath.Join(base, d)); err == nil {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no complete set of build artifacts under %s (need %s, %s and a non-empty %s/ directory)",
		strings.Join(searchDirs, " or "), KernelImage, RootfsArchive, FirmwareSubdir)
}

func locateIn(dir string) (*Set, error) {
	s := &Set{
		Dir:      dir,
		Kernel:   filepath.Join(dir, KernelImage),
		Rootfs:   filepath.Join(dir, RootfsArchive),
		Firmware: filepath.Join(dir, FirmwareSubdir),
	}
	for _, path := range []string{s.Kernel, s.Rootfs} {
		st, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if st.IsDir() {
			return nil, fmt.Errorf("%s is a directory, expected a file", path)
		}
	}
	files, err := s.FirmwareFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("firmware directory %s contains no files", s.Firmware)
	}
	return s, nil
}

// FirmwareFiles returns the paths of all regular files in the firmware
// directory, sorted by name.
func (s *Set) FirmwareFiles() ([]string, error) {
	entries, err := os.ReadDir(s.Firmware)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, ent := range entries {
		if ent.Type().IsRegular() {
			files = append(files, filepath.Join(s.Firmware, ent.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// FileInfo describes one artifact file.
type FileInfo struct {
	Name   string `json:"name"` // relative to the artifacts directory
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Describe returns size and SHA-256 checksum for every artifact file,
// computing the checksums concurrently.
func (s *Set) Describe(ctx context.Context) ([]FileInfo, error) {
	paths := []string{s.Kernel, s.Rootfs}
	fw, err := s.FirmwareFiles()
	if err != nil {
		return nil, err
	}
	paths = append(paths, fw...)

	infos := make([]FileInfo, len(paths))
	g, _ := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			h := sha256.New()
			size, err := io.Copy(h, f)
			if err != nil {
				return fmt.Errorf("checksumming %s: %w", path, err)
			}
			name, err := filepath.Rel(s.Dir, path)
			if err != nil {
				name = path
			}
			infos[i] = FileInfo{
				Name:   filepath.ToSlash(name),
				Size:   size,
				SHA256: fmt.Sprintf("%x", h.Sum(nil)),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return infos, nil
}

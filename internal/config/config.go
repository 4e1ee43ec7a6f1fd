// Package config reads the optional sdflash.yaml configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no --config flag is given.
const DefaultPath = "sdflash.yaml"

// Config holds the tunables of a flash run. Every field has a default, so
// running without a config file is the common case.
type Config struct {
	// BootSizeMiB is the size of the FAT32 boot partition.
	BootSizeMiB int `yaml:"boot_size_mib"`

	// BootLabel and RootLabel are the volume labels passed to mkfs.
	BootLabel string `yaml:"boot_label"`
	RootLabel string `yaml:"root_label"`

	// ArtifactsDir overrides artifact auto-discovery when non-empty.
	ArtifactsDir string `yaml:"artifacts_dir"`

	// MountDir is the temporary mount directory, created in the working
	// directory and removed after a successful flash.
	MountDir string `yaml:"mount_dir"`
}

func Default() Config {
	return Config{
		BootSizeMiB: 100,
		BootLabel:   "boot",
		RootLabel:   "rootfs",
		MountDir:    ".mnt",
	}
}

// Load reads path if it exists, overlaying it on the defaults. A missing
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.BootSizeMiB <= 0 {
		return cfg, fmt.Errorf("%s: boot_size_mib must be positive, got %d", path, cfg.BootSizeMiB)
	}
	if cfg.MountDir == "" {
		return cfg, fmt.Errorf("%s: mount_dir must not be empty", path)
	}
	return cfg, nil
}

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gokrazy/sdflash/internal/config"
	"github.com/gokrazy/sdflash/internal/flash"
)

// flashCmd is sdflash flash.
var flashCmd = &cobra.Command{
	Use:   "flash <device>",
	Short: "Partition, format and populate an SD card",
	Long: `Partition, format and populate an SD card with the built image.

The target device is wiped: its first 10 MiB are zeroed, a fresh DOS
partition table with a FAT32 boot partition and an ext4 root partition is
written, and the partitions are populated from the build artifacts.

Examples:
  # Flash the SD card at /dev/sdx:
  % sudo sdflash flash /dev/sdx

  # Show what would be run, without touching the card:
  % sdflash flash --dry-run /dev/sdx
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			fmt.Fprint(cmd.ErrOrStderr(), "expected exactly one device argument\n\n")
			return cmd.Usage()
		}
		return flashImpl.run(cmd.Context(), args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

type flashImplConfig struct {
	assumeYes    bool
	dryRun       bool
	bootSizeMiB  int
	artifactsDir string
	configFile   string
}

var flashImpl flashImplConfig

func init() {
	flashCmd.Flags().BoolVarP(&flashImpl.assumeYes, "assume-yes", "y", false, "skip the interactive confirmation")
	flashCmd.Flags().BoolVarP(&flashImpl.dryRun, "dry-run", "n", false, "print the commands that would run instead of executing them")
	flashCmd.Flags().IntVarP(&flashImpl.bootSizeMiB, "boot-size", "", 0, "boot partition size in MiB (default from "+config.DefaultPath+", or 100)")
	flashCmd.Flags().StringVarP(&flashImpl.artifactsDir, "artifacts", "", "", "artifacts directory (default: search images/ and output/images/)")
	flashCmd.Flags().StringVarP(&flashImpl.configFile, "config", "", config.DefaultPath, "configuration file")
}

func (r *flashImplConfig) run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load(r.configFile)
	if err != nil {
		return err
	}
	if r.bootSizeMiB > 0 {
		cfg.BootSizeMiB = r.bootSizeMiB
	}
	if r.artifactsDir != "" {
		cfg.ArtifactsDir = r.artifactsDir
	}

	var runner flash.Runner = flash.ExecRunner{}
	if r.dryRun {
		runner = &flash.NoopRunner{Stdout: stdout}
	}

	f := &flash.Flasher{
		Device:    args[0],
		Cfg:       cfg,
		Runner:    runner,
		DryRun:    r.dryRun,
		AssumeYes: r.assumeYes,
		Stdin:     stdin,
		Stdout:    stdout,
	}
	return f.Run(ctx)
}

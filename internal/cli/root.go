// Package cli is the cobra command tree behind the sdflash binary.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gokrazy/sdflash/internal/exitcode"
	"github.com/gokrazy/sdflash/internal/version"
)

func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sdflash",
		Short: "write a built Raspberry Pi image onto an SD card",
		Long: `sdflash takes the artifacts of a Raspberry Pi image build (zImage,
rootfs.tar and the rpi-firmware directory, found under images/ or
output/images/) and writes them onto an SD card:

1. Inspect the artifacts that would be flashed (sdflash artifacts),
2. Partition, format and populate the card (sdflash flash /dev/sdx).

Partitioning and formatting are delegated to fdisk, mkfs.vfat and
mkfs.ext4; sdflash must run as root.
`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			versionVal, err := cmd.Flags().GetBool("version")
			if err != nil {
				return fmt.Errorf("BUG: version flag declared as non-bool")
			}
			if versionVal {
				fmt.Fprintln(cmd.OutOrStdout(), version.Read())
				return nil
			}
			return pflag.ErrHelp
		},
	}
	rootCmd.Flags().Bool("version", false, "print sdflash version")
	rootCmd.AddCommand(flashCmd)
	rootCmd.AddCommand(artifactsCmd)
	rootCmd.AddCommand(versionCmd)
	return rootCmd
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	if err := RootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sdflash: %v\n", err)
		return exitcode.From(err)
	}
	return exitcode.Success
}

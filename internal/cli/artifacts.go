package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/gokrazy/internal/humanize"
	"github.com/spf13/cobra"

	"github.com/gokrazy/sdflash/internal/artifacts"
)

// artifactsCmd is sdflash artifacts.
var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Show the build artifacts that would be flashed",
	Long: `Show the build artifacts that would be flashed: the kernel image, the
root filesystem archive and the firmware files, each with its size and
SHA-256 checksum.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return artifactsImpl.run(cmd.Context(), args, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

type artifactsImplConfig struct {
	dir string
}

var artifactsImpl artifactsImplConfig

func init() {
	artifactsCmd.Flags().StringVarP(&artifactsImpl.dir, "dir", "", "", "artifacts directory (default: search images/ and output/images/)")
}

func (r *artifactsImplConfig) run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	set, err := artifacts.Locate(r.dir)
	if err != nil {
		return err
	}
	infos, err := set.Describe(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Build artifacts in %s:\n", set.Dir)
	var total uint64
	for _, info := range infos {
		fmt.Fprintf(stdout, "  %-30s %10s  %s\n", info.Name, humanize.Bytes(uint64(info.Size)), info.SHA256)
		total += uint64(info.Size)
	}
	fmt.Fprintf(stdout, "%d files, %s\n", len(infos), humanize.Bytes(total))
	return nil
}

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gokrazy/sdflash/internal/version"
)

// versionCmd is sdflash version.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print sdflash version",
	Long:  `Print sdflash version`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return versionImpl.run(cmd.Context(), args, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

type versionImplConfig struct{}

var versionImpl versionImplConfig

func (r *versionImplConfig) run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fmt.Fprintf(stdout, "%s\n", version.Read())
	return nil
}

package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/astahmer/zodios"
)

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.config.Output == string(FormatJSON) || a.config.Output == string(FormatYAML) {
				return NewFormatter(Format(a.config.Output)).Format(cmd.OutOrStdout(), zodios.GetVersionInfo())
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\nplatform: %s/%s\n", zodios.GetVersion(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}

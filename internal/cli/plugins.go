package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/causalrt/internal/plugin"
)

// NewPluginsCommand creates the plugins command.
func NewPluginsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List registered estimator plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := plugin.Default.List()
			return rootOpts.formatter(cmd).Success(infos, func(w io.Writer) {
				for _, p := range infos {
					fmt.Fprintf(w, "%s\t%s\n", p.Name, p.Version)
				}
			})
		},
	}
}

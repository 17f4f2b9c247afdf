package status

import (
	"github.com/spf13/cobra"

	"github.com/sidkik/fikasync/cmd/pull"
	"github.com/sidkik/fikasync/cmd/util"
)

// New creates a new `status` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show how the local profiles compare to the remote ones",
		Long: "Compare the local profiles to the remote ones without changing " +
			"anything. The report shows what `fikasync pull` would do.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := pull.Run(true); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

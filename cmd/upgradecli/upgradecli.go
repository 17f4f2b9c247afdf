package upgradecli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/fikasync/cmd/util"
	"github.com/sidkik/fikasync/pkg/errors"
	"github.com/sidkik/fikasync/pkg/remote/github"
	"github.com/sidkik/fikasync/pkg/update"
	"github.com/sidkik/fikasync/pkg/version"
)

// Mocked for unit testing.
var (
	stdout        io.Writer = os.Stdout
	executable              = os.Executable
	promptYesOrNo           = util.PromptYesOrNo

	releases update.ReleaseSource = github.New("", "", "")
)

// New creates a new `upgrade-cli` command.
func New() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "upgrade-cli",
		Short: "Upgrade FikaSync to the latest release",
		Long: "Download the latest FikaSync release and replace the running " +
			"binary with it. The previous binary is removed the next time " +
			"FikaSync starts.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(context.Background(), yes); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Install without asking for confirmation")
	return cmd
}

func run(ctx context.Context, yes bool) error {
	exe, err := executable()
	if err != nil {
		return errors.WithContext(err, "get executable path")
	}
	update.CleanupOld(exe)

	available, newer, err := update.Check(ctx, releases, version.UpdateRepo, version.Version)
	if err != nil {
		return errors.WithContext(err, "check for updates")
	}

	fmt.Fprintf(stdout, "Your FikaSync is at version: %s\n", available.Current)
	fmt.Fprintf(stdout, "The latest release is: %s\n\n", available.Latest)
	if !newer {
		fmt.Fprintln(stdout, "You're already up to date.")
		return nil
	}

	if !yes {
		install, err := promptYesOrNo(fmt.Sprintf("Would you like to upgrade to release %s", available.Latest))
		if err != nil {
			return errors.WithContext(err, "prompt")
		} else if !install {
			return nil
		}
	}

	pp := util.NewProgressPrinter(stdout, fmt.Sprintf("Downloading FikaSync release: %s", available.Latest))
	go pp.Run()
	err = update.Apply(ctx, releases, available.Release, exe)
	pp.Stop()
	if err != nil {
		return errors.WithContext(err, "install release")
	}

	fmt.Fprintf(stdout, "Upgraded to %s. Restart FikaSync to use the new version.\n", available.Latest)
	return nil
}

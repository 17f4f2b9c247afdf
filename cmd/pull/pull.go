package pull

import (
	"context"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/fikasync/cmd/util"
	"github.com/sidkik/fikasync/pkg/errors"
	"github.com/sidkik/fikasync/pkg/sync"
)

// Mocked for unit testing.
var stdout io.Writer = os.Stdout

// New creates a new `pull` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Download the profiles that are ahead remotely",
		Long: "Download the profiles whose remote copy is ahead of the local one, " +
			"without uploading anything. Local profiles that are ahead are " +
			"reported, and are uploaded by the next session.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := Run(false); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

// Run runs the pull pass. When `dryRun` is set, the local profiles aren't
// modified, and the report describes what would have happened.
func Run(dryRun bool) error {
	cfg, err := util.LoadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := util.Connect(ctx, cfg)
	if err != nil {
		return err
	}

	engine := util.NewEngine(cfg, store)
	engine.DryRun = dryRun
	return run(ctx, engine)
}

func run(ctx context.Context, engine *sync.Engine) error {
	report, err := engine.Pull(ctx)
	if err != nil {
		return errors.WithContext(err, "pull profiles")
	}

	util.PrintPullReport(stdout, report)
	if n := report.Count(sync.PullFailed); n > 0 {
		log.Warnf("Failed to sync %d profile(s)", n)
	}
	if names := report.Pending.Names(); len(names) > 0 {
		log.WithField("profiles", names).Info("These profiles will be uploaded after the next session")
	}
	return nil
}

package session

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/fikasync/cmd/util"
	"github.com/sidkik/fikasync/pkg/config"
	"github.com/sidkik/fikasync/pkg/errors"
	"github.com/sidkik/fikasync/pkg/fswatch"
	"github.com/sidkik/fikasync/pkg/remote/github"
	"github.com/sidkik/fikasync/pkg/sync"
	"github.com/sidkik/fikasync/pkg/update"
	"github.com/sidkik/fikasync/pkg/version"
)

// Mocked for unit testing.
var (
	stdin           io.Reader = os.Stdin
	stdout          io.Writer = os.Stdout
	promptYesOrNo             = util.PromptYesOrNo
	connect                   = util.Connect
	checkForUpdates           = checkForUpdatesImpl
)

// New creates a new `session` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Sync profiles before and after a game session",
		Long: "Download the profiles that progressed elsewhere, wait while the " +
			"game is played, and then upload the profiles that progressed during " +
			"the session.\n\nThis is what runs when no command is given.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := Run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

// Run runs a full session using the configuration in the base directory.
func Run() error {
	cfg, err := util.LoadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	checkForUpdates(ctx)
	return run(ctx, cfg)
}

func run(ctx context.Context, cfg config.Config) error {
	engine, pending, err := startup(ctx, cfg)
	if err != nil {
		return err
	}

	var start sync.SessionSnapshot
	if engine != nil {
		start, err = engine.CaptureSessionStart()
		if err != nil {
			return errors.WithContext(err, "capture session start")
		}
	}

	if watcher, err := fswatch.Watch(cfg.ProfilesDir, sync.ProfileExt); err == nil {
		defer watcher.Close()
		go logChanges(watcher.Changes)
	} else {
		log.WithError(err).Debug("Failed to watch profiles. Changes won't be reported during the session.")
	}

	err = util.WaitForEnter(stdin, stdout,
		"\nStart the game now. Press ENTER once you've finished playing and closed it.")
	if err != nil {
		return errors.WithContext(err, "wait for session")
	}

	if engine == nil {
		log.Warn("Sync was skipped at startup, so progress from this session wasn't uploaded. " +
			"It will be uploaded after your next synced session.")
		return nil
	}

	log.Info("Uploading progress")
	report, err := engine.Push(ctx, start, pending)
	if err != nil {
		return errors.WithContext(err, "upload profiles")
	}
	util.PrintPushReport(stdout, report)

	if n := report.Count(sync.PushSent); n > 0 {
		log.Infof("Uploaded %d profile(s)", n)
	}
	if len(report.Pending) > 0 {
		log.WithField("profiles", report.Pending.Names()).Warn(
			"Some profiles are still ahead of the remote copy. They'll be checked again next session.")
	}
	return nil
}

// startup connects to the remote store and runs the pull pass. If the store
// can't be reached, the user may choose to play offline, in which case the
// returned engine is nil.
func startup(ctx context.Context, cfg config.Config) (*sync.Engine, sync.PendingSet, error) {
	store, err := connect(ctx, cfg)
	if err != nil {
		return nil, nil, offlineOrFail(err)
	}

	engine := util.NewEngine(cfg, store)

	pp := util.NewProgressPrinter(stdout, "Downloading profiles")
	go pp.Run()
	report, err := engine.Pull(ctx)
	pp.Stop()
	if err != nil {
		return nil, nil, offlineOrFail(err)
	}

	util.PrintPullReport(stdout, report)
	if n := report.Count(sync.PullUpdated) + report.Count(sync.PullDownloaded); n > 0 {
		log.Infof("Downloaded %d profile(s)", n)
	}
	return engine, report.Pending, nil
}

func offlineOrFail(err error) error {
	fmt.Fprintf(stdout, "Failed to sync profiles: %s\n", errors.GetPrintableMessage(err))

	offline, promptErr := promptYesOrNo("Start the game without sync")
	if promptErr != nil {
		return errors.WithContext(promptErr, "prompt")
	}
	if !offline {
		return err
	}
	return nil
}

func logChanges(changes <-chan string) {
	for name := range changes {
		log.WithField("profile", name).Info("Profile saved")
	}
}

func checkForUpdatesImpl(ctx context.Context) {
	exe, err := os.Executable()
	if err != nil {
		log.WithError(err).Debug("Failed to get executable path")
		return
	}
	update.CleanupOld(exe)

	available, newer, err := update.Check(ctx, github.New("", "", ""),
		version.UpdateRepo, version.Version)
	if err != nil {
		log.WithError(err).Debug("Failed to check for updates")
		return
	}

	if newer {
		log.Infof("FikaSync %s is available. Run `fikasync upgrade-cli` to install it.",
			available.Latest)
	}
}

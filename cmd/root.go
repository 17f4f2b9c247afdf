package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/sidkik/fikasync/cmd/config"
	"github.com/sidkik/fikasync/cmd/pull"
	"github.com/sidkik/fikasync/cmd/session"
	"github.com/sidkik/fikasync/cmd/status"
	"github.com/sidkik/fikasync/cmd/upgradecli"
	"github.com/sidkik/fikasync/cmd/util"
	"github.com/sidkik/fikasync/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "FIKASYNC_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	var debug bool
	rootCmd := &cobra.Command{
		Use:   "fikasync",
		Short: "Keep SPT profiles in sync through a shared repository",
		Long: "FikaSync keeps SPT profiles in sync between the players of a " +
			"Fika server through a shared repository.\n\n" +
			"Without a command, it runs a full session: profiles are " +
			"downloaded, the game is played, and the progress is uploaded.",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
		},
		Run: func(_ *cobra.Command, _ []string) {
			if err := session.Run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Log debug messages")
	rootCmd.PersistentFlags().StringVar(&util.BaseDir, "base-dir", "",
		"The SPT installation directory. Defaults to the directory containing FikaSync.")

	rootCmd.AddCommand(
		configCmd.New(),
		pull.New(),
		session.New(),
		status.New(),
		upgradecli.New(),
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}

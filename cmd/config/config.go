package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/fikasync/cmd/util"
	"github.com/sidkik/fikasync/pkg/config"
	"github.com/sidkik/fikasync/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout       io.Writer = os.Stdout
	stdin        io.Reader = os.Stdin
	promptSecret           = promptSecretImpl
	loadConfig             = config.Load
	setEnv                 = config.SetEnv
)

// Options are the values that can be set from the command line instead of
// interactively.
type Options struct {
	RepoURL string
	Token   string
}

// New creates a new `config` command.
func New() *cobra.Command {
	var cliOpts Options
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Set the repository and access token used for syncing",
		Run: func(_ *cobra.Command, _ []string) {
			baseDir, err := util.ResolveBaseDir()
			if err == nil {
				err = SetupConfig(baseDir, cliOpts)
			}
			if err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s",
					errors.GetPrintableMessage(err))
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&cliOpts.RepoURL, "repo-url", "",
		"Set the URL of the repository holding the profiles. "+
			"Optional: If not set, `fikasync config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.Token, "token", "",
		"Set the GitHub personal access token. "+
			"Optional: If not set, `fikasync config` will interactively prompt.")
	return cmd
}

// SetupConfig prompts for the values not set in `cliOpts` and writes them to
// the env file in `baseDir`.
func SetupConfig(baseDir string, cliOpts Options) error {
	curr, err := loadConfig(baseDir)
	if err != nil {
		log.WithError(err).Debug("Failed to read current config")
		curr = config.Config{Backend: config.BackendGitHub}
	}

	opts, err := generateConfig(curr, cliOpts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := setEnv(baseDir, config.EnvRepoURL, opts.RepoURL); err != nil {
		return errors.WithContext(err, "write repository URL")
	}
	if opts.Token != "" {
		if err := setEnv(baseDir, config.EnvToken, opts.Token); err != nil {
			return errors.WithContext(err, "write token")
		}
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", config.EnvFile)
	return nil
}

// generateConfig interacts with the user to decide the values to write.
// Values given on the command line are validated but never prompted for.
func generateConfig(curr config.Config, cliOpts Options) (Options, error) {
	needsToken := curr.Backend != config.BackendGit
	opts := cliOpts

	if opts.RepoURL == "" {
		for {
			resp, err := promptUser("Enter the URL of the repository that holds the shared profiles.\n"+
				"For example, https://github.com/owner/fika-profiles.",
				"Repository URL", "", curr.RepoURL)
			if err != nil {
				return Options{}, errors.WithContext(err, "read response")
			}

			resp = strings.TrimSpace(resp)
			if err := validateRepoURL(resp, needsToken); err != nil {
				fmt.Fprintln(stdout, errors.GetPrintableMessage(err))
				continue
			}
			opts.RepoURL = resp
			break
		}
	} else if err := validateRepoURL(opts.RepoURL, needsToken); err != nil {
		return Options{}, err
	}

	if !needsToken {
		return opts, nil
	}

	if opts.Token == "" {
		token, err := promptSecret("GitHub access token")
		if err != nil {
			return Options{}, errors.WithContext(err, "read token")
		}
		opts.Token = strings.TrimSpace(token)
	} else if err := config.ValidateToken(opts.Token); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func validateRepoURL(url string, github bool) error {
	if url == "" {
		return errors.NewFriendlyError("The repository URL can't be empty.")
	}
	if github {
		return config.ValidateRepoURL(url)
	}
	return nil
}

func promptSecretImpl(label string) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Mask:     '*',
		Validate: config.ValidateToken,
	}
	return prompt.Run()
}

func promptUser(helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	options := []string{}
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	stdinReader := bufio.NewReader(stdin)

	if nOptions := len(options); nOptions > 1 {
		// defaultAnswer or currAnswer exists.
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			var choice int
			choiceStr = strings.TrimRight(choiceStr, "\r\n")

			// Default to the first choice if user doesn't enter anything.
			if choiceStr == "" {
				choice = 1
			} else {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					// Try again if the input is invalid.
					continue
				}
			}

			if choice == nOptions {
				// Enter manually.
				break
			}

			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(resp, "\r\n"), nil
}

package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/fikasync/pkg/errors"
)

// Mocked for unit testing.
var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
)

// HandleFatalError logs the error and exits. Friendly errors are printed
// without the context that led to them.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")
	fmt.Fprintln(stderr, errors.GetPrintableMessage(err))
	exit(1)
}

// HandlePanic logs a recovered panic along with its stack trace and exits. It
// should be deferred at the start of main.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).Errorf("Unexpected crash: %v", r)
		exit(1)
	}
}

// PromptYesOrNo asks the user a yes or no question. Interrupting the prompt
// is treated as a no.
func PromptYesOrNo(question string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     question,
		IsConfirm: true,
	}

	if _, err := prompt.Run(); err != nil {
		if err == promptui.ErrAbort || err == promptui.ErrInterrupt {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// WaitForEnter prints `msg` and blocks until a line is read from `in`.
func WaitForEnter(in io.Reader, out io.Writer, msg string) error {
	fmt.Fprintln(out, msg)
	_, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

// ProgressPrinter prints a message followed by a growing line of dots until
// stopped.
type ProgressPrinter struct {
	out      io.Writer
	msg      string
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewProgressPrinter returns a ProgressPrinter that writes to `out`. Start
// it by calling Run in a goroutine.
func NewProgressPrinter(out io.Writer, msg string) *ProgressPrinter {
	return &ProgressPrinter{
		out:      out,
		msg:      msg,
		interval: 500 * time.Millisecond,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run prints until Stop is called.
func (pp *ProgressPrinter) Run() {
	defer close(pp.done)

	ticker := time.NewTicker(pp.interval)
	defer ticker.Stop()

	dots := 0
	for {
		fmt.Fprintf(pp.out, "\r%s%s", pp.msg, strings.Repeat(".", dots))
		select {
		case <-ticker.C:
			dots = (dots + 1) % 4
			// Clear the dots from the previous iteration.
			fmt.Fprintf(pp.out, "\r%s   ", pp.msg)
		case <-pp.stop:
			fmt.Fprintln(pp.out)
			return
		}
	}
}

// Stop stops printing, and waits for the final newline to be written.
func (pp *ProgressPrinter) Stop() {
	close(pp.stop)
	<-pp.done
}

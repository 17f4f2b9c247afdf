package util

import (
	"fmt"
	"io"

	"github.com/buger/goterm"

	"github.com/sidkik/fikasync/pkg/errors"
	"github.com/sidkik/fikasync/pkg/sync"
)

func newTable() *goterm.Table {
	return goterm.NewTable(0, 10, 3, ' ', 0)
}

// PrintPullReport prints a table of what the pull pass did.
func PrintPullReport(out io.Writer, report sync.PullReport) {
	if len(report.Results) == 0 {
		fmt.Fprintln(out, "No profiles found locally or remotely.")
		return
	}

	table := newTable()
	fmt.Fprintln(table, "PROFILE\tSTATUS\tACTION")
	for _, res := range report.Results {
		fmt.Fprintf(table, "%s\t%s\t%s\n", res.Name, pullStatusColor(res.Status), res.Status.Action())
	}
	fmt.Fprint(out, table.String())

	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Fprintf(out, "%s: %s\n", res.Name, errors.GetPrintableMessage(res.Err))
		}
	}
}

func pullStatusColor(status sync.PullStatus) string {
	color := goterm.WHITE
	switch status {
	case sync.PullDownloaded, sync.PullUpdated:
		color = goterm.GREEN
	case sync.PullLocalNewer, sync.PullNewLocal:
		color = goterm.YELLOW
	case sync.PullFailed:
		color = goterm.RED
	}
	return goterm.Color(string(status), color)
}

// PrintPushReport prints a table of what the push pass did.
func PrintPushReport(out io.Writer, report sync.PushReport) {
	if report.NoLocal {
		fmt.Fprintln(out, "No local profiles to upload.")
		return
	}

	if !report.HasActivity() {
		fmt.Fprintln(out, "No changes to upload.")
		return
	}

	table := newTable()
	fmt.Fprintln(table, "PROFILE\tREASON\tRESULT")
	for _, res := range report.Results {
		fmt.Fprintf(table, "%s\t%s\t%s\n", res.Name, res.Reason, pushStatusColor(res.Status))
	}
	fmt.Fprint(out, table.String())

	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Fprintf(out, "%s: %s\n", res.Name, errors.GetPrintableMessage(res.Err))
		}
	}
}

func pushStatusColor(status sync.PushStatus) string {
	color := goterm.WHITE
	switch status {
	case sync.PushSent:
		color = goterm.GREEN
	case sync.PushRemoteNewer, sync.PushAlreadySynced:
		color = goterm.YELLOW
	case sync.PushFailed, sync.PushVerifyFailed:
		color = goterm.RED
	}
	return goterm.Color(string(status), color)
}

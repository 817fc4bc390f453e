package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/enri3l/aws-ts-sub005/internal/events"
)

func newEventsCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Show the audit log of diagnostics and repairs",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if cmdEvents(stdout, stderr) != 0 {
				return errExit
			}
			return nil
		},
	}
}

// cmdEvents is the CLI entry point for viewing the audit log.
func cmdEvents(stdout, stderr io.Writer) int {
	storageDir, err := resolveStorageDir()
	if err != nil {
		fmt.Fprintf(stderr, "awsts events: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	return doEvents(filepath.Join(storageDir, "events.jsonl"), stdout, stderr)
}

// doEvents reads and displays events from the log file. Accepts the path
// directly for testability.
func doEvents(path string, stdout, stderr io.Writer) int {
	evts, err := events.ReadAll(path)
	if err != nil {
		fmt.Fprintf(stderr, "awsts events: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	if len(evts) == 0 {
		fmt.Fprintln(stdout, "No events.") //nolint:errcheck // best-effort stdout
		return 0
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTYPE\tACTOR\tSUBJECT\tMESSAGE\tTIME") //nolint:errcheck // best-effort stdout
	for _, e := range evts {
		msg := e.Message
		if len(msg) > 40 {
			msg = msg[:37] + "..."
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", //nolint:errcheck // best-effort stdout
			e.Seq, e.Type, e.Actor, e.Subject, msg,
			e.Ts.Format("2006-01-02 15:04:05"),
		)
	}
	tw.Flush() //nolint:errcheck // best-effort stdout
	return 0
}

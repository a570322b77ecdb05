package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"docqa/internal/qa"
	"docqa/internal/transcript"
)

func newTranscriptCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "transcript SESSION_ID",
		Short: "Print the recorded asks and resets of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Transcript.Path == "" {
				return errors.New("transcript.path is not configured")
			}
			ts, err := transcript.Open(cfg.Transcript.Path)
			if err != nil {
				return err
			}
			defer ts.Close()

			entries, err := ts.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no entries for session %s\n", args[0])
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tKIND\tSOURCES\tQUESTION\tANSWER")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					e.CreatedAt.Local().Format(time.DateTime), e.Kind, e.Sources, oneLine(e.Question, 60), oneLine(e.Answer, 80))
			}
			return w.Flush()
		},
	}
}

// oneLine collapses whitespace and cuts s to n characters.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if t := qa.Truncate(s, n); t != s {
		return t + "..."
	}
	return s
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docqa/internal/domain"
	"docqa/internal/logging"
	"docqa/internal/session"
	"docqa/internal/tui"
)

func newChatCmd(load configLoader) *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "chat file1.pdf [file2.txt ...]",
		Short: "Index local documents and chat about them in the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			var out io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			log := logging.NewWithWriter(cfg.Log, out)

			docs, err := readDocuments(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, log, chatSessionOptions()...)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			res, err := a.svc.Upload(ctx, docs)
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}
			summaries := make([]string, 0, len(res.Documents))
			for _, d := range res.Documents {
				line := fmt.Sprintf("%s (%d passages)", d.Source, d.Passages)
				if d.Summary != "" {
					line += ": " + d.Summary
				}
				summaries = append(summaries, line)
			}

			m := tui.New(ctx, a.svc, res.SessionID, strings.Join(summaries, "\n"))
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file while the chat is open")
	return cmd
}

// chatSessionOptions keeps the single chat session alive for the whole
// process: no idle expiry, no capacity bound.
func chatSessionOptions() []session.Option {
	return []session.Option{session.WithTTL(0), session.WithMaxSessions(0)}
}

// readDocuments expands globs and reads every matching file.
func readDocuments(patterns []string) ([]domain.Document, error) {
	var docs []domain.Document
	for _, p := range patterns {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			data, err := os.ReadFile(m)
			if err != nil {
				return nil, err
			}
			docs = append(docs, domain.Document{Source: filepath.Base(m), Data: data})
		}
	}
	return docs, nil
}

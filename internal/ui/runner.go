package ui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"winter/internal/lint"
)

type lintOutcome struct {
	result *lint.Result
	err    error
}

// RunLint lints paths while rendering progress to out. The engine's own
// progress sink is replaced for the duration of the run.
func RunLint(ctx context.Context, out io.Writer, title string, engine *lint.Engine, paths []string) (*lint.Result, error) {
	events := make(chan lint.Event, 256)
	outcomeCh := make(chan lintOutcome, 1)

	go func() {
		res, err := engine.WithProgress(lint.ChannelSink{Ch: events}).LintFiles(ctx, paths)
		outcomeCh <- lintOutcome{result: res, err: err}
		close(events)
	}()

	program := tea.NewProgram(NewProgressModel(title, paths, events), tea.WithOutput(out), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// Ctrl+C завершает UI раньше линтера, канал нужно дочитать
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if outcome.err == nil && uiErr != nil && ctx.Err() == nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

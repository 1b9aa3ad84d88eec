package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/colelawrence/derive-codegen/internal/pipeline"
	"github.com/colelawrence/derive-codegen/internal/ui"
)

type runOutcome struct {
	result *pipeline.Result
	err    error
}

func runWithUI(ctx context.Context, title string, req *pipeline.Request) (*pipeline.Result, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	names := make([]string, 0, len(req.Targets))
	for _, t := range req.Targets {
		names = append(names, t.Name)
	}

	go func() {
		reqCopy := *req
		reqCopy.Progress = pipeline.ChannelSink{Ch: events}
		res, err := pipeline.Run(ctx, &reqCopy)
		outcomeCh <- runOutcome{result: res, err: err}
		close(events)
	}()

	program := tea.NewProgram(ui.NewProgressModel(title, names, events), tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

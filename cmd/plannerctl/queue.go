package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/prisken/client-crm-sub000/internal/store"
)

// PlanFlags selects the day and budget. Zero hours means the default budget.
type PlanFlags struct {
	Date  string  `help:"Plan for this date (YYYY-MM-DD), default today."`
	Hours float64 `short:"H" help:"Hours available for the day." default:"0"`
}

type QueueCmd struct {
	PlanFlags
}

func (c *QueueCmd) Run(app *App) error {
	date, err := parseDate(c.Date)
	if err != nil {
		return err
	}
	res, err := app.Service.BuildQueue(context.Background(), app.Agent, date, c.Hours)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.Out, renderQueue(app.Service.Engine().Params(), res))
	return nil
}

// WhatIfCmd previews a change. With --task the stored task is the starting
// point and only the flags given override it; negative values mean unchanged.
type WhatIfCmd struct {
	PlanFlags
	Task        string  `short:"t" help:"Existing task id or prefix to modify."`
	Title       string  `help:"Title for the previewed task."`
	Due         string  `short:"d" help:"Due date (YYYY-MM-DD)."`
	Priority    int     `short:"p" help:"Priority." default:"-1"`
	Effort      float64 `short:"e" help:"Effort in hours." default:"-1"`
	Commission  string  `short:"c" help:"Estimated commission."`
	Probability float64 `help:"Probability (0-1)." default:"-1"`
}

func (c *WhatIfCmd) modified(ctx context.Context, app *App) (*store.Task, error) {
	task := &store.Task{ID: uuid.New(), AgentID: app.Agent, Status: store.StatusOpen, Title: "what-if", Probability: 1}
	if c.Task != "" {
		existing, err := resolveTask(ctx, app, c.Task)
		if err != nil {
			return nil, err
		}
		cp := *existing
		task = &cp
	}

	if c.Title != "" {
		task.Title = c.Title
	}
	if c.Due != "" {
		due, err := parseDate(c.Due)
		if err != nil {
			return nil, err
		}
		task.DueDate = &due
	}
	if c.Priority >= 0 {
		task.Priority = c.Priority
	}
	if c.Effort >= 0 {
		task.EffortHours = c.Effort
	}
	if c.Probability >= 0 {
		task.Probability = c.Probability
	}
	if c.Commission != "" {
		amount, err := parseAmount(c.Commission)
		if err != nil {
			return nil, err
		}
		task.EstimatedCommission = amount
	}
	return task, nil
}

func (c *WhatIfCmd) Run(app *App) error {
	ctx := context.Background()
	date, err := parseDate(c.Date)
	if err != nil {
		return err
	}
	task, err := c.modified(ctx, app)
	if err != nil {
		return err
	}
	res, err := app.Service.WhatIf(ctx, app.Agent, task, date, c.Hours)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.Out, renderQueue(app.Service.Engine().Params(), res))
	return nil
}

type MetricsCmd struct {
	PlanFlags
}

func (c *MetricsCmd) Run(app *App) error {
	date, err := parseDate(c.Date)
	if err != nil {
		return err
	}
	summary, _, err := app.Service.Metrics(context.Background(), app.Agent, date, c.Hours)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.Out, renderSummary(summary))
	return nil
}

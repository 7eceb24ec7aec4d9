package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prisken/client-crm-sub000/internal/store"
)

const dateLayout = "2006-01-02"

// parseDate reads YYYY-MM-DD as local midnight. Empty means unset.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return t, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// resolveTask finds an open task by full id or unique id prefix.
func resolveTask(ctx context.Context, app *App, ref string) (*store.Task, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return app.Service.GetTask(ctx, app.Agent, id)
	}
	tasks, err := app.Service.ListOpenTasks(ctx, app.Agent)
	if err != nil {
		return nil, err
	}
	var match *store.Task
	for _, t := range tasks {
		if strings.HasPrefix(t.ID.String(), ref) {
			if match != nil {
				return nil, fmt.Errorf("task id prefix %q is ambiguous", ref)
			}
			match = t
		}
	}
	if match == nil {
		return nil, fmt.Errorf("task %q: %w", ref, store.ErrNotFound)
	}
	return match, nil
}

type TaskAddCmd struct {
	Title       string  `arg:"" help:"Task title."`
	Due         string  `short:"d" help:"Due date (YYYY-MM-DD). Undated tasks are planned as due today."`
	Priority    int     `short:"p" help:"Priority, higher is more urgent." default:"0"`
	Hours       float64 `short:"H" help:"Estimated effort in hours." default:"1"`
	Commission  string  `short:"c" help:"Estimated commission." default:"0"`
	Probability float64 `help:"Probability the commission is realized (0-1)." default:"1"`
	Notes       string  `short:"n" help:"Free-form notes."`
}

func (c *TaskAddCmd) Run(app *App) error {
	task := &store.Task{
		Title:       c.Title,
		Notes:       c.Notes,
		Priority:    c.Priority,
		EffortHours: c.Hours,
		Probability: c.Probability,
	}
	due, err := parseDate(c.Due)
	if err != nil {
		return err
	}
	if !due.IsZero() {
		task.DueDate = &due
	}
	if task.EstimatedCommission, err = parseAmount(c.Commission); err != nil {
		return err
	}

	if err := app.Service.CreateTask(context.Background(), app.Agent, task); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Added task %s (%s)\n", shortID(task.ID), task.Title)
	return nil
}

type TaskListCmd struct{}

func (c *TaskListCmd) Run(app *App) error {
	tasks, err := app.Service.ListOpenTasks(context.Background(), app.Agent)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(app.Out, "No open tasks.")
		return nil
	}
	fmt.Fprintln(app.Out, renderTasks(tasks))
	return nil
}

type TaskDoneCmd struct {
	ID     string `arg:"" help:"Task id or unique id prefix."`
	Earned string `short:"e" help:"Commission earned, credited to this month's target."`
}

func (c *TaskDoneCmd) Run(app *App) error {
	ctx := context.Background()
	task, err := resolveTask(ctx, app, c.ID)
	if err != nil {
		return err
	}
	earned, err := parseAmount(c.Earned)
	if err != nil {
		return err
	}
	if _, err := app.Service.CompleteTask(ctx, app.Agent, task.ID, earned); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Completed %s (%s)\n", shortID(task.ID), task.Title)
	return nil
}

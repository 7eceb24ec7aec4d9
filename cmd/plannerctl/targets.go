package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prisken/client-crm-sub000/internal/store"
)

type TargetSetCmd struct {
	Month  string `arg:"" help:"Month (YYYY-MM)."`
	Target string `arg:"" help:"Commission target for the month."`
	Earned string `short:"e" help:"Commission earned so far." default:"0"`
}

func (c *TargetSetCmd) Run(app *App) error {
	target, err := parseAmount(c.Target)
	if err != nil {
		return err
	}
	earned, err := parseAmount(c.Earned)
	if err != nil {
		return err
	}
	ct := &store.CommissionTarget{AgentID: app.Agent, Month: c.Month, Target: target, Earned: earned}
	if err := app.Service.SetTarget(context.Background(), ct); err != nil {
		return err
	}
	fmt.Fprintln(app.Out, renderTarget(ct))
	return nil
}

type TargetShowCmd struct {
	Month string `arg:"" optional:"" help:"Month (YYYY-MM), default this month."`
}

func (c *TargetShowCmd) Run(app *App) error {
	month := c.Month
	if month == "" {
		month = store.MonthKey(time.Now())
	}
	ct, err := app.Service.GetTarget(context.Background(), app.Agent, month)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.Out, renderTarget(ct))
	return nil
}

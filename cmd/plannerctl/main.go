package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/prisken/client-crm-sub000/internal/logger"
	"github.com/prisken/client-crm-sub000/internal/optimizer"
	"github.com/prisken/client-crm-sub000/internal/planner"
	"github.com/prisken/client-crm-sub000/internal/store"
)

type CLI struct {
	DB    string `help:"Path to the local SQLite database." type:"path" default:"~/.config/planner/planner.db"`
	Debug bool   `help:"Log to stderr as well as the log file."`
	Agent string `short:"a" help:"Agent whose tasks are planned." env:"PLANNER_AGENT" default:"me"`

	Task struct {
		Add  TaskAddCmd  `cmd:"" help:"Add an open task."`
		List TaskListCmd `cmd:"" help:"List open tasks."`
		Done TaskDoneCmd `cmd:"" help:"Complete a task."`
	} `cmd:"" help:"Manage tasks."`
	Target struct {
		Set  TargetSetCmd  `cmd:"" help:"Set the commission target for a month."`
		Show TargetShowCmd `cmd:"" help:"Show the commission target for a month."`
	} `cmd:"" help:"Manage commission targets."`
	Queue   QueueCmd   `cmd:"" help:"Build today's task queue."`
	WhatIf  WhatIfCmd  `cmd:"" name:"what-if" help:"Preview the queue with one task added or changed."`
	Metrics MetricsCmd `cmd:"" help:"Show expected commission and efficiency for the queue."`
}

// App is bound into every command's Run method.
type App struct {
	Service *planner.Service
	Agent   string
	Out     io.Writer
}

func run(args []string, out io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("plannerctl"),
		kong.Description("Daily commission-driven task planner"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Writers(out, os.Stderr),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{Debug: cli.Debug, ConfigDir: filepath.Dir(cli.DB)}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx := context.Background()
	db, err := store.OpenSQLiteStore(ctx, cli.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Debug("opened database", "path", db.Path(), "agent", cli.Agent)

	svc := planner.NewService(db, nil, optimizer.New(optimizer.DefaultParams()), logger.Slog())
	return kctx.Run(&App{Service: svc, Agent: cli.Agent, Out: out})
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		logger.Error("command failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

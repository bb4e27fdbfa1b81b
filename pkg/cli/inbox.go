package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/MMzeidan/zeidan-chat/pkg/adapter"
	"github.com/MMzeidan/zeidan-chat/pkg/model"
)

func inboxCommand() *cli.Command {
	return &cli.Command{
		Name:  "inbox",
		Usage: "Triage escalated questions",
		Commands: []*cli.Command{
			inboxListCommand(),
			inboxRemoveCommand(),
			inboxExportCommand(),
		},
	}
}

func inboxListCommand() *cli.Command {
	var (
		cfg   config
		admin adminConfig
	)

	flags := append(globalFlags(&cfg), adminFlags(&admin)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List escalated questions, most recent first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			console, cleanup, err := openConsole(ctx, &cfg, &admin)
			if err != nil {
				return err
			}
			defer cleanup()

			printEscalations(c.Root().Writer, console.Escalations())
			return nil
		},
	}
}

func printEscalations(w io.Writer, items []*model.Escalation) {
	if len(items) == 0 {
		fmt.Fprintln(w, "inbox is empty")
		return
	}
	for _, esc := range items {
		fmt.Fprintf(w, "%s  [%s]  %s\n", esc.ID, esc.Status, esc.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "  %s\n", esc.Question)
	}
}

func inboxRemoveCommand() *cli.Command {
	var (
		cfg   config
		admin adminConfig
		id    string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Escalation ID to delete",
			Required:    true,
			Destination: &id,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, adminFlags(&admin)...)

	return &cli.Command{
		Name:  "rm",
		Usage: "Delete a triaged question",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			console, cleanup, err := openConsole(ctx, &cfg, &admin)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := console.DeleteEscalation(ctx, model.EscalationID(id)); err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, "deleted")
			return nil
		},
	}
}

func inboxExportCommand() *cli.Command {
	var (
		cfg     config
		admin   adminConfig
		dataset string
		table   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "dataset",
			Usage:       "BigQuery dataset for the export",
			Value:       "zeidan_chat",
			Sources:     cli.EnvVars("ZEIDAN_EXPORT_DATASET"),
			Destination: &dataset,
		},
		&cli.StringFlag{
			Name:        "table",
			Usage:       "BigQuery table for the export",
			Value:       "escalations",
			Sources:     cli.EnvVars("ZEIDAN_EXPORT_TABLE"),
			Destination: &table,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, adminFlags(&admin)...)

	return &cli.Command{
		Name:  "export",
		Usage: "Export escalated questions to BigQuery for offline review",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			if cfg.project == "" {
				return goerr.New("project is required")
			}

			console, cleanup, err := openConsole(ctx, &cfg, &admin)
			if err != nil {
				return err
			}
			defer cleanup()

			items := console.Escalations()
			if len(items) == 0 {
				fmt.Fprintln(c.Root().Writer, "inbox is empty, nothing to export")
				return nil
			}

			bq, err := adapter.NewBigQuery(ctx, cfg.project, adapter.WithTable(dataset, table))
			if err != nil {
				return err
			}

			rows := make([]model.Escalation, 0, len(items))
			for _, esc := range items {
				rows = append(rows, *esc)
			}
			if err := bq.ExportEscalations(ctx, rows); err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "exported %d escalations\n", len(rows))
			return nil
		},
	}
}

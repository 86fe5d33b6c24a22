// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/journal"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/paperless"
)

var errJournalDisabled = errors.New("the change journal is disabled ([journal] path is empty)")

func (a *cli) historyCommand() *cobra.Command {
	var (
		filter   journal.Filter
		document int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show changes applied by previous runs",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if filter.Limit < 1 {
				return usageErrorf("--limit must be at least 1, got %d", filter.Limit)
			}
			if document > 0 {
				filter.ObjectType = string(paperless.ObjectDocument)
				filter.ObjectID = document
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			j, err := journal.Open(ctx, cfg.Journal.Path)
			if err != nil {
				return err
			}
			if j == nil {
				return errJournalDisabled
			}
			defer func() { _ = j.Close() }()

			changes, err := j.List(ctx, filter)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tRUN\tTASK\tOBJECT\tCHANGE")
			for _, c := range changes {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s/%d\t%s\n",
					c.At.Local().Format(time.DateTime), shortRunID(c.RunID), c.Task, c.ObjectType, c.ObjectID, c.Summary)
			}
			return tw.Flush()
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&filter.Limit, "limit", journal.DefaultLimit, "maximum number of changes shown")
	flags.IntVar(&document, "document", 0, "only show changes to this document id")
	flags.StringVar(&filter.RunID, "run", "", "only show changes made by this run id")
	return cmd
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

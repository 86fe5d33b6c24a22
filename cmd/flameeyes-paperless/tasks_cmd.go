// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/automation"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/log"
)

func (a *cli) ensureSetupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   automation.TaskEnsureSetup,
		Short: "Normalise ownership and permissions, create predefined tags and custom fields",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTask(cmd, automation.TaskEnsureSetup, func(ctx context.Context, r *automation.Runner) error {
				report, err := r.EnsureSetup(ctx)
				if err != nil {
					return err
				}
				logger := log.WithComponentFromContext(ctx, "cli")
				logger.Info().
					Int("needs_fix", report.NeedsFix).
					Int("fixed", report.Fixed).
					Strs("missing", report.Missing).
					Strs("created", report.Created).
					Msg("setup checked")
				return nil
			})
		},
	}
}

// documentIDs resolves DOCUMENT arguments against the configured URL.
func (a *cli) documentIDs(args []string) ([]int, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return automation.NewDocumentRefParser(cfg.URL).ParseAll(args)
}

func (a *cli) identifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   automation.TaskIdentify + " DOCUMENT...",
		Short: "Identify documents given by id or URL",
		Long: "Identify documents given by id or URL and rewrite their title, created date,\n" +
			"correspondent, document type, custom fields and tags.",
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := a.documentIDs(args)
			if err != nil {
				return err
			}
			return a.runTask(cmd, automation.TaskIdentify, func(ctx context.Context, r *automation.Runner) error {
				summary, err := r.Identify(ctx, ids)
				logSummary(ctx, automation.TaskIdentify, summary)
				return err
			})
		},
	}
}

func (a *cli) identifyAllCommand() *cobra.Command {
	filter := automation.DefaultIdentifyFilter()
	cmd := &cobra.Command{
		Use:   automation.TaskIdentifyAll,
		Short: "Identify every matching PDF document",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if filter.Jobs < 1 {
				return usageErrorf("--jobs must be at least 1, got %d", filter.Jobs)
			}
			return a.runTask(cmd, automation.TaskIdentifyAll, func(ctx context.Context, r *automation.Runner) error {
				summary, err := r.IdentifyAll(ctx, filter)
				logSummary(ctx, automation.TaskIdentifyAll, summary)
				return err
			})
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&filter.ExcludeIdentified, "exclude-identified", filter.ExcludeIdentified, "skip documents already tagged as identified")
	flags.BoolVar(&filter.ExcludeScanned, "exclude-scanned", filter.ExcludeScanned, "skip documents tagged as scanned")
	flags.BoolVar(&filter.OnlyInbox, "only-inbox", filter.OnlyInbox, "only consider documents tagged with the inbox tag")
	flags.IntVar(&filter.Jobs, "jobs", filter.Jobs, "number of documents processed concurrently")
	return cmd
}

func (a *cli) sortScannedCommand() *cobra.Command {
	onlyInbox := true
	cmd := &cobra.Command{
		Use:   automation.TaskSortScanned,
		Short: "Tag documents produced by scanning software and move them to the scanned storage path",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTask(cmd, automation.TaskSortScanned, func(ctx context.Context, r *automation.Runner) error {
				summary, err := r.SortScanned(ctx, onlyInbox)
				logSummary(ctx, automation.TaskSortScanned, summary)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&onlyInbox, "only-inbox", onlyInbox, "only consider documents tagged with the inbox tag")
	return cmd
}

func (a *cli) downloadCommand() *cobra.Command {
	var opts automation.DownloadOptions
	cmd := &cobra.Command{
		Use:   automation.TaskDownload + " DOCUMENT...",
		Short: "Download documents given by id or URL",
		Long: "Download documents given by id or URL as <output-dir>/<id><ext>.\n" +
			"The original file is saved unless --archived is given.",
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := a.documentIDs(args)
			if err != nil {
				return err
			}
			return a.runTask(cmd, automation.TaskDownload, func(ctx context.Context, r *automation.Runner) error {
				paths, err := r.Download(ctx, ids, opts)
				if len(paths) > 0 {
					fmt.Fprintln(a.stdout, strings.Join(paths, "\n"))
				}
				return err
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.Dir, "output-dir", "o", ".", "directory the files are written to")
	flags.BoolVar(&opts.Archived, "archived", false, "download the archived version instead of the original")
	flags.BoolVar(&opts.Overwrite, "force", false, "overwrite existing files")
	return cmd
}

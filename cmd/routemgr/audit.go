package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/routemanager/audit"
)

var auditOpts struct {
	base     string
	compare  string
	workers  int
	maxPages int
	out      string
	store    bool
}

var auditCmd = &cobra.Command{
	Use:   "audit [paths...]",
	Short: "Crawl the site and record status, timing and SEO data per page",
	Long: `Crawls the site at --base starting from the root and any given paths,
following internal links breadth first. Results are stored as a new audit
batch and optionally written to --out as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if auditOpts.base == "" {
			return fmt.Errorf("--base is required")
		}
		opts := []audit.ProberOption{
			audit.WithWorkers(auditOpts.workers),
			audit.WithMaxPages(auditOpts.maxPages),
			audit.WithLogger(logger.Named("audit")),
		}
		if auditOpts.compare != "" {
			opts = append(opts, audit.WithCompareBase(auditOpts.compare))
		}
		p, err := audit.NewProber(auditOpts.base, opts...)
		if err != nil {
			return err
		}

		pages, err := p.Crawl(ctx, args)
		if err != nil {
			return err
		}
		logger.Info("crawl finished", zap.Int("pages", len(pages)))

		if auditOpts.out != "" {
			data, err := json.MarshalIndent(pages, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(auditOpts.out, data, 0o644); err != nil {
				return err
			}
		}
		if !auditOpts.store {
			return nil
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		batch, err := audit.Store(ctx, pages, a.Store, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "batch %s: %d pages, %d stored, %d skipped\n",
			batch.ID, batch.Pages, batch.Stored, batch.Skipped)
		return nil
	},
}

func init() {
	f := auditCmd.Flags()
	f.StringVar(&auditOpts.base, "base", "", "base URL of the site to crawl")
	f.StringVar(&auditOpts.compare, "compare", "", "base URL of a live site to compare load times against")
	f.IntVar(&auditOpts.workers, "workers", 4, "concurrent page fetches")
	f.IntVar(&auditOpts.maxPages, "max-pages", 500, "stop after this many pages")
	f.StringVar(&auditOpts.out, "out", "", "also write the results to this JSON file")
	f.BoolVar(&auditOpts.store, "store", true, "store the results as a new audit batch")
}

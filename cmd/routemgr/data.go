package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/routemanager/audit"
	"github.com/eringen/routemanager/catalog"
)

var exportCmd = &cobra.Command{
	Use:   "export-csv [file]",
	Short: "Write every known route and its stored settings as CSV",
	Long:  `Writes the unfiltered route listing to file, or to stdout when file is "-" or omitted.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		policy, err := a.Store.Policy(ctx)
		if err != nil {
			return err
		}
		rows, err := a.Catalog.Rows(ctx, policy)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := catalog.ExportCSV(w, rows); err != nil {
			return err
		}
		logger.Info("exported routes", zap.Int("rows", len(rows)))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import-csv <file>",
	Short: "Upsert route settings from a CSV export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := catalog.ImportCSV(ctx, f, a.Store)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, e := range report.Errors {
			fmt.Fprintf(out, "rejected %s\n", e.Error())
		}
		fmt.Fprintf(out, "%d created, %d updated, %d skipped, %d rejected\n",
			report.Created, report.Updated, report.Skipped, len(report.Errors))
		return nil
	},
}

var importAuditCmd = &cobra.Command{
	Use:   "import-audit <file>",
	Short: "Store an audit result file as a new audit batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		batch, err := audit.Import(ctx, f, a.Store, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "batch %s: %d pages, %d stored, %d skipped\n",
			batch.ID, batch.Pages, batch.Stored, batch.Skipped)
		return nil
	},
}

var setDefaultCmd = &cobra.Command{
	Use:   "set-default <true|false>",
	Short: "Set whether routes without an override are public",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		public, err := strconv.ParseBool(args[0])
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[0], err)
		}
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Store.SetDefaultPublic(ctx, public); err != nil {
			return err
		}
		logger.Info("default access changed", zap.Bool("public", public))
		return nil
	},
}

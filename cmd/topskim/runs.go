package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/DickyChant/topskim/internal/db"
	"github.com/DickyChant/topskim/internal/output"
)

func newRunsCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored skim runs",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "topskim.db", "SQLite database path")

	withDB := func(fn func(cmd *cobra.Command, d *db.DB, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			d, err := db.NewDB(dbPath)
			if err != nil {
				return err
			}
			defer d.Close()
			return fn(cmd, d, args)
		}
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: withDB(func(cmd *cobra.Command, d *db.DB, _ []string) error {
			runs, err := d.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tREAD\tSELECTED\tINPUT")
			for _, r := range runs {
				started := time.Unix(0, r.StartedAt).UTC().Format(time.RFC3339)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", r.RunID, started, r.Status, r.EventsRead, r.EventsSelected, r.Input)
			}
			return tw.Flush()
		}),
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of runs (0 for all)")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withDB(func(cmd *cobra.Command, d *db.DB, args []string) error {
			r, err := d.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		}),
	}

	var recordsPath, yodaPath string
	export := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export the records or accumulators of a run",
		Args:  cobra.ExactArgs(1),
		RunE: withDB(func(cmd *cobra.Command, d *db.DB, args []string) error {
			ctx := cmd.Context()
			if recordsPath == "" && yodaPath == "" {
				return fmt.Errorf("nothing to export: set --records and/or --yoda")
			}
			if recordsPath != "" {
				recs, err := d.ListRecords(ctx, args[0])
				if err != nil {
					return err
				}
				w, err := output.Create(recordsPath)
				if err != nil {
					return err
				}
				for i := range recs {
					if err := w.WriteRecord(ctx, &recs[i]); err != nil {
						w.Close()
						return err
					}
				}
				if err := w.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", w.Count(), recordsPath)
			}
			if yodaPath != "" {
				agg, err := d.LoadAggregator(ctx, args[0])
				if err != nil {
					return err
				}
				if err := writeFile(yodaPath, agg.WriteYODA); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote accumulators to %s\n", yodaPath)
			}
			return nil
		}),
	}
	export.Flags().StringVar(&recordsPath, "records", "", "write the run's records to this JSON-lines file")
	export.Flags().StringVar(&yodaPath, "yoda", "", "write the run's accumulators as YODA to this path")

	del := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run with its records and accumulators",
		Args:  cobra.ExactArgs(1),
		RunE: withDB(func(cmd *cobra.Command, d *db.DB, args []string) error {
			return d.DeleteRun(cmd.Context(), args[0])
		}),
	}

	cmd.AddCommand(list, show, export, del)
	return cmd
}

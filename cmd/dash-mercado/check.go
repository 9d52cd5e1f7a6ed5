package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Pittuba/dash-mercado/internal/app"
	"github.com/Pittuba/dash-mercado/internal/config"
	"github.com/Pittuba/dash-mercado/internal/validation"
	"github.com/Pittuba/dash-mercado/internal/workbook"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

func (c *cli) checkCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load the workbook and summarise it",
		Long: `Loads the workbook exactly as the server would and prints each sheet's
shape together with category conflicts. Exits non-zero when the workbook
cannot be parsed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := c.stderrLogger(cmd)

			paths, err := config.ResolvePaths(c.cfg, "")
			if err != nil {
				return err
			}
			if err := paths.ValidateRequiredFiles(); err != nil {
				return err
			}
			if err := validation.NewFileValidator(logger).ValidateWorkbook(paths.WorkbookPath); err != nil {
				return err
			}

			store, err := app.LoadStore(cmd.Context(), c.cfg, paths, nil, logger)
			if err != nil {
				var parseErr *workbook.ParseError
				if errors.As(err, &parseErr) {
					return fmt.Errorf("workbook invalid: %w", parseErr)
				}
				return err
			}

			info := store.Current().Info()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			return printSummary(cmd.OutOrStdout(), info)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func printSummary(out io.Writer, info domain.DatasetInfo) error {
	fmt.Fprintf(out, "Workbook: %s\n", info.Source)
	fmt.Fprintf(out, "Loaded:   %s\n\n", info.LoadedAt.Format(time.RFC3339))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SHEET\tROWS\tINSTRUMENTS\tFIRST\tLAST")
	for _, s := range info.Sheets {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", s.Sheet, s.Rows, len(s.Instruments), day(s.First), day(s.Last))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(info.Conflicts) == 0 {
		fmt.Fprintln(out, "\nNo category conflicts")
		return nil
	}
	fmt.Fprintf(out, "\nCategory conflicts (%d):\n", len(info.Conflicts))
	for _, c := range info.Conflicts {
		fmt.Fprintf(out, "  %s: %s redefined from %q to %q\n", c.Table, c.Instrument, c.Previous, c.Current)
	}
	return nil
}

func day(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

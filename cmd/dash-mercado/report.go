package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Pittuba/dash-mercado/internal/app"
	"github.com/Pittuba/dash-mercado/internal/config"
	apierrors "github.com/Pittuba/dash-mercado/internal/errors"
	"github.com/Pittuba/dash-mercado/internal/exporter"
	"github.com/Pittuba/dash-mercado/internal/files"
	"github.com/Pittuba/dash-mercado/internal/middleware"
	"github.com/Pittuba/dash-mercado/internal/services"
	api "github.com/Pittuba/dash-mercado/pkg/contracts/api/v1"
)

func (c *cli) reportCmd() *cobra.Command {
	var (
		req    api.ReportRequest
		output string
		save   bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the monthly report",
		Long: `Computes the return, volatility, inflation and bond rate tables of one
reference month and writes them as markdown (default) or CSV.`,
		Example: `  dash-mercado report --year 2024 --month 3
  dash-mercado report --year 2024 --month 3 --category "Renda Fixa" --format csv --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := c.stderrLogger(cmd)

			if err := middleware.NewValidationMiddleware(logger, nil).ValidateStruct(req); err != nil {
				return fmt.Errorf("invalid report options: %s", describeValidation(err))
			}

			paths, err := config.ResolvePaths(c.cfg, "")
			if err != nil {
				return err
			}
			store, err := app.LoadStore(cmd.Context(), c.cfg, paths, nil, logger)
			if err != nil {
				return err
			}

			report, err := services.NewIndicatorService(store, logger).MonthlyReport(cmd.Context(), req)
			if err != nil {
				return err
			}

			if save {
				output = paths.GetMonthlyReportPath(req.Year, req.Month, req.Format)
			}
			if output == "" || output == "-" {
				return exporter.WriteReport(cmd.OutOrStdout(), report, req.Format)
			}

			if err := files.NewManager(paths, logger).WriteAtomic(output, func(w io.Writer) error {
				return exporter.WriteReport(w, report, req.Format)
			}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().IntVar(&req.Year, "year", 0, "reference year")
	cmd.Flags().IntVar(&req.Month, "month", 0, "reference month (1-12)")
	cmd.Flags().StringVar(&req.Category, "category", "", "restrict to one category")
	cmd.Flags().IntVar(&req.Window, "window", 0, "rates window in months (3, 6, 12, 24 or 36)")
	cmd.Flags().StringVar(&req.Format, "format", "markdown", "output format (markdown or csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&save, "save", false, "write into the configured reports directory")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("month")
	cmd.MarkFlagsMutuallyExclusive("output", "save")

	return cmd
}

// describeValidation lists the offending flags of a validation failure
func describeValidation(err error) string {
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	details, ok := apiErr.Details.(apierrors.ValidationErrors)
	if !ok || len(details.Errors) == 0 {
		return apiErr.Message
	}
	msgs := make([]string, 0, len(details.Errors))
	for _, fe := range details.Errors {
		msgs = append(msgs, fmt.Sprintf("--%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

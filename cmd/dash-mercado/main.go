// Command dash-mercado serves market indicators computed from the
// indicator workbook and exports monthly reports from the command line.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Pittuba/dash-mercado/internal/app"
	"github.com/Pittuba/dash-mercado/internal/config"
	"github.com/Pittuba/dash-mercado/internal/infrastructure"
	"github.com/Pittuba/dash-mercado/pkg/contracts"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// cli carries the state shared by every subcommand
type cli struct {
	configFile string
	logLevel   string
	workbook   string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "dash-mercado",
		Short: "Market indicators from the indicator workbook",
		Long: `dash-mercado reads the indicator workbook (returns, volatility, inflation,
bond rates and duration sheets) and serves windowed returns, risk, inflation
chains and rankings over HTTP. Without a subcommand it runs the server.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.loadConfig,
		RunE:              c.runServe,
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file path (default: $MERCADO_CONFIG_FILE or ./config.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&c.workbook, "workbook", "", "workbook path override")

	root.AddCommand(c.serveCmd())
	root.AddCommand(c.reportCmd())
	root.AddCommand(c.checkCmd())
	root.AddCommand(versionCmd())
	return root
}

func (c *cli) loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	if c.configFile != "" {
		c.cfg, err = config.LoadFile(c.configFile)
	} else {
		c.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if c.logLevel != "" {
		c.cfg.Logging.Level = c.logLevel
	}
	if c.workbook != "" {
		c.cfg.Data.WorkbookPath = c.workbook
	}
	return nil
}

// stderrLogger keeps stdout free for command output
func (c *cli) stderrLogger(cmd *cobra.Command) *slog.Logger {
	return infrastructure.NewLogger(cmd.ErrOrStderr(), c.cfg.Logging)
}

func (c *cli) serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				c.cfg.Server.Port = port
			}
			return c.runServe(cmd, args)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port override")
	return cmd
}

func (c *cli) runServe(cmd *cobra.Command, _ []string) error {
	logger, err := infrastructure.InitializeLogger(c.cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	application, err := app.NewApplication(cmd.Context(), c.cfg, logger, app.Options{})
	if err != nil {
		logger.Error("Failed to initialize application", slog.String("error", err.Error()))
		return err
	}
	if err := application.Run(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// The version needs no configuration
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", app.AppName, app.VERSION)
			fmt.Fprintf(out, "  build: %s\n", app.BuildID)
			fmt.Fprintf(out, "  built: %s\n", app.BuildTime)
			fmt.Fprintf(out, "  %s\n", contracts.GetFullVersionString())
		},
	}
}

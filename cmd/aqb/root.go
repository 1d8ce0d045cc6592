package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/j-veylop/ai-quota-bar/internal/app"
	"github.com/j-veylop/ai-quota-bar/internal/config"
	"github.com/j-veylop/ai-quota-bar/internal/logger"
	"github.com/j-veylop/ai-quota-bar/internal/services"
	"github.com/j-veylop/ai-quota-bar/internal/ui/tabs/dashboard"
	"github.com/j-veylop/ai-quota-bar/internal/ui/tabs/history"
	"github.com/j-veylop/ai-quota-bar/internal/ui/tabs/info"
	"github.com/j-veylop/ai-quota-bar/internal/version"
)

var rootFlags struct {
	logLevel    string
	metricsAddr string
}

var rootCmd = &cobra.Command{
	Use:   "aqb",
	Short: "AI Quota Bar - usage limits of AI providers at a glance",
	Long: `AI Quota Bar polls the usage endpoints of AI providers, shows every limit
with its burn rate and projected time to limit, raises desktop alerts and
keeps a daily history of usage.

Keyboard Shortcuts:
  1-3             Switch between tabs (Dashboard, History, Info)
  Tab/Shift+Tab   Navigate between tabs
  j/k, Up/Down    Select a limit
  w/p/x           Toggle warning, pacing and reset alerts of the provider
  t               Change the history range
  r               Poll providers now
  ?               Toggle help
  q, Ctrl+C       Quit

Environment Variables:
  AQB_SETTINGS_PATH      Provider and threshold settings (YAML)
  AQB_DATABASE_PATH      SQLite sample log and daily stats
  AQB_HISTORY_PATH       Trend series file
  AQB_REFRESH_INTERVAL   Polling interval (default 5m, 1m to 15m)
  AQB_ROLLUP_SCHEDULE    Cron schedule of the daily rollup (default @hourly)
  AQB_METRICS_ADDR       Address of the status and metrics server
  AQB_LOG_PATH           Log file
  AQB_LOG_LEVEL          debug, info, warn or error`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDashboard,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&rootFlags.metricsAddr, "metrics-addr", "", "override status server address, e.g. 127.0.0.1:9464")
}

// loadConfig loads configuration, applies flag overrides and sets up logging.
func loadConfig() (*config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	if rootFlags.metricsAddr != "" {
		cfg.MetricsAddr = rootFlags.metricsAddr
	}

	closer, err := logger.Setup(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	cleanup := func() {
		if err := closer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing log: %v\n", err)
		}
	}
	return cfg, cleanup, nil
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, cleanup, err := loadConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("starting", "version", version.Info())

	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	model := app.NewModel(svcManager)
	state := model.GetState()
	model.SetTabs([]app.Tab{
		dashboard.New(state),
		history.New(state, svcManager),
		info.New(state, svcManager, cfg),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		<-sigChan
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

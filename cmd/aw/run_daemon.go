package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boshu2/agentwatch/cli/internal/orchestrator"
	"github.com/boshu2/agentwatch/cli/internal/watchdog"
)

var (
	daemonInterval    int
	daemonReviewHour  int
	daemonHTTP        string
	daemonGatewayPort int
	daemonRestartCmd  string
)

var runDaemonCmd = &cobra.Command{
	Use:   "run-daemon",
	Short: "Run the monitor as a long-lived daemon",
	Long: `Run idle checks on an interval and one daily review per day at the
configured hour. SIGINT and SIGTERM trigger a clean shutdown: the
in-flight cycle finishes, state is persisted, and the process exits.

With --http, an observability endpoint serves /healthz, /status, and
Prometheus /metrics.

Examples:
  aw run-daemon
  aw run-daemon --interval 7200 --review-hour 23
  aw run-daemon --http :9090 --gateway-port 31415 --restart-cmd "systemctl --user restart gateway"`,
	RunE: runRunDaemon,
}

func init() {
	runDaemonCmd.Flags().IntVar(&daemonInterval, "interval", 0, "Idle check interval in seconds (default: from config)")
	runDaemonCmd.Flags().IntVar(&daemonReviewHour, "review-hour", -1, "Hour of day for the daily review (default: from config)")
	runDaemonCmd.Flags().StringVar(&daemonHTTP, "http", "", "Serve /healthz, /status, and /metrics on this address")
	runDaemonCmd.Flags().IntVar(&daemonGatewayPort, "gateway-port", 0, "Probe this gateway port each idle check")
	runDaemonCmd.Flags().StringVar(&daemonRestartCmd, "restart-cmd", "", "Command to restart a down gateway")
	rootCmd.AddCommand(runDaemonCmd)
}

func runRunDaemon(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	metrics := orchestrator.NewMetrics(reg)

	opts := []orchestrator.Option{orchestrator.WithMetrics(metrics)}
	if daemonGatewayPort > 0 {
		dog := watchdog.New(
			&watchdog.CommandRestarter{Command: strings.Fields(daemonRestartCmd)},
			watchdog.WithPort(daemonGatewayPort))
		opts = append(opts, orchestrator.WithWatchdog(dog))
	}

	o, cfg, logger, err := newOrchestrator(opts...)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if daemonHTTP != "" {
		srv := &http.Server{
			Addr:              daemonHTTP,
			Handler:           o.HTTPHandler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if serr := srv.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
				logger.Error("http server failed", zap.Error(serr))
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	interval := cfg.MonitoringInterval
	if daemonInterval > 0 {
		interval = time.Duration(daemonInterval) * time.Second
	}

	err = o.RunDaemon(ctx, interval, daemonReviewHour)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

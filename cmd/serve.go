package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/joescharf/crev/internal/api"
	"github.com/joescharf/crev/internal/daemon"
	"github.com/joescharf/crev/internal/pipeline"
	"github.com/joescharf/crev/internal/store"
	webui "github.com/joescharf/crev/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local review service",
	Long: `Run the review service in the foreground.

The service accepts POST /review with {"code": "..."} and answers with
{"analysis", "issues", "report"}, produced by an analyze -> find issues ->
report pipeline on the Anthropic API. Reviews are stored in the local
history database. A browser page is served at /.

By default it listens on port 8000. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
		defer stop()
		return serveRun(ctx)
	},
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the review service in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStartRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background review service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background review service is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	serveCmd.PersistentFlags().IntP("port", "p", 8000, "port to listen on")
	_ = viper.BindPFlag("serve.port", serveCmd.PersistentFlags().Lookup("port"))

	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)
}

// pidFile returns the PID file tracking the background service.
func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "crev-serve.pid"))
}

// serveLogPath returns the log file used by the background service.
func serveLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "crev-serve.log")
}

func serveRun(ctx context.Context) error {
	completer, model := newLLMClient()
	if completer == nil {
		return fmt.Errorf("no Anthropic API key configured (set anthropic.api_key or ANTHROPIC_API_KEY)")
	}
	logger := newLogger(os.Stderr)

	var s store.Store
	if st, err := getStore(); err != nil {
		logger.Warn("review history disabled", "error", err)
	} else {
		s = st
		defer st.Close()
	}

	pf := pidFile()
	pid := os.Getpid()
	if err := pf.Acquire(pid); err != nil {
		return err
	}
	defer func() { _ = pf.Release(pid) }()

	page, err := webui.Handler()
	if err != nil {
		return fmt.Errorf("failed to initialize UI handler: %w", err)
	}
	srv := api.NewServer(pipeline.New(completer, logger), s, model, logger).WithUI(page)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", viper.GetInt("serve.port")),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("review service listening", "addr", httpSrv.Addr, "model", model)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func serveStartRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		return fmt.Errorf("review service is already running (PID %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	logPath := serveLogPath()
	if dryRun {
		ui.DryRunMsg("Would start %s serve on port %d (log: %s)", exe, viper.GetInt("serve.port"), logPath)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	args := []string{"serve", "--port", strconv.Itoa(viper.GetInt("serve.port"))}
	if cfg := viper.ConfigFileUsed(); cfg != "" {
		args = append(args, "--config", cfg)
	}
	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)

	if err := child.Start(); err != nil {
		return fmt.Errorf("start review service: %w", err)
	}
	if err := pf.WritePID(child.Process.Pid); err != nil {
		return err
	}
	_ = child.Process.Release()

	ui.Success("Review service started (PID %d) on port %d", child.Process.Pid, viper.GetInt("serve.port"))
	ui.Info("Log: %s", logPath)
	return nil
}

func serveStopRun() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pid, err := pidFile().Stop(ctx, 100*time.Millisecond)
	if err != nil {
		return err
	}
	ui.Success("Review service stopped (PID %d)", pid)
	return nil
}

func serveStatusRun() error {
	pid, running := pidFile().IsRunning()
	if !running {
		ui.Info("Review service: %s", "not running")
		return nil
	}
	ui.Success("Review service running (PID %d)", pid)
	ui.Info("Log: %s", serveLogPath())
	return nil
}

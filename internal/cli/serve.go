package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"skein/internal/gateway"
	"skein/internal/sweeper"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the debug gateway and maintenance scheduler",
		Long: `Start the HTTP gateway for telemetry inspection and live event
streaming, together with the scheduled telemetry sweeper. Runs until
interrupted.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cliCtx := GetCLIContext(cmd)
	cfg := cliCtx.Config

	if !cfg.Gateway.Enabled {
		return fmt.Errorf("gateway is disabled in config (gateway.enabled)")
	}

	eng, err := cliCtx.BuildEngine()
	if err != nil {
		return err
	}
	recorder, err := cliCtx.GetRecorder()
	if err != nil {
		return err
	}
	db, err := cliCtx.GetStorage()
	if err != nil {
		return err
	}

	server := gateway.NewServer(cfg.Gateway.Addr, recorder, eng)

	watcher, err := gateway.NewWatcher(server.Hub(), func(path string) {
		cliCtx.Log().Info().Str("path", path).Msg("config file changed, restart to apply")
	}, cliCtx.ConfigPath)
	if err != nil {
		cliCtx.Log().Warn().Err(err).Msg("config watcher unavailable")
	} else {
		server.SetWatcher(watcher)
	}

	sw, err := sweeper.New(cfg.Sweeper.Schedule, recorder, db)
	if err != nil {
		return err
	}
	sw.Start()
	defer sw.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		cliCtx.Log().Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowbaker/signalwatch/internal/config"
	"github.com/flowbaker/signalwatch/internal/controllers"
	"github.com/flowbaker/signalwatch/internal/initialization"
	"github.com/flowbaker/signalwatch/internal/scheduler"
	"github.com/flowbaker/signalwatch/internal/server"
	"github.com/flowbaker/signalwatch/internal/version"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the monitor on a schedule with an HTTP dispatch endpoint",
		Long: `Run the monitor in-process on the SCHEDULE cron spec (every five minutes by default) and serve
POST /dispatch for manual runs, GET /runs/last and GET /health on HTTP_ADDRESS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	return cmd
}

func runServe() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	log.Info().Str("version", version.GetVersion()).Msg("Starting signalwatch service")

	container, err := initialization.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeContainer(container)

	runner, err := container.BuildRunner(ctx)
	if err != nil {
		return err
	}

	sched, err := scheduler.NewScheduler(scheduler.SchedulerDependencies{
		Spec:   cfg.Schedule,
		Runner: runner,
	})
	if err != nil {
		return err
	}

	sched.Start(ctx)

	app := server.NewHTTPServer(server.HTTPServerDependencies{
		RunController: controllers.NewRunController(controllers.RunControllerDependencies{
			Dispatcher: runner,
		}),
	})

	log.Info().Str("address", cfg.HTTPAddress).Msg("HTTP server listening")

	if err := app.Listen(cfg.HTTPAddress, fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
	}); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()

	if err := sched.Stop(stopCtx); err != nil {
		log.Warn().Err(err).Msg("Scheduler did not stop cleanly")
	}

	runner.Wait()

	log.Info().Msg("signalwatch service stopped")

	return nil
}

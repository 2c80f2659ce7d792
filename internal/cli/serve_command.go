package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repoctx/internal/generation"
	"github.com/temirov/repoctx/internal/metrics"
	"github.com/temirov/repoctx/internal/services/api"
)

const generationDisabledMessage = "README generation disabled"

func createServeCommand(app *application) *cobra.Command {
	var address string

	serveCommand := &cobra.Command{
		Use:   serveUse,
		Short: serveShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			listenAddress := strings.TrimSpace(address)
			if !command.Flags().Changed(addressFlagName) && app.configuration.Serve.Address != "" {
				listenAddress = app.configuration.Serve.Address
			}
			settings, settingsErr := app.snapshotSettings()
			if settingsErr != nil {
				return settingsErr
			}
			collector := metrics.New()
			runner, buildErr := app.buildPipeline(settings, collector)
			if buildErr != nil {
				return buildErr
			}
			generator, generatorErr := app.serveGenerator()
			if generatorErr != nil {
				return generatorErr
			}

			server := api.NewServer(api.Config{
				Address:   listenAddress,
				Runner:    runner,
				Generator: generator,
				Metrics:   collector,
				Logger:    app.logger,
			})
			ctx, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, server, app.logger)
		},
	}
	serveCommand.Flags().StringVar(&address, addressFlagName, defaultServeAddress, addressFlagDescription)
	return serveCommand
}

// serveGenerator returns nil without a provider key so the API reports generation as unavailable.
func (app *application) serveGenerator() (api.ReadmeGenerator, error) {
	generator, buildErr := app.buildGenerator()
	if errors.Is(buildErr, generation.ErrMissingAPIKey) {
		app.logger.Warn(generationDisabledMessage, zap.Error(buildErr))
		return nil, nil
	}
	if buildErr != nil {
		return nil, buildErr
	}
	return generator, nil
}

type apiServer interface {
	Run(ctx context.Context, notify func(string)) error
	Capabilities() []api.Capability
}

func runServer(ctx context.Context, server apiServer, logger *zap.Logger) error {
	capabilities := server.Capabilities()
	names := make([]string, 0, len(capabilities))
	for _, capability := range capabilities {
		names = append(names, capability.Name)
	}
	return server.Run(ctx, func(address string) {
		logger.Info(serverListeningMessage, zap.String("address", address), zap.Strings("capabilities", names))
	})
}

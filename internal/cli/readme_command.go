package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/temirov/repoctx/internal/config"
	"github.com/temirov/repoctx/internal/generation"
	"github.com/temirov/repoctx/internal/progress"
	"github.com/temirov/repoctx/internal/services/clipboard"
	"github.com/temirov/repoctx/internal/types"
)

const (
	generatingMessageFormat = "Drafting README.md with %s..."
	documentSizeFormat      = "Context document: %d characters"
)

type readmeGenerator interface {
	Generate(ctx context.Context, document string) (string, error)
}

type readmeCommandOptions struct {
	Locator          string
	HTML             bool
	ClipboardEnabled bool
	Clipboard        clipboard.Copier
	Writer           io.Writer
	Runner           snapshotRunner
	Generator        readmeGenerator
	Model            string
	Progress         progress.Sink
}

func createReadmeCommand(app *application) *cobra.Command {
	var renderHTML bool
	var copyEnabled bool

	readmeCommand := &cobra.Command{
		Use:     readmeUse,
		Aliases: []string{readmeAlias},
		Short:   readmeShortDescription,
		Long:    readmeLongDescription,
		Example: readmeUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			settings, settingsErr := app.snapshotSettings()
			if settingsErr != nil {
				return settingsErr
			}
			runner, buildErr := app.buildPipeline(settings, nil)
			if buildErr != nil {
				return buildErr
			}
			generator, generatorErr := app.buildGenerator()
			if generatorErr != nil {
				return generatorErr
			}
			clipboardEnabled := copyEnabled
			if !command.Flags().Changed(copyFlagName) && app.configuration.Generate.Clipboard != nil {
				clipboardEnabled = *app.configuration.Generate.Clipboard
			}
			return runReadmeCommand(command.Context(), readmeCommandOptions{
				Locator:          arguments[0],
				HTML:             renderHTML,
				ClipboardEnabled: clipboardEnabled,
				Clipboard:        app.clipboard,
				Writer:           command.OutOrStdout(),
				Runner:           runner,
				Generator:        generator,
				Model:            generator.Model(),
				Progress:         progress.NewLoggerSink(app.logger),
			})
		},
	}
	registerBooleanFlag(readmeCommand.Flags(), &renderHTML, htmlFlagName, false, htmlFlagDescription)
	registerCopyFlag(readmeCommand.Flags(), &copyEnabled)
	return readmeCommand
}

// buildGenerator assembles the generation client from configuration. A missing credential
// is reported as generation.ErrMissingAPIKey.
func (app *application) buildGenerator() (*generation.Client, error) {
	settings := app.configuration.Generate
	timeout, timeoutErr := config.ParseDuration(settings.Timeout, 0)
	if timeoutErr != nil {
		return nil, fmt.Errorf(invalidTimeoutFormat, types.CommandReadme, timeoutErr)
	}
	apiKey, keyErr := newAPIKeyResolver(settings.APIKeyEnv, app.lookupEnv).Resolve()
	if keyErr != nil {
		return nil, keyErr
	}
	clientConfig := generation.Config{
		Endpoint:  settings.Endpoint,
		Model:     settings.Model,
		APIKey:    apiKey,
		Timeout:   timeout,
		Reasoning: settings.Reasoning == nil || *settings.Reasoning,
	}
	if settings.RatePerSecond != nil {
		clientConfig.RatePerSecond = *settings.RatePerSecond
	}
	return generation.NewClient(clientConfig, nil, app.logger), nil
}

// runReadmeCommand builds a snapshot, requests a README draft, and writes it as markdown or HTML.
func runReadmeCommand(ctx context.Context, options readmeCommandOptions) error {
	if options.ClipboardEnabled && options.Clipboard == nil {
		return errors.New(clipboardServiceMissingMessage)
	}
	outputWriter := options.Writer
	if outputWriter == nil {
		outputWriter = os.Stdout
	}
	sink := progress.OrDiscard(options.Progress)

	snapshot, runErr := options.Runner.Run(ctx, options.Locator, sink)
	if runErr != nil {
		return runErr
	}
	sink.Report(fmt.Sprintf(documentSizeFormat, len([]rune(snapshot.Document))))
	if options.Model != "" {
		sink.Report(fmt.Sprintf(generatingMessageFormat, options.Model))
	}
	markdown, generateErr := options.Generator.Generate(ctx, snapshot.Document)
	if generateErr != nil {
		return generateErr
	}
	rendered := markdown
	if options.HTML {
		html, renderErr := generation.RenderHTML(markdown)
		if renderErr != nil {
			return renderErr
		}
		rendered = html
	}

	var clipboardBuffer *bytes.Buffer
	if options.ClipboardEnabled {
		clipboardBuffer = &bytes.Buffer{}
		outputWriter = io.MultiWriter(outputWriter, clipboardBuffer)
	}
	if writeErr := writeWithTrailingNewline(outputWriter, rendered); writeErr != nil {
		return writeErr
	}
	if clipboardBuffer != nil {
		if copyErr := options.Clipboard.Copy(clipboardBuffer.String()); copyErr != nil {
			return fmt.Errorf(clipboardCopyErrorFormat, copyErr)
		}
	}
	return nil
}

// Package cli provides the repoctx command line interface.
package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repoctx/internal/config"
	"github.com/temirov/repoctx/internal/discovery"
	"github.com/temirov/repoctx/internal/fetch"
	"github.com/temirov/repoctx/internal/metrics"
	"github.com/temirov/repoctx/internal/pipeline"
	"github.com/temirov/repoctx/internal/selection"
	"github.com/temirov/repoctx/internal/services/clipboard"
	"github.com/temirov/repoctx/internal/tokenizer"
	"github.com/temirov/repoctx/internal/types"
	"github.com/temirov/repoctx/internal/utils"
)

const (
	versionFlagName       = "version"
	configFlagName        = "config"
	verboseFlagName       = "verbose"
	formatFlagName        = "format"
	tokensFlagName        = "tokens"
	modelFlagName         = "model"
	maxFilesFlagName      = "max-files"
	batchSizeFlagName     = "batch-size"
	explainFlagName       = "explain"
	htmlFlagName          = "html"
	addressFlagName       = "address"
	copyFlagName          = "copy"
	globalFlagName        = "global"
	forceFlagName         = "force"
	versionTemplate       = "repoctx version: %s\n"
	rootUse               = "repoctx"
	rootShortDescription  = "repoctx command line interface"
	rootLongDescription   = `repoctx builds a bounded, relevance-ranked text snapshot of a public GitHub repository.
The snapshot is meant to be pasted into a text-generation prompt. Use snapshot to print it,
readme to draft a README.md from it, and serve to expose both over HTTP.`
	snapshotUse              = "snapshot <repository-url>"
	readmeUse                = "readme <repository-url>"
	serveUse                 = "serve"
	configUse                = "config"
	configInitUse            = "init"
	snapshotAlias            = "s"
	readmeAlias              = "r"
	snapshotShortDescription = "print a repository context snapshot (" + snapshotAlias + ")"
	readmeShortDescription   = "draft a README.md from a repository snapshot (" + readmeAlias + ")"
	serveShortDescription    = "serve the snapshot API over HTTP"
	configShortDescription   = "manage repoctx configuration"
	configInitDescription    = "write the default configuration file"

	snapshotLongDescription = `Download the file tree of a public GitHub repository, rank its files,
fetch the most relevant ones, and print the context document.
Use --format to select raw, json, or xml output.`
	snapshotUsageExample = `  # Print the raw context document
  repoctx snapshot https://github.com/spf13/cobra

  # Emit a JSON manifest with token counts and copy it
  repoctx s https://github.com/spf13/cobra --format json --tokens --copy`
	readmeLongDescription = `Build a snapshot and ask an OpenAI-compatible chat endpoint to draft a README.md.
The API key is read from the environment variable named by generate.api_key_env.`
	readmeUsageExample = `  # Draft a README and render it as HTML
  repoctx readme https://github.com/spf13/cobra --html`

	versionFlagDescription   = "display application version"
	configFlagDescription    = "path to a configuration file"
	verboseFlagDescription   = "enable debug logging"
	formatFlagDescription    = "output format (raw, json, xml)"
	tokensFlagDescription    = "include token counts"
	modelFlagDescription     = "tokenizer model to use for token counting"
	maxFilesFlagDescription  = "maximum number of files to select"
	batchSizeFlagDescription = "number of concurrent downloads per batch"
	explainFlagDescription   = "print the score breakdown of every selected file to stderr"
	htmlFlagDescription      = "render the generated markdown as HTML"
	addressFlagDescription   = "listen address"
	copyFlagDescription      = "copy output to the clipboard"
	globalFlagDescription    = "write the global configuration file"
	forceFlagDescription     = "overwrite an existing configuration file"

	invalidFormatMessage           = "Invalid format value '%s'"
	invalidTimeoutFormat           = "%s.timeout: %w"
	clipboardServiceMissingMessage = "clipboard service is not configured"
	clipboardCopyErrorFormat       = "copy output to clipboard: %w"
	configurationWrittenFormat     = "Configuration written to %s\n"
	serverListeningMessage         = "snapshot API listening"
	defaultServeAddress            = "127.0.0.1:8080"
)

// isSupportedFormat reports whether the provided format is recognized.
func isSupportedFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON, types.FormatXML:
		return true
	default:
		return false
	}
}

// application carries state shared by every subcommand.
type application struct {
	logger           *zap.Logger
	configuration    config.ApplicationConfiguration
	configPath       string
	verbose          bool
	workingDirectory string
	clipboard        clipboard.Copier
	httpClient       *http.Client
	lookupEnv        func(string) string
}

// Execute runs the repoctx application.
func Execute(logger *zap.Logger) error {
	app := &application{
		logger:     logger,
		clipboard:  clipboard.NewService(),
		httpClient: &http.Client{},
		lookupEnv:  os.Getenv,
	}
	rootCommand := createRootCommand(app)
	rootCommand.SetArgs(normalizeCopyFlagArguments(normalizeBooleanFlagArguments(rootCommand, os.Args[1:])))
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand(app *application) *cobra.Command {
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
			return app.prepare()
		},
	}
	rootCommand.PersistentFlags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&app.configPath, configFlagName, "", configFlagDescription)
	registerBooleanFlag(rootCommand.PersistentFlags(), &app.verbose, verboseFlagName, false, verboseFlagDescription)
	rootCommand.AddCommand(
		createSnapshotCommand(app),
		createReadmeCommand(app),
		createServeCommand(app),
		createConfigCommand(app),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// prepare loads configuration and upgrades the logger when --verbose is set.
func (app *application) prepare() error {
	if app.logger == nil {
		app.logger = zap.NewNop()
	}
	if app.verbose {
		verboseLogger, loggerErr := utils.NewApplicationLogger(true)
		if loggerErr != nil {
			return fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerErr)
		}
		app.logger = verboseLogger
	}
	loaded, loadErr := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: app.workingDirectory,
		ExplicitFilePath: app.configPath,
	})
	if loadErr != nil {
		return loadErr
	}
	app.configuration = loaded
	return nil
}

// pipelineSettings are the effective snapshot options after flags and configuration are merged.
type pipelineSettings struct {
	maxFiles          int
	batchSize         int
	maxFileCharacters int
	timeout           time.Duration
	apiBase           string
	rawBase           string
	tokensEnabled     bool
	tokenModel        string
}

func (app *application) snapshotSettings() (pipelineSettings, error) {
	snapshot := app.configuration.Snapshot
	settings := pipelineSettings{
		maxFiles:          selection.DefaultMaxFiles,
		batchSize:         fetch.DefaultBatchSize,
		maxFileCharacters: fetch.DefaultMaxFileCharacters,
		apiBase:           snapshot.APIBase,
		rawBase:           snapshot.RawBase,
		tokenModel:        tokenizer.DefaultModel,
	}
	if snapshot.MaxFiles != nil {
		settings.maxFiles = *snapshot.MaxFiles
	}
	if snapshot.BatchSize != nil {
		settings.batchSize = *snapshot.BatchSize
	}
	if snapshot.MaxFileCharacters != nil {
		settings.maxFileCharacters = *snapshot.MaxFileCharacters
	}
	if snapshot.Tokens.Enabled != nil {
		settings.tokensEnabled = *snapshot.Tokens.Enabled
	}
	if model := strings.TrimSpace(snapshot.Tokens.Model); model != "" {
		settings.tokenModel = model
	}
	timeout, timeoutErr := config.ParseDuration(snapshot.Timeout, 0)
	if timeoutErr != nil {
		return pipelineSettings{}, fmt.Errorf(invalidTimeoutFormat, types.CommandSnapshot, timeoutErr)
	}
	settings.timeout = timeout
	return settings, nil
}

// buildPipeline wires discovery, selection, fetching, and optional token counting.
func (app *application) buildPipeline(settings pipelineSettings, collector *metrics.Metrics) (pipeline.Pipeline, error) {
	discoverer, baseErr := discovery.NewDiscoverer(app.httpClient).WithAPIBase(settings.apiBase)
	if baseErr != nil {
		return pipeline.Pipeline{}, baseErr
	}
	discoverer = discoverer.WithLogger(app.logger).WithTimeout(settings.timeout)

	fetcher := fetch.NewFetcher(app.httpClient).
		WithRawBase(settings.rawBase).
		WithBatchSize(settings.batchSize).
		WithMaxCharacters(settings.maxFileCharacters).
		WithLogger(app.logger)
	if settings.timeout > 0 {
		fetcher = fetcher.WithTimeout(settings.timeout)
	}
	if collector != nil {
		fetcher = fetcher.WithObserver(collector)
	}

	runner := pipeline.New(discoverer, selection.NewSelector(settings.maxFiles), fetcher).WithLogger(app.logger)
	if collector != nil {
		runner = runner.WithObserver(collector)
	}
	if settings.tokensEnabled {
		counter, resolvedModel, counterErr := tokenizer.NewCounter(tokenizer.Config{Model: settings.tokenModel})
		if counterErr != nil {
			return pipeline.Pipeline{}, counterErr
		}
		runner = runner.WithTokenCounter(counter, resolvedModel)
	}
	return runner, nil
}

func createConfigCommand(app *application) *cobra.Command {
	configCommand := &cobra.Command{
		Use:   configUse,
		Short: configShortDescription,
	}
	var global bool
	var force bool
	initCommand := &cobra.Command{
		Use:   configInitUse,
		Short: configInitDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			writtenPath, initErr := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: app.workingDirectory,
			})
			if initErr != nil {
				return initErr
			}
			fmt.Fprintf(command.OutOrStdout(), configurationWrittenFormat, writtenPath)
			return nil
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	configCommand.AddCommand(initCommand)
	return configCommand
}

func writeWithTrailingNewline(writer io.Writer, text string) error {
	if _, writeErr := io.WriteString(writer, text); writeErr != nil {
		return writeErr
	}
	if !strings.HasSuffix(text, "\n") {
		if _, writeErr := io.WriteString(writer, "\n"); writeErr != nil {
			return writeErr
		}
	}
	return nil
}

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/temirov/repoctx/internal/output"
	"github.com/temirov/repoctx/internal/pipeline"
	"github.com/temirov/repoctx/internal/progress"
	"github.com/temirov/repoctx/internal/selection"
	"github.com/temirov/repoctx/internal/services/clipboard"
	"github.com/temirov/repoctx/internal/types"
)

const explainLineFormat = "%4d  %s  [%s]\n"

type snapshotRunner interface {
	Run(ctx context.Context, locator string, sink progress.Sink) (pipeline.Snapshot, error)
}

type snapshotCommandOptions struct {
	Locator          string
	Format           string
	Explain          bool
	ClipboardEnabled bool
	Clipboard        clipboard.Copier
	Writer           io.Writer
	ErrorWriter      io.Writer
	Runner           snapshotRunner
	Progress         progress.Sink
}

func createSnapshotCommand(app *application) *cobra.Command {
	var outputFormat string
	var tokensEnabled bool
	var tokenModel string
	var maxFiles int
	var batchSize int
	var explain bool
	var copyEnabled bool

	snapshotCommand := &cobra.Command{
		Use:     snapshotUse,
		Aliases: []string{snapshotAlias},
		Short:   snapshotShortDescription,
		Long:    snapshotLongDescription,
		Example: snapshotUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			settings, settingsErr := app.snapshotSettings()
			if settingsErr != nil {
				return settingsErr
			}
			flags := command.Flags()
			if flags.Changed(tokensFlagName) {
				settings.tokensEnabled = tokensEnabled
			}
			if flags.Changed(modelFlagName) {
				settings.tokenModel = tokenModel
			}
			if flags.Changed(maxFilesFlagName) {
				settings.maxFiles = maxFiles
			}
			if flags.Changed(batchSizeFlagName) {
				settings.batchSize = batchSize
			}
			format := app.configuration.Snapshot.Format
			if flags.Changed(formatFlagName) || format == "" {
				format = outputFormat
			}
			clipboardEnabled := copyEnabled
			if !flags.Changed(copyFlagName) && app.configuration.Snapshot.Clipboard != nil {
				clipboardEnabled = *app.configuration.Snapshot.Clipboard
			}

			runner, buildErr := app.buildPipeline(settings, nil)
			if buildErr != nil {
				return buildErr
			}
			return runSnapshotCommand(command.Context(), snapshotCommandOptions{
				Locator:          arguments[0],
				Format:           format,
				Explain:          explain,
				ClipboardEnabled: clipboardEnabled,
				Clipboard:        app.clipboard,
				Writer:           command.OutOrStdout(),
				ErrorWriter:      command.ErrOrStderr(),
				Runner:           runner,
				Progress:         progress.NewLoggerSink(app.logger),
			})
		},
	}

	flagSet := snapshotCommand.Flags()
	flagSet.StringVar(&outputFormat, formatFlagName, types.FormatRaw, formatFlagDescription)
	registerBooleanFlag(flagSet, &tokensEnabled, tokensFlagName, false, tokensFlagDescription)
	flagSet.StringVar(&tokenModel, modelFlagName, "", modelFlagDescription)
	flagSet.IntVar(&maxFiles, maxFilesFlagName, selection.DefaultMaxFiles, maxFilesFlagDescription)
	flagSet.IntVar(&batchSize, batchSizeFlagName, 0, batchSizeFlagDescription)
	registerBooleanFlag(flagSet, &explain, explainFlagName, false, explainFlagDescription)
	registerCopyFlag(flagSet, &copyEnabled)
	return snapshotCommand
}

// runSnapshotCommand runs the pipeline and writes the document or manifest in the requested format.
func runSnapshotCommand(ctx context.Context, options snapshotCommandOptions) error {
	format := strings.ToLower(strings.TrimSpace(options.Format))
	if format == "" {
		format = types.FormatRaw
	}
	if !isSupportedFormat(format) {
		return fmt.Errorf(invalidFormatMessage, format)
	}
	if options.ClipboardEnabled && options.Clipboard == nil {
		return errors.New(clipboardServiceMissingMessage)
	}
	outputWriter := options.Writer
	if outputWriter == nil {
		outputWriter = os.Stdout
	}
	errorWriter := options.ErrorWriter
	if errorWriter == nil {
		errorWriter = os.Stderr
	}

	snapshot, runErr := options.Runner.Run(ctx, options.Locator, progress.OrDiscard(options.Progress))
	if runErr != nil {
		return runErr
	}

	if options.Explain {
		writeExplanation(errorWriter, snapshot.Candidates)
	}

	manifest := output.BuildManifest(output.ManifestInput{
		RunID:           snapshot.RunID,
		Identity:        snapshot.Identity,
		Candidates:      snapshot.Candidates,
		Report:          snapshot.Report,
		Document:        snapshot.Document,
		IncludeDocument: true,
		Tokens:          snapshot.Tokens,
		Model:           snapshot.TokenModel,
	})

	rendered := snapshot.Document
	switch format {
	case types.FormatJSON:
		encoded, encodeErr := output.RenderJSON(manifest)
		if encodeErr != nil {
			return encodeErr
		}
		rendered = encoded
	case types.FormatXML:
		encoded, encodeErr := output.RenderXML(manifest)
		if encodeErr != nil {
			return encodeErr
		}
		rendered = encoded
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
	fmt.Fprintln(errorWriter, output.FormatSummaryLine(manifest.Summary))
	return nil
}

func writeExplanation(writer io.Writer, candidates []types.CandidateFile) {
	for _, candidate := range candidates {
		fmt.Fprintf(writer, explainLineFormat, candidate.RelevanceScore, candidate.Path, strings.Join(selection.Breakdown(candidate.Path), ", "))
	}
}

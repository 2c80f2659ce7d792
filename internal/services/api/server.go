// Package api serves snapshot and README generation over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/repoctx/internal/generation"
	"github.com/temirov/repoctx/internal/metrics"
	"github.com/temirov/repoctx/internal/output"
	"github.com/temirov/repoctx/internal/pipeline"
	"github.com/temirov/repoctx/internal/progress"
	"github.com/temirov/repoctx/internal/types"
)

const (
	defaultListenAddress    = "127.0.0.1:0"
	defaultShutdownDuration = 5 * time.Second
	defaultMaxRequestBytes  = 16 << 20
	headerContentType       = "Content-Type"
	mimeTypeJSON            = "application/json"

	healthPath       = "/health"
	capabilitiesPath = "/capabilities"
	snapshotPath     = "/api/snapshot"
	generatePath     = "/api/generate"
	metricsPath      = "/metrics"

	errorMissingURL        = "url is required"
	errorMissingContext    = "context is required"
	errorGeneratorDisabled = "README generation is not configured"
	errorServerCredentials = "Server configuration error: API Key missing"
	errorInternal          = "Internal Server Error"
)

// Capability describes a feature exposed by the server.
type Capability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SnapshotRunner produces a snapshot for a repository locator.
type SnapshotRunner interface {
	Run(ctx context.Context, locator string, sink progress.Sink) (pipeline.Snapshot, error)
}

// ReadmeGenerator drafts README markdown from a context document.
type ReadmeGenerator interface {
	Generate(ctx context.Context, document string) (string, error)
}

// Config defines runtime options for the server.
type Config struct {
	Address         string
	ShutdownTimeout time.Duration
	MaxRequestBytes int64
	Runner          SnapshotRunner
	Generator       ReadmeGenerator
	Metrics         *metrics.Metrics
	Logger          *zap.Logger
}

// Server serves the snapshot API.
type Server struct {
	config Config
}

// NewServer creates a new Server with defaults applied.
func NewServer(config Config) Server {
	normalized := config
	if normalized.Address == "" {
		normalized.Address = defaultListenAddress
	}
	if normalized.ShutdownTimeout <= 0 {
		normalized.ShutdownTimeout = defaultShutdownDuration
	}
	if normalized.MaxRequestBytes <= 0 {
		normalized.MaxRequestBytes = defaultMaxRequestBytes
	}
	if normalized.Logger == nil {
		normalized.Logger = zap.NewNop()
	}
	return Server{config: normalized}
}

// Capabilities lists the endpoints this server answers.
func (server Server) Capabilities() []Capability {
	capabilities := []Capability{
		{Name: "snapshot", Description: "Build a ranked context document for a public GitHub repository"},
	}
	if server.config.Generator != nil {
		capabilities = append(capabilities, Capability{Name: "generate", Description: "Draft a README.md from a context document"})
	}
	if server.config.Metrics != nil {
		capabilities = append(capabilities, Capability{Name: "metrics", Description: "Prometheus metrics"})
	}
	return capabilities
}

// Handler returns the routed handler.
func (server Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(server.config.Logger))

	router.Get(healthPath, server.handleHealth)
	router.Get(capabilitiesPath, server.handleCapabilities)
	router.Post(snapshotPath, server.handleSnapshot)
	router.Post(generatePath, server.handleGenerate)
	if server.config.Metrics != nil {
		router.Method(http.MethodGet, metricsPath, server.config.Metrics.Handler())
	}
	return router
}

// Run starts the server and blocks until the provided context is canceled.
// The notify callback receives the bound address once the listener is active.
func (server Server) Run(ctx context.Context, notify func(string)) error {
	listener, listenErr := net.Listen("tcp", server.config.Address)
	if listenErr != nil {
		return fmt.Errorf("listen on %s: %w", server.config.Address, listenErr)
	}
	actualAddress := listener.Addr().String()

	httpServer := &http.Server{Handler: server.Handler(), ReadHeaderTimeout: 10 * time.Second}
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		serveErr := httpServer.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve API: %w", serveErr)
		}
		return nil
	})

	if notify != nil {
		notify(actualAddress)
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.config.ShutdownTimeout)
		defer cancel()
		shutdownErr := httpServer.Shutdown(shutdownCtx)
		if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) && !errors.Is(shutdownErr, http.ErrServerClosed) {
			return fmt.Errorf("shutdown API: %w", shutdownErr)
		}
		return nil
	})

	return group.Wait()
}

type snapshotRequest struct {
	URL string `json:"url"`
}

type snapshotResponse struct {
	RunID      string                     `json:"runId"`
	Repository types.RepositoryIdentity   `json:"repository"`
	Files      []types.ManifestFileOutput `json:"files"`
	Summary    types.ManifestSummary      `json:"summary"`
	Progress   []string                   `json:"progress"`
	Document   string                     `json:"document"`
}

type generateRequest struct {
	Context string `json:"context"`
	HTML    bool   `json:"html"`
}

type generateResponse struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html,omitempty"`
}

type errorResponse struct {
	Error    string   `json:"error"`
	Progress []string `json:"progress,omitempty"`
}

func (server Server) handleHealth(writer http.ResponseWriter, request *http.Request) {
	server.writeJSON(writer, http.StatusOK, map[string]string{"status": "ok"})
}

func (server Server) handleCapabilities(writer http.ResponseWriter, request *http.Request) {
	payload := struct {
		Capabilities []Capability `json:"capabilities"`
	}{Capabilities: server.Capabilities()}
	server.writeJSON(writer, http.StatusOK, payload)
}

func (server Server) handleSnapshot(writer http.ResponseWriter, request *http.Request) {
	var payload snapshotRequest
	if decodeErr := server.decode(writer, request, &payload); decodeErr != nil {
		server.writeJSON(writer, http.StatusBadRequest, errorResponse{Error: decodeErr.Error()})
		return
	}
	if strings.TrimSpace(payload.URL) == "" {
		server.writeJSON(writer, http.StatusBadRequest, errorResponse{Error: errorMissingURL})
		return
	}
	recorder := &progress.Recorder{}
	snapshot, runErr := server.config.Runner.Run(request.Context(), payload.URL, recorder)
	if runErr != nil {
		server.writeJSON(writer, statusCodeFromError(runErr), errorResponse{Error: runErr.Error(), Progress: recorder.Messages()})
		return
	}
	manifest := output.BuildManifest(output.ManifestInput{
		RunID:      snapshot.RunID,
		Identity:   snapshot.Identity,
		Candidates: snapshot.Candidates,
		Report:     snapshot.Report,
		Document:   snapshot.Document,
		Tokens:     snapshot.Tokens,
		Model:      snapshot.TokenModel,
	})
	server.writeJSON(writer, http.StatusOK, snapshotResponse{
		RunID:      snapshot.RunID,
		Repository: snapshot.Identity,
		Files:      manifest.Files,
		Summary:    manifest.Summary,
		Progress:   recorder.Messages(),
		Document:   snapshot.Document,
	})
}

func (server Server) handleGenerate(writer http.ResponseWriter, request *http.Request) {
	if server.config.Generator == nil {
		server.writeJSON(writer, http.StatusServiceUnavailable, errorResponse{Error: errorGeneratorDisabled})
		return
	}
	var payload generateRequest
	if decodeErr := server.decode(writer, request, &payload); decodeErr != nil {
		server.writeJSON(writer, http.StatusBadRequest, errorResponse{Error: decodeErr.Error()})
		return
	}
	if strings.TrimSpace(payload.Context) == "" {
		server.writeJSON(writer, http.StatusBadRequest, errorResponse{Error: errorMissingContext})
		return
	}
	markdown, generateErr := server.config.Generator.Generate(request.Context(), payload.Context)
	if generateErr != nil {
		server.config.Logger.Error("generate README", zap.Error(generateErr))
		statusCode := statusCodeFromError(generateErr)
		message := generateErr.Error()
		if errors.Is(generateErr, generation.ErrMissingAPIKey) {
			message = errorServerCredentials
		} else if statusCode == http.StatusInternalServerError {
			message = errorInternal
		}
		server.writeJSON(writer, statusCode, errorResponse{Error: message})
		return
	}
	response := generateResponse{Markdown: markdown}
	if payload.HTML {
		rendered, renderErr := generation.RenderHTML(markdown)
		if renderErr != nil {
			server.writeJSON(writer, http.StatusInternalServerError, errorResponse{Error: renderErr.Error()})
			return
		}
		response.HTML = rendered
	}
	server.writeJSON(writer, http.StatusOK, response)
}

func (server Server) decode(writer http.ResponseWriter, request *http.Request, target interface{}) error {
	request.Body = http.MaxBytesReader(writer, request.Body, server.config.MaxRequestBytes)
	if decodeErr := json.NewDecoder(request.Body).Decode(target); decodeErr != nil {
		return fmt.Errorf("decode request body: %w", decodeErr)
	}
	return nil
}

func (server Server) writeJSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	var buffer bytes.Buffer
	if encodeErr := json.NewEncoder(&buffer).Encode(payload); encodeErr != nil {
		fallback := errorResponse{Error: fmt.Sprintf("encode response: %v", encodeErr)}
		writer.Header().Set(headerContentType, mimeTypeJSON)
		writer.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(writer).Encode(fallback)
		return
	}
	writer.Header().Set(headerContentType, mimeTypeJSON)
	writer.WriteHeader(statusCode)
	_, _ = writer.Write(buffer.Bytes())
}

func statusCodeFromError(err error) int {
	var apiErr *generation.APIError
	switch {
	case errors.Is(err, pipeline.ErrInvalidIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrRepositoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrTreeFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, generation.ErrEmptyCompletion):
		return http.StatusBadGateway
	case errors.As(err, &apiErr):
		return apiErr.StatusCode
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			started := time.Now()
			wrapped := middleware.NewWrapResponseWriter(writer, request.ProtoMajor)
			next.ServeHTTP(wrapped, request)
			logger.Info("request",
				zap.String("method", request.Method),
				zap.String("path", request.URL.Path),
				zap.Int("status", wrapped.Status()),
				zap.String("request_id", middleware.GetReqID(request.Context())),
				zap.Duration("duration", time.Since(started)),
			)
		})
	}
}

package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stridegraph/pkg/buildinfo"
	"github.com/matzehuels/stridegraph/pkg/cache"
	"github.com/matzehuels/stridegraph/pkg/document"
	"github.com/matzehuels/stridegraph/pkg/errors"
	"github.com/matzehuels/stridegraph/pkg/pipeline"
)

const (
	// EnvRedisURL selects a shared Redis preview cache for the server.
	EnvRedisURL = "STRIDEGRAPH_REDIS_URL"

	defaultAddr     = ":8080"
	redisPrefix     = appName + ":"
	maxBodyBytes    = 8 << 20
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr     string
	redisURL string
	noCache  bool
}

// serveCommand creates the serve command, which exposes generation and
// previews over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generator over HTTP",
		Long: `Serve accepts inputs as JSON and answers with the Threat Dragon document or a
rendered preview.

  GET  /healthz
  POST /v1/models                  body: {"config":…,"threats":[…],"diagrams":[…]}
  POST /v1/preview?title=…&format=svg

Previews are cached in Redis when --redis (or $` + EnvRedisURL + `) is set,
otherwise in the local cache directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&opts.redisURL, "redis", "", "redis URL for the preview cache (default $"+EnvRedisURL+")")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the preview cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	pc, err := c.serverCache(ctx, opts)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(pc, c.Logger)
	defer runner.Close()

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           newServer(runner, c.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", opts.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		c.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (c *CLI) serverCache(ctx context.Context, opts serveOpts) (cache.Cache, error) {
	url := orEnv(opts.redisURL, EnvRedisURL)
	if opts.noCache || url == "" {
		return newCache(opts.noCache)
	}
	rc, err := cache.OpenRedis(ctx, url, redisPrefix)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	c.Logger.Info("using redis preview cache", "prefix", redisPrefix)
	return rc, nil
}

// =============================================================================
// Handlers
// =============================================================================

// generateRequest is the body of both POST endpoints.
type generateRequest struct {
	pipeline.Inputs
	Reports bool `json:"reports,omitempty"`
}

type reportJSON struct {
	Title  string      `json:"title"`
	Tables []tableJSON `json:"tables"`
}

type tableJSON struct {
	Name   string     `json:"name"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

type generateResponse struct {
	Document *document.ThreatModel `json:"document"`
	Reports  []reportJSON          `json:"reports,omitempty"`
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type server struct {
	runner *pipeline.Runner
	logger *log.Logger
}

// newServer returns the HTTP API routed with chi.
func newServer(runner *pipeline.Runner, logger *log.Logger) http.Handler {
	s := &server{runner: runner, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.SetHeader("Server", buildinfo.UserAgent()))
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/models", s.handleModels)
		r.Post("/preview", s.handlePreview)
	})
	return r
}

// requestLogger attaches a request-scoped logger and logs every response.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(withLogger(r.Context(), logger)))

		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *server) handleModels(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	result, err := s.runner.Generate(r.Context(), &req.Inputs, pipeline.Options{
		Reports: req.Reports,
		Logger:  loggerFromContext(r.Context()),
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	resp := generateResponse{Document: result.Document}
	for _, rep := range result.Reports {
		rj := reportJSON{Title: rep.Title}
		for _, t := range rep.Tables {
			rj.Tables = append(rj.Tables, tableJSON{Name: t.Name, Header: t.Header, Rows: t.Rows})
		}
		resp.Reports = append(resp.Reports, rj)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handlePreview(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		writeError(r.Context(), w, errors.New(errors.ErrCodeInvalidInput, "query parameter title is required"))
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = pipeline.DefaultPreviewFormat
	}
	if err := pipeline.ValidatePreviewFormat(format); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	req, err := decodeRequest(w, r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	result, err := s.runner.Generate(r.Context(), &req.Inputs, pipeline.Options{
		Logger: loggerFromContext(r.Context()),
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	d, ok := result.Document.Diagram(title)
	if !ok {
		writeError(r.Context(), w, errors.New(errors.ErrCodeNotFound, "no diagram titled %q", title))
		return
	}

	data, cached, err := s.runner.Preview(r.Context(), d, format)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.Header().Set("Content-Type", contentType(format))
	if cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// =============================================================================
// Helpers
// =============================================================================

func decodeRequest(w http.ResponseWriter, r *http.Request) (*generateRequest, error) {
	var req generateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode request body: %v", err)
	}
	if err := req.Inputs.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

func contentType(format string) string {
	switch format {
	case pipeline.FormatPNG:
		return "image/png"
	case pipeline.FormatDOT:
		return "text/vnd.graphviz; charset=utf-8"
	default:
		return "image/svg+xml"
	}
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeNotFound), errors.Is(err, errors.ErrCodeFileNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	code := string(errors.GetCode(err))
	if code == "" {
		code = string(errors.ErrCodeInternal)
	}
	msg := errors.UserMessage(err)
	if status == http.StatusInternalServerError {
		loggerFromContext(ctx).Error("request failed", "error", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

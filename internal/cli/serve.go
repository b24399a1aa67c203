package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/chartforge/internal/metrics"
	"github.com/matzehuels/chartforge/pkg/buildinfo"
	"github.com/matzehuels/chartforge/pkg/catalog"
	"github.com/matzehuels/chartforge/pkg/errors"
	"github.com/matzehuels/chartforge/pkg/fsutil"
	"github.com/matzehuels/chartforge/pkg/observability"
	"github.com/matzehuels/chartforge/pkg/pipeline"
	"github.com/matzehuels/chartforge/pkg/raster"
)

const (
	defaultAddr           = ":8080"
	defaultRequestTimeout = 2 * time.Minute
	shutdownTimeout       = 10 * time.Second
	maxRequestBody        = 64 << 10
)

// serveCommand creates the serve command, which exposes the pipeline over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chart API over HTTP",
		Long: `Serve exposes chart generation over HTTP:

  GET  /healthz               liveness
  GET  /v1/catalog            families and themes
  POST /v1/charts             generate a chart
  GET  /v1/charts/{id}        the HTML document
  GET  /v1/charts/{id}/png    the document rasterized on demand
  GET  /metrics               Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, timeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultRequestTimeout, "per-request timeout")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, timeout time.Duration) error {
	m := metrics.New()
	m.Install()
	defer observability.Reset()

	runner, closeRunner, err := c.newRunner(ctx, false)
	if err != nil {
		return err
	}
	defer closeRunner()

	cfg := c.settings()
	srv := &server{
		runner:        runner,
		converter:     c.newConverter(raster.Options{}),
		metrics:       m,
		logger:        c.Logger,
		documentsRoot: cfg.DocumentsRoot,
		imagesRoot:    cfg.ImagesRoot,
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(timeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	printSuccess("Listening on %s", StyleHighlight.Render(addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// =============================================================================
// Server
// =============================================================================

// server holds the handlers' dependencies. Documents and images live at
// <root>/chart_<id>.{html,png}, so no request state is kept in memory.
type server struct {
	runner        *pipeline.Runner
	converter     *raster.Converter
	metrics       *metrics.Metrics
	logger        *log.Logger
	documentsRoot string
	imagesRoot    string
}

func (s *server) routes(timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Get("/catalog", s.handleCatalog)
		r.Post("/charts", s.handleCreateChart)
		r.Get("/charts/{id}", s.handleGetChart)
		r.Get("/charts/{id}/png", s.handleGetPNG)
	})
	return r
}

// requestLogger logs one line per request and attaches a request-scoped
// logger to the context.
func requestLogger(base *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			l := base.With("request_id", middleware.GetReqID(r.Context()))

			next.ServeHTTP(ww, r.WithContext(withLogger(r.Context(), l)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			l.Info("http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Millisecond))
		})
	}
}

// =============================================================================
// Handlers
// =============================================================================

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

type familyResponse struct {
	Name        string        `json:"name"`
	Shape       catalog.Shape `json:"shape"`
	Series      string        `json:"series"`
	Rows        int           `json:"rows"`
	Theme       string        `json:"theme"`
	Description string        `json:"description"`
}

type catalogResponse struct {
	Families []familyResponse `json:"families"`
	Themes   []string         `json:"themes"`
}

func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.runner.Catalog
	resp := catalogResponse{Themes: cat.ThemeNames()}
	for _, f := range cat.Families() {
		resp.Families = append(resp.Families, familyResponse{
			Name:        f.Name,
			Shape:       f.Shape,
			Series:      f.SeriesType,
			Rows:        f.DefaultRows,
			Theme:       f.Theme,
			Description: f.Description,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// chartRequest is the POST /v1/charts body. Output paths are chosen by the
// server.
type chartRequest struct {
	Description string `json:"description"`
	ChartType   string `json:"chart_type"`
	Rows        int    `json:"rows"`
	Theme       string `json:"theme"`
	Seed        int64  `json:"seed"`
	Title       string `json:"title"`
}

type chartResponse struct {
	ID             string `json:"id"`
	Family         string `json:"family"`
	Theme          string `json:"theme"`
	Source         string `json:"source"`
	FallbackReason string `json:"fallback_reason,omitempty"`
	Path           string `json:"path"`
	Checksum       string `json:"checksum"`
}

func (s *server) handleCreateChart(w http.ResponseWriter, r *http.Request) {
	var body chartRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body"))
		return
	}

	res, err := s.runner.Execute(r.Context(), pipeline.Request{
		Description: body.Description,
		ChartType:   body.ChartType,
		Rows:        body.Rows,
		Theme:       body.Theme,
		Seed:        body.Seed,
		Title:       body.Title,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/charts/"+res.RequestID)
	writeJSON(w, http.StatusCreated, chartResponse{
		ID:             res.RequestID,
		Family:         res.Spec.Family,
		Theme:          res.Theme,
		Source:         string(res.Source),
		FallbackReason: res.FallbackReason,
		Path:           res.Artifact.Path,
		Checksum:       res.Artifact.Checksum,
	})
}

func (s *server) handleGetChart(w http.ResponseWriter, r *http.Request) {
	path, err := s.artifactPath(s.documentsRoot, chi.URLParam(r, "id"), ".html")
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeFile(w, r, path)
}

func (s *server) handleGetPNG(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.artifactPath(s.documentsRoot, id, ".html")
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := filepath.Join(s.imagesRoot, "chart_"+id+".png")
	if !fsutil.Exists(out) {
		task := s.converter.ConvertTask(r.Context(), raster.Task{Input: doc, Output: out})
		if task.State != raster.StateWritten {
			err := task.Err
			if err == nil {
				err = errors.New(errors.ErrCodeTimeout, "conversion cancelled")
			}
			writeError(w, r, err)
			return
		}
		loggerFromContext(r.Context()).Debug("converted on demand", "id", id, "attempts", task.Attempts)
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, out)
}

// artifactPath resolves an existing <root>/chart_<id><ext>.
func (s *server) artifactPath(root, id, ext string) (string, error) {
	if err := errors.ValidateArtifactID(id); err != nil {
		return "", err
	}
	path := filepath.Join(root, "chart_"+id+ext)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", errors.New(errors.ErrCodeNotFound, "chart %s not found", id)
	}
	return path, nil
}

// =============================================================================
// Responses
// =============================================================================

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		loggerFromContext(r.Context()).Error("request failed", "code", code, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: string(code)})
}

// statusFor maps an error code to an HTTP status.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPath, errors.ErrCodeUnsupportedSchema, errors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeTimeout, errors.ErrCodeConversionTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeGenerativeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

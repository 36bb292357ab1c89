package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/manuscript-review/internal/config"
	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/core/ports"
	"github.com/kirillkom/manuscript-review/internal/observability/metrics"
)

const serviceName = "api"

type Dependencies struct {
	Reviewer   ports.ManuscriptReviewer
	Questioner ports.ManuscriptQuestioner
	Submitter  ports.ReviewSubmitter
	Jobs       ports.ReviewJobReader
	Usage      ports.UsageReporter
	// PDFText turns an uploaded PDF into manuscript text.
	PDFText func(data []byte) (string, error)
	Metrics *metrics.HTTPServerMetrics
}

type Router struct {
	deps Dependencies

	apiKey            string
	rateLimitRPS      float64
	rateLimitBurst    int
	maxInFlight       int
	backpressureWait  time.Duration
	maxUploadBytes    int64
	reviewTimeout     time.Duration
	openAPIValidation bool
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &Router{
		deps:              deps,
		apiKey:            cfg.APIKey,
		rateLimitRPS:      cfg.RateLimitRPS,
		rateLimitBurst:    cfg.RateLimitBurst,
		maxInFlight:       cfg.MaxInFlight,
		backpressureWait:  250 * time.Millisecond,
		maxUploadBytes:    maxUpload,
		reviewTimeout:     cfg.ReviewTimeout,
		openAPIValidation: cfg.OpenAPIValidation,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}

	mux.HandleFunc("POST /v1/reviews", rt.reviewText)
	mux.HandleFunc("POST /v1/reviews/pdf", rt.reviewPDF)
	mux.HandleFunc("POST /v1/reviews/jobs", rt.submitJob)
	mux.HandleFunc("GET /v1/reviews/jobs/{id}", rt.getJob)
	mux.HandleFunc("GET /v1/reviews/jobs/{id}/issues.xlsx", rt.exportIssues)
	mux.HandleFunc("POST /v1/manuscripts/ask", rt.ask)
	mux.HandleFunc("GET /v1/usage", rt.listUsage)
	mux.HandleFunc("GET /v1/usage/{model}", rt.getUsage)
	mux.HandleFunc("POST /v1/usage/reset", rt.resetUsage)

	var handler http.Handler = mux
	if rt.openAPIValidation {
		handler = openAPIValidationMiddleware(handler, mustLoadOpenAPI())
	}
	handler = bodyLimitMiddleware(handler, rt.maxUploadBytes)
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.backpressureWait, rt.recordRejected)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst, rt.recordRejected)
	handler = apiKeyMiddleware(handler, rt.apiKey)
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) recordRejected(reason string) {
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordRejected(serviceName, reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	body := map[string]string{"error": err.Error()}
	if stage, ok := domain.FailedStage(err); ok {
		body["stage"] = stage
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			slog.String("request_id", requestIDFromContext(r.Context())),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Any("error", err),
		)
	}
	writeJSON(w, status, body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if isBodyTooLarge(err) {
			return fmt.Errorf("decode request: %w", err)
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("invalid json"))
	}
	return nil
}

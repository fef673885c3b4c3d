package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/kirillkom/document-triage/internal/core/domain"
	"github.com/kirillkom/document-triage/internal/core/ports"
	"github.com/kirillkom/document-triage/internal/observability/metrics"
)

const (
	uploadField = "file"

	// multipartMemory is how much of an upload is held in memory before the
	// multipart reader spools it to a temp file.
	multipartMemory = 8 << 20

	defaultMaxUploadBytes   = 32 << 20
	defaultBackpressureWait = 250 * time.Millisecond
)

type RouterConfig struct {
	MaxUploadBytes   int64
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxInFlight      int
	BackpressureWait time.Duration
}

type Router struct {
	classifier ports.FileClassifier
	cfg        RouterConfig
	metrics    *metrics.HTTPServerMetrics
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) { rt.metrics = m }
}

func NewRouter(classifier ports.FileClassifier, cfg RouterConfig, opts ...RouterOption) *Router {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.BackpressureWait <= 0 {
		cfg.BackpressureWait = defaultBackpressureWait
	}
	rt := &Router{classifier: classifier, cfg: cfg}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	var onShed shedFunc
	if rt.metrics != nil {
		onShed = rt.metrics.RecordShed
	}

	var classify http.Handler = http.HandlerFunc(rt.classifyFile)
	classify = backpressureMiddleware(classify, rt.cfg.MaxInFlight, rt.cfg.BackpressureWait, onShed)
	classify = rateLimitMiddleware(classify, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst, onShed)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/classify_file", classify)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = recoverMiddleware(handler)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type envelope struct {
	Success bool            `json:"success"`
	Data    *domain.Success `json:"data,omitempty"`
	Error   *domain.Failure `json:"error,omitempty"`
}

func (rt *Router) classifyFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeFailure(w, domain.Failure{
			Message: "Method not allowed.",
			Action:  "Submit the file with a POST request.",
			Code:    domain.CodeMethodNotAllowed,
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, domain.Failure{
				Message: "File is too large.",
				Action:  "Upload a file smaller than the configured limit.",
				Code:    domain.CodeFileTooLarge,
				Details: map[string]any{"max_bytes": rt.cfg.MaxUploadBytes},
			})
			return
		}
		slog.DebugContext(r.Context(), "multipart_parse_failed", "error", err)
		writeFailure(w, missingFilePart())
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.WarnContext(r.Context(), "multipart_cleanup_failed", "error", err)
		}
	}()

	header, failure := uploadedFile(r.MultipartForm)
	if failure != nil {
		writeFailure(w, *failure)
		return
	}

	file, err := header.Open()
	if err != nil {
		slog.ErrorContext(r.Context(), "multipart_open_failed", "error", err)
		writeFailure(w, internalFailure())
		return
	}
	defer file.Close()

	result, err := rt.classifier.Classify(r.Context(), domain.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		writeClassifyError(w, r, err)
		return
	}
	writeResult(w, result)
}

// uploadedFile picks the single upload from the form. A "file" part sent
// without a filename arrives as a plain form value, which is how an empty
// file picker submits.
func uploadedFile(form *multipart.Form) (*multipart.FileHeader, *domain.Failure) {
	if files := form.File[uploadField]; len(files) > 0 {
		if files[0].Filename == "" {
			return nil, noFileSelected()
		}
		return files[0], nil
	}
	if _, ok := form.Value[uploadField]; ok {
		return nil, noFileSelected()
	}
	f := missingFilePart()
	return nil, &f
}

func missingFilePart() domain.Failure {
	return domain.Failure{
		Message: "No file part in the request.",
		Action:  "Ensure form field includes a file with name 'file'.",
		Code:    domain.CodeMissingFilePart,
	}
}

func noFileSelected() *domain.Failure {
	return &domain.Failure{
		Message: "No selected file.",
		Action:  "Select a file before submitting.",
		Code:    domain.CodeNoFileSelected,
	}
}

func writeClassifyError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	slog.ErrorContext(r.Context(), "classify_request_failed",
		"request_id", requestIDFromContext(r.Context()),
		"status", status,
		"error", err,
	)

	failure := internalFailure()
	if status == http.StatusServiceUnavailable {
		failure.Code = domain.CodeOverloaded
		failure.Message = "A dependency is temporarily unavailable."
		failure.Action = "Retry shortly."
	}
	writeJSON(w, status, envelope{Success: false, Error: withDetails(failure)})
}

func writeResult(w http.ResponseWriter, result domain.Result) {
	if result.OK() {
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: result.Success})
		return
	}
	writeFailure(w, *result.Failure)
}

func writeFailure(w http.ResponseWriter, failure domain.Failure) {
	writeJSON(w, mapFailureToHTTPStatus(failure.Code), envelope{Success: false, Error: withDetails(failure)})
}

func withDetails(f domain.Failure) *domain.Failure {
	if f.Details == nil {
		f.Details = map[string]any{}
	}
	return &f
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

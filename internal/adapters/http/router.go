package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/flowbit-labs/intake-agent/internal/core/domain"
	"github.com/flowbit-labs/intake-agent/internal/core/ports"
	"github.com/flowbit-labs/intake-agent/internal/observability/metrics"
)

type Router struct {
	intake   ports.IntakeService
	sessions ports.SessionReader
	metrics  *metrics.HTTPServerMetrics

	maxUploadBytes int64
	limiter        *rate.Limiter
}

type RouterOptions struct {
	Metrics        *metrics.HTTPServerMetrics
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(intake ports.IntakeService, sessions ports.SessionReader, options RouterOptions) *Router {
	maxUploadBytes := options.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}

	var limiter *rate.Limiter
	if options.RateLimitRPS > 0 {
		burst := options.RateLimitBurst
		if burst <= 0 {
			burst = int(options.RateLimitRPS)
			if burst <= 0 {
				burst = 1
			}
		}
		limiter = rate.NewLimiter(rate.Limit(options.RateLimitRPS), burst)
	}

	return &Router{
		intake:         intake,
		sessions:       sessions,
		metrics:        options.Metrics,
		maxUploadBytes: maxUploadBytes,
		limiter:        limiter,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/process/file", rt.processFile)
	mux.HandleFunc("/process/email", rt.processEmail)
	mux.HandleFunc("/process/json", rt.processJSON)
	mux.HandleFunc("/memory", rt.listSessions)
	mux.HandleFunc("/memory/", rt.sessionByID)

	var handler http.Handler = mux
	handler = rateLimitMiddleware(rt.limiter, handler)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) processFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read upload: " + err.Error()})
		return
	}

	result, err := rt.intake.ProcessFile(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		content,
	)
	if err != nil {
		rt.writeError(w, err)
		return
	}

	rt.recordIntake(result)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) processEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	emailBody := r.FormValue("email_body")
	if strings.TrimSpace(emailBody) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "form field 'email_body' is required"})
		return
	}
	subject := r.FormValue("subject")

	result, err := rt.intake.ProcessEmail(r.Context(), emailBody, subject)
	if err != nil {
		rt.writeError(w, err)
		return
	}

	rt.recordIntake(result)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) processJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request body must be a json object"})
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request body must be a non-empty json object"})
		return
	}

	result, err := rt.intake.ProcessJSON(r.Context(), data)
	if err != nil {
		rt.writeError(w, err)
		return
	}

	rt.recordIntake(result)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	sessions, err := rt.sessions.ListSessions(r.Context())
	if err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active_sessions": len(sessions),
		"sessions":        sessions,
	})
}

func (rt *Router) sessionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/memory/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session id is required"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		session, err := rt.sessions.GetSession(r.Context(), id)
		if err != nil {
			rt.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
	case http.MethodDelete:
		if err := rt.sessions.DeleteSession(r.Context(), id); err != nil {
			rt.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "session_id": id})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func (rt *Router) recordIntake(result *domain.IntakeResult) {
	if rt.metrics == nil || result == nil {
		return
	}
	status, _ := result.Result["status"].(string)
	rt.metrics.RecordIntake(
		"api",
		string(result.Classification.Format),
		string(result.Classification.Intent),
		status,
		result.Classification.Confidence,
	)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/guiperry/KNIRVCONTROLLER/internal/cognitive"
	"github.com/guiperry/KNIRVCONTROLLER/internal/service"
)

// maxWeightsBody caps the raw parameter upload size.
const maxWeightsBody = 256 << 20

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	processor *service.Processor
	logger    *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(processor *service.Processor, logger *zap.Logger) *Handler {
	return &Handler{processor: processor, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)

		r.Post("/process", h.process)
		r.Post("/modules/initialize", h.initializeModules)
		r.Get("/model", h.modelInfo)

		r.Get("/weights", h.weightsInfo)
		r.Post("/weights", h.loadWeights)

		r.Put("/personality/metrics/{name}", h.setMetric)
		r.Get("/personality", h.personality)
		r.Post("/feedback", h.feedback)

		r.Post("/mode", h.setMode)
		r.Get("/state", h.state)

		r.Delete("/memory", h.clearMemory)
		r.Get("/memory/summary", h.memorySummary)

		r.Post("/host/connect", h.hostConnect)
		r.Post("/host/messages", h.hostEnqueue)
		r.Get("/host/messages", h.hostDrain)

		r.Get("/cycles", h.cycles)
		r.Get("/traces/similar", h.similarTraces)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	status, desktop := h.processor.HostStatus()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"host_status": status,
		"desktop_id":  desktop,
	})
}

type processResponse struct {
	cognitive.Result
	Error string `json:"error,omitempty"`
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	var input cognitive.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		// Undecodable body follows the same contract as malformed input:
		// a 200 with the zero result.
		h.logger.Warn("undecodable process body", zap.Error(err))
		writeJSON(w, http.StatusOK, processResponse{Error: "malformed input"})
		return
	}
	result := h.processor.Process(r.Context(), input)
	writeJSON(w, http.StatusOK, processResponse{Result: result})
}

type initializeRequest struct {
	FastCount int `json:"fast_count"`
	DeepCount int `json:"deep_count"`
}

func (h *Handler) initializeModules(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.FastCount < 0 || req.DeepCount < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "counts must be non-negative"})
		return
	}
	h.processor.InitializeModules(req.FastCount, req.DeepCount)
	writeJSON(w, http.StatusOK, h.processor.ModelInfo())
}

func (h *Handler) modelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.processor.ModelInfo())
}

func (h *Handler) weightsInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.processor.WeightsInfo())
}

func (h *Handler) loadWeights(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxWeightsBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.processor.LoadWeights(data); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.processor.WeightsInfo())
}

type metricRequest struct {
	Value float64 `json:"value"`
}

func (h *Handler) setMetric(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req metricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	h.processor.SetMetric(r.Context(), name, req.Value)
	writeJSON(w, http.StatusOK, h.processor.ProfileSnapshot())
}

func (h *Handler) personality(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.processor.ProfileSnapshot())
}

type feedbackRequest struct {
	Feedback float64 `json:"feedback"`
}

func (h *Handler) feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	h.processor.ApplyFeedback(r.Context(), req.Feedback)
	writeJSON(w, http.StatusOK, h.processor.ProfileSnapshot())
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (h *Handler) setMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	mode := h.processor.SetMode(req.Mode)
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(mode)})
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.processor.StateSnapshot())
}

func (h *Handler) clearMemory(w http.ResponseWriter, r *http.Request) {
	h.processor.ClearMemory()
	writeJSON(w, http.StatusOK, map[string]string{"status": "memory cleared"})
}

func (h *Handler) memorySummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.processor.MemorySummary())
}

type hostConnectRequest struct {
	DesktopID string `json:"desktop_id"`
}

func (h *Handler) hostConnect(w http.ResponseWriter, r *http.Request) {
	var req hostConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.DesktopID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "desktop_id is required"})
		return
	}
	msg, err := h.processor.ConnectHost(r.Context(), req.DesktopID)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

type hostMessageRequest struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

func (h *Handler) hostEnqueue(w http.ResponseWriter, r *http.Request) {
	var req hostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type is required"})
		return
	}
	id, err := h.processor.EnqueueHostMessage(r.Context(), req.Type, req.Payload)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) hostDrain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.processor.DrainHostMessages())
}

func (h *Handler) cycles(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	records, err := h.processor.Cycles(r.Context(), limit)
	if err != nil {
		if err == service.ErrNoStore {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) similarTraces(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	traces, err := h.processor.SimilarCycles(r.Context(), limit)
	if err != nil {
		if err == service.ErrNoVectors {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, traces)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

// Handler exposes the room engine as a JSON request/response API. Clients
// observe game state exclusively by polling the status endpoint.
type Handler struct {
	service *app.Service
	logger  *slog.Logger
}

func NewHandler(service *app.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Router builds the chi route tree.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api/rooms", func(r chi.Router) {
		r.Post("/", h.createRoom)
		r.Get("/", h.listRooms)
		r.Get("/code/{code}", h.checkRoom)
		r.Post("/code/{code}/join", h.joinRoom)
		r.Get("/{roomID}/status", h.status)
		r.Post("/{roomID}/start", h.start)
		r.Post("/{roomID}/stop", h.stop)
		r.Post("/{roomID}/answers", h.submitAnswer)
		r.Post("/{roomID}/exercises", h.startExercises)
		r.Get("/{roomID}/analytics", h.analytics)
		r.Get("/{roomID}/export", h.exportCSV)
	})
	return r
}

func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	var req app.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, generated, err := h.service.CreateRoom(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"room":               room,
		"questionsGenerated": generated,
	})
}

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"rooms": h.service.Rooms().ListRooms(),
	})
}

func (h *Handler) checkRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	room, playerCount, err := h.service.Rooms().RoomByCode(code)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"room":        room,
		"playerCount": playerCount,
	})
}

func (h *Handler) joinRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req struct {
		PlayerName string `json:"playerName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerName == "" {
		h.writeError(w, http.StatusBadRequest, "playerName is required")
		return
	}

	player, room, playerCount, err := h.service.Rooms().Join(code, req.PlayerName)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"player":      player,
		"room":        room,
		"playerCount": playerCount,
	})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Rooms().Status(chi.URLParam(r, "roomID"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	playerCount, questionCount, err := h.service.Rooms().Start(chi.URLParam(r, "roomID"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"gameState":     domain.StateStarting,
		"playerCount":   playerCount,
		"questionCount": questionCount,
	})
}

func (h *Handler) stop(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Rooms().Stop(chi.URLParam(r, "roomID")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"gameState": domain.StateFinished,
	})
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID        string  `json:"playerId"`
		SelectedAnswers []int   `json:"selectedAnswers"`
		ResponseTime    float64 `json:"responseTime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		h.writeError(w, http.StatusBadRequest, "playerId and selectedAnswers are required")
		return
	}

	result, err := h.service.Rooms().SubmitAnswer(chi.URLParam(r, "roomID"), req.PlayerID, req.SelectedAnswers, req.ResponseTime)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) startExercises(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SelectedExercises []string `json:"selectedExercises"`
		TimePerQuestion   int      `json:"timePerQuestion"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, generated, err := h.service.StartExercises(r.Context(), chi.URLParam(r, "roomID"), req.SelectedExercises, req.TimePerQuestion)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"room":               room,
		"questionsGenerated": generated,
	})
}

func (h *Handler) analytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.service.Rooms().Analytics(chi.URLParam(r, "roomID"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, analytics)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	csvText, err := h.service.Rooms().ExportCSV(chi.URLParam(r, "roomID"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="results.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(csvText))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps domain sentinels onto the HTTP taxonomy:
// not-found -> 404, conflicts -> 409, bad input -> 400.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrPlayerNotFound),
		errors.Is(err, domain.ErrExerciseNotFound),
		errors.Is(err, domain.ErrSessionNotStarted):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrRoomFull),
		errors.Is(err, domain.ErrNameTaken),
		errors.Is(err, domain.ErrNoQuestions),
		errors.Is(err, domain.ErrGameAlreadyStarted),
		errors.Is(err, domain.ErrAnswersClosed),
		errors.Is(err, domain.ErrAlreadyAnswered):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidSelection),
		errors.Is(err, domain.ErrInvalidConfig):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("internal error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

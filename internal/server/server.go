package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ranked-engine/internal/api"
	"ranked-engine/internal/domain"
	"ranked-engine/internal/match"
	"ranked-engine/internal/metrics"
	"ranked-engine/internal/middleware"
	"ranked-engine/internal/service"
)

// Server is the thin HTTP boundary over the queue, match, and player
// services. All semantics live in the services; handlers only decode,
// dispatch, and encode.
type Server struct {
	queueSvc  *service.QueueService
	matchSvc  *service.MatchService
	playerSvc *service.PlayerService
	tracker   *api.TrackerClient
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func New(queueSvc *service.QueueService, matchSvc *service.MatchService, playerSvc *service.PlayerService, tracker *api.TrackerClient, m *metrics.Metrics, logger zerolog.Logger) *Server {
	return &Server{queueSvc: queueSvc, matchSvc: matchSvc, playerSvc: playerSvc, tracker: tracker, metrics: m, logger: logger}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /queue/{title}/join", s.handleQueueJoin)
	mux.HandleFunc("POST /queue/{title}/leave", s.handleQueueLeave)
	mux.HandleFunc("POST /queue/{title}/clear", s.handleQueueClear)
	mux.HandleFunc("GET /queue/{title}", s.handleQueueStatus)

	mux.HandleFunc("POST /matches/{title}/form", s.handleMatchForm)
	mux.HandleFunc("GET /matches/{id}", s.handleMatchGet)
	mux.HandleFunc("POST /matches/{id}/confirm", s.handleMatchConfirm)
	mux.HandleFunc("POST /matches/{id}/report", s.handleMatchReport)
	mux.HandleFunc("POST /matches/{id}/cancel", s.handleMatchCancel)

	mux.HandleFunc("POST /players", s.handlePlayerRegister)
	mux.HandleFunc("GET /players/{id}", s.handlePlayerProfile)
	mux.HandleFunc("POST /players/{id}/place", s.handlePlayerPlace)
	mux.HandleFunc("GET /leaderboard/{title}", s.handleLeaderboard)

	mux.HandleFunc("GET /tracker/ratelimit", s.handleTrackerRateLimit)

	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	return mux
}

type playerIDRequest struct {
	PlayerID string `json:"player_id"`
}

func (s *Server) handleQueueJoin(w http.ResponseWriter, r *http.Request) {
	var req playerIDRequest
	if err := decodeJSON(r, &req); err != nil || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	result, err := s.queueSvc.Join(r.Context(), domain.GameTitle(r.PathValue("title")), req.PlayerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, result.Message)
		return
	}
	status := http.StatusOK
	if !result.OK {
		status = http.StatusConflict
	}
	writeJSON(w, status, result)
}

func (s *Server) handleQueueLeave(w http.ResponseWriter, r *http.Request) {
	var req playerIDRequest
	if err := decodeJSON(r, &req); err != nil || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	result, err := s.queueSvc.Leave(r.Context(), domain.GameTitle(r.PathValue("title")), req.PlayerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, result.Message)
		return
	}
	status := http.StatusOK
	if !result.OK {
		status = http.StatusConflict
	}
	writeJSON(w, status, result)
}

func (s *Server) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	result, err := s.queueSvc.Clear(r.Context(), domain.GameTitle(r.PathValue("title")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, result.Message)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := s.queueSvc.Status(domain.GameTitle(r.PathValue("title")))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown game title")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type formRequest struct {
	TeamA []string `json:"team_a"`
	TeamB []string `json:"team_b"`
}

func (s *Server) handleMatchForm(w http.ResponseWriter, r *http.Request) {
	var req formRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := s.matchSvc.FormMatch(r.Context(), domain.GameTitle(r.PathValue("title")), match.Split{
		TeamA: req.TeamA,
		TeamB: req.TeamB,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleMatchGet(w http.ResponseWriter, r *http.Request) {
	m, stats, err := s.matchSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"match": m, "stats": stats})
}

func (s *Server) handleMatchConfirm(w http.ResponseWriter, r *http.Request) {
	var req playerIDRequest
	if err := decodeJSON(r, &req); err != nil || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	m, err := s.matchSvc.ConfirmHost(r.Context(), r.PathValue("id"), req.PlayerID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type reportRequest struct {
	Winner string                        `json:"winner"`
	ScoreA int                           `json:"score_a"`
	ScoreB int                           `json:"score_b"`
	Stats  map[string]match.ReportedStat `json:"stats"`
}

func (s *Server) handleMatchReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	deltas, err := s.matchSvc.Report(r.Context(), r.PathValue("id"), match.Report{
		Winner: domain.TeamID(req.Winner),
		ScoreA: req.ScoreA,
		ScoreB: req.ScoreB,
		Stats:  req.Stats,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deltas": deltas})
}

func (s *Server) handleMatchCancel(w http.ResponseWriter, r *http.Request) {
	m, err := s.matchSvc.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type registerRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ResolveMode  string `json:"resolve_mode"`
	PrimaryTitle string `json:"primary_title"`
}

func (s *Server) handlePlayerRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil || req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required")
		return
	}

	p := &domain.Player{
		ID:           req.ID,
		Name:         req.Name,
		ResolveMode:  domain.ResolveMode(req.ResolveMode),
		PrimaryTitle: domain.GameTitle(req.PrimaryTitle),
	}
	if err := s.playerSvc.Register(r.Context(), p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handlePlayerProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.playerSvc.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "player not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type placeRequest struct {
	Title   string `json:"title"`
	Account string `json:"account"`
}

func (s *Server) handlePlayerPlace(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if err := decodeJSON(r, &req); err != nil || req.Title == "" || req.Account == "" {
		writeError(w, http.StatusBadRequest, "title and account are required")
		return
	}

	placed, err := s.playerSvc.Place(r.Context(), r.PathValue("id"), domain.GameTitle(req.Title), req.Account)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, placed)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.playerSvc.Leaderboard(r.Context(), domain.GameTitle(r.PathValue("title")))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": rows})
}

// handleTrackerRateLimit exposes the external API budget so operators can
// see how close placement traffic is to the upstream limit.
func (s *Server) handleTrackerRateLimit(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.GetRateLimitInfo())
}

// writeFailure maps the error to a status and, for server-side failures,
// logs it with the request ID so operators can correlate the 500 with the
// completion log line.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnknownTitle):
		return http.StatusNotFound
	case errors.Is(err, service.ErrMatchInFlight),
		errors.Is(err, service.ErrAlreadyPlaced),
		errors.Is(err, match.ErrNotReportable),
		errors.Is(err, match.ErrNotCancellable),
		errors.Is(err, match.ErrAlreadyStarted):
		return http.StatusConflict
	case errors.Is(err, service.ErrQueueNotFull),
		errors.Is(err, service.ErrNotHost),
		errors.Is(err, match.ErrInvalidSplit),
		errors.Is(err, match.ErrInvalidWinner),
		errors.Is(err, match.ErrIncompleteStats):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

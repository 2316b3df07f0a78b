package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
	"github.com/user/eoc-response-sim/config"
	"github.com/user/eoc-response-sim/internal/game"
	"github.com/user/eoc-response-sim/internal/interfaces"
	"github.com/user/eoc-response-sim/internal/reports"
	"github.com/user/eoc-response-sim/internal/types"
	"go.uber.org/zap"
)

// ReportLister lists after-action reports
type ReportLister interface {
	List(ctx context.Context, limit int) ([]reports.Report, error)
}

// Server exposes a session over HTTP
type Server struct {
	store    interfaces.SessionStore
	advisor  *game.Advisor
	reports  ReportLister
	config   config.Config
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates a server for store. reports may be nil.
func New(store interfaces.SessionStore, reports ReportLister, cfg config.Config, logger *zap.Logger) *Server {
	return &Server{
		store:   store,
		advisor: game.NewAdvisor(),
		reports: reports,
		config:  cfg,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HTTPServer wraps the router in an http.Server listening on the configured port
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:    ":" + s.config.Server.Port,
		Handler: s.Router(),
	}
}

// Router builds the chi router
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// long-lived stream, kept outside the request timeout
	router.Get("/ws", s.handleStream)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/state", s.handleState)
		r.Post("/tutorial", s.handleStartTutorial)
		r.Put("/phase", s.handleSetPhase)
		r.Put("/zone", s.handleSetZone)
		r.Post("/scenario", s.handleInitializeScenario)
		r.Patch("/scenario", s.handleUpdateScenario)
		r.Post("/decisions", s.handleAddDecision)
		r.Post("/decisions/{id}/choose", s.handleMakeDecision)
		r.Get("/decisions/{id}/advice", s.handleAdvice)
		r.Patch("/resources", s.handleAllocateResources)
		r.Post("/score", s.handleUpdateScore)
		r.Post("/time", s.handleUpdateTime)
		r.Post("/end", s.handleEndScenario)
		r.Post("/restart", s.handleRestart)
		r.Get("/reports", s.handleReports)
		r.Get("/qr", s.handleQRCode)
	})

	return router
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeState(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeState(w)
}

func (s *Server) handleStartTutorial(w http.ResponseWriter, r *http.Request) {
	s.store.StartTutorial()
	s.writeState(w)
}

func (s *Server) handleSetPhase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phase types.GamePhase `json:"phase"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.Phase.Valid() {
		http.Error(w, "unknown phase", http.StatusBadRequest)
		return
	}
	s.store.SetPhase(req.Phase)
	s.writeState(w)
}

func (s *Server) handleSetZone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Zone *string `json:"zone"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.store.SetCurrentZone(req.Zone)
	s.writeState(w)
}

func (s *Server) handleInitializeScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type types.DisasterType `json:"type"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.Type.Valid() {
		http.Error(w, "unknown disaster type", http.StatusBadRequest)
		return
	}
	s.logger.Info("Scenario requested", zap.String("type", string(req.Type)))
	s.store.InitializeScenario(req.Type)
	s.writeState(w)
}

func (s *Server) handleUpdateScenario(w http.ResponseWriter, r *http.Request) {
	var update types.ScenarioUpdate
	if err := decode(r, &update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if update.Type != nil && !update.Type.Valid() {
		http.Error(w, "unknown disaster type", http.StatusBadRequest)
		return
	}
	s.store.UpdateScenario(update)
	s.writeState(w)
}

func (s *Server) handleAddDecision(w http.ResponseWriter, r *http.Request) {
	var decision types.Decision
	if err := decode(r, &decision); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if decision.ID == "" {
		http.Error(w, "decision id is required", http.StatusBadRequest)
		return
	}
	for _, opt := range decision.Options {
		if err := validateAmounts(opt.ResourceCost); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	s.store.AddDecision(decision)
	s.writeJSON(w, http.StatusCreated, s.store.Snapshot())
}

func (s *Server) handleMakeDecision(w http.ResponseWriter, r *http.Request) {
	decisionID := chi.URLParam(r, "id")
	var req struct {
		Option *int `json:"option"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Option == nil {
		http.Error(w, "option is required", http.StatusBadRequest)
		return
	}
	s.store.MakeDecision(decisionID, *req.Option)
	s.writeState(w)
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	decisionID := chi.URLParam(r, "id")
	recs, err := s.advisor.Recommend(s.store.Snapshot(), decisionID)
	if errors.Is(err, game.ErrDecisionNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("Failed to build advice", zap.String("decision_id", decisionID), zap.Error(err))
		http.Error(w, "Failed to build advice", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func validateAmounts(amounts types.ResourceAmounts) error {
	for kind := range amounts {
		if !kind.Valid() {
			return errors.New("unknown resource " + string(kind))
		}
	}
	return nil
}

func (s *Server) handleAllocateResources(w http.ResponseWriter, r *http.Request) {
	var allocation types.ResourceAmounts
	if err := decode(r, &allocation); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateAmounts(allocation); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.store.AllocateResources(allocation)
	s.writeState(w)
}

func (s *Server) handleUpdateScore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Points int `json:"points"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.store.UpdateScore(req.Points)
	s.writeState(w)
}

func (s *Server) handleUpdateTime(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta float64 `json:"delta"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.store.UpdateTime(req.Delta)
	s.writeState(w)
}

func (s *Server) handleEndScenario(w http.ResponseWriter, r *http.Request) {
	s.store.EndScenario()
	s.writeState(w)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	s.store.Restart()
	s.writeState(w)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		http.Error(w, "reports are disabled", http.StatusServiceUnavailable)
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	list, err := s.reports.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list reports", zap.Error(err))
		http.Error(w, "Failed to list reports", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleQRCode(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(s.config.Server.PublicURL, qrcode.Medium, 256)
	if err != nil {
		s.logger.Error("Failed to generate QR code",
			zap.String("url", s.config.Server.PublicURL),
			zap.Error(err))
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-bgg-gateway/internal/application/game"
	"go.uber.org/zap"
)

// BGGHandler serves the BoardGameGeek proxy endpoints.
type BGGHandler struct {
	svc    game.Service
	logger *zap.Logger
}

func NewBGGHandler(svc game.Service, logger *zap.Logger) *BGGHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BGGHandler{svc: svc, logger: logger}
}

// Search handles GET /bggSearch?query=.
func (h *BGGHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}
	results, err := h.svc.Search(r.Context(), query)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchEnvelope{Results: results})
}

// Thing handles GET /bggThing?id=.
func (h *BGGHandler) Thing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("id")))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "missing or invalid id")
		return
	}
	res, err := h.svc.GetGame(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

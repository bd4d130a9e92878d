package handlers

import (
	"net/http"

	"github.com/Dosada05/competition-engine/models"
	"github.com/Dosada05/competition-engine/services"
)

type RatingHandler struct {
	engine *services.Engine
}

func NewRatingHandler(engine *services.Engine) *RatingHandler {
	return &RatingHandler{engine: engine}
}

// GetRating serves /players/{playerID}/ratings?scope=global&game_type=singles.
// Scope defaults to global and game type to singles.
func (h *RatingHandler) GetRating(w http.ResponseWriter, r *http.Request) {
	playerID, err := urlParam(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	key := models.RatingKey{
		PlayerID: playerID,
		Scope:    r.URL.Query().Get("scope"),
		GameType: models.GameType(r.URL.Query().Get("game_type")),
	}
	if key.Scope == "" {
		key.Scope = models.ScopeGlobal
	}
	if key.GameType == "" {
		key.GameType = models.GameTypeSingles
	}

	profile, err := h.engine.GetRating(r.Context(), key)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rating": profile}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RatingHandler) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	playerID, err := urlParam(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	stats, err := h.engine.GetPlayerStats(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

package handlers

import (
	"net/http"

	"github.com/Dosada05/competition-engine/models"
	"github.com/Dosada05/competition-engine/services"
)

type MatchHandler struct {
	engine *services.Engine
}

func NewMatchHandler(engine *services.Engine) *MatchHandler {
	return &MatchHandler{engine: engine}
}

// ListMatches returns a competition's matches, optionally one round only
// (?round=N).
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	competitionID, err := urlParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	round, err := queryInt(r, "round")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.engine.ListMatches(r.Context(), competitionID, round)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	competitionID, err := urlParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID, err := urlParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	m, err := h.engine.StartMatch(r.Context(), competitionID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": m}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	competitionID, err := urlParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID, err := urlParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		WinnerID string        `json:"winner_id"`
		Score    *models.Score `json:"score"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	out, err := h.engine.SubmitResult(r.Context(), services.SubmitResultInput{
		CompetitionID: competitionID,
		MatchID:       matchID,
		WinnerID:      input.WinnerID,
		Score:         input.Score,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, out, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

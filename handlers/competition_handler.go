package handlers

import (
	"context"
	"net/http"

	"github.com/Dosada05/competition-engine/models"
	"github.com/Dosada05/competition-engine/services"
)

type CompetitionHandler struct {
	engine *services.Engine
}

func NewCompetitionHandler(engine *services.Engine) *CompetitionHandler {
	return &CompetitionHandler{engine: engine}
}

func (h *CompetitionHandler) CreateCompetition(w http.ResponseWriter, r *http.Request) {
	var input services.CreateCompetitionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	c, err := h.engine.CreateCompetition(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"competition": c}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) ListCompetitions(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListCompetitions(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"competitions": list}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) GetCompetition(w http.ResponseWriter, r *http.Request) {
	competitionID, err := urlParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.engine.GetCompetition(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"competition": view.Competition, "matches": view.Matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) RegisterParticipant(w http.ResponseWriter, r *http.Request) {
	competitionID, err := urlParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input models.Participant
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	p, err := h.engine.RegisterParticipant(r.Context(), competitionID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": p}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	competitionID, err := urlParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Status models.CompetitionStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	c, err := h.engine.SetStatus(r.Context(), competitionID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"competition": c}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) AssignSeeds(w http.ResponseWriter, r *http.Request) {
	competitionID, err := urlParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Seeds []services.SeedAssignment `json:"seeds"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	res, err := h.engine.AssignSeeds(r.Context(), competitionID, input.Seeds)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, res, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, h.engine.GenerateBracket)
}

func (h *CompetitionHandler) GenerateRoundRobin(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, h.engine.GenerateRoundRobin)
}

func (h *CompetitionHandler) generate(w http.ResponseWriter, r *http.Request, run func(context.Context, string) (*services.GenerateResult, error)) {
	competitionID, err := urlParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	res, err := run(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, res, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) GeneratePlayoffs(w http.ResponseWriter, r *http.Request) {
	competitionID, err := urlParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	res, err := h.engine.GeneratePlayoffs(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, res, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) CompleteCompetition(w http.ResponseWriter, r *http.Request) {
	competitionID, err := urlParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	res, err := h.engine.CompleteCompetition(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, res, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	competitionID, err := urlParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	table, err := h.engine.GetStandings(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": table}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

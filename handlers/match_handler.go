package handlers

import (
	"errors"
	"net/http"

	"github.com/bracketforge/bracketforge/middleware"
	"github.com/bracketforge/bracketforge/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	match, err := h.matchService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

type reportResultRequest struct {
	WinnerEntryID int     `json:"winner_entry_id"`
	Score         *string `json:"score"`
}

// ReportResult accepts a self-report from the authenticated player. The
// reporter identity comes from the token, never from the body.
func (h *MatchHandler) ReportResult(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, ok := middleware.PlayerIDFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var req reportResultRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.WinnerEntryID < 1 {
		badRequestResponse(w, r, errors.New("winner_entry_id is required"))
		return
	}

	report, err := h.matchService.ReportResult(r.Context(), id, req.WinnerEntryID, playerID, req.Score)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report, nil)
}

type overrideResultRequest struct {
	WinnerEntryID int     `json:"winner_entry_id"`
	Score         *string `json:"score"`
}

func (h *MatchHandler) AdminOverride(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var req overrideResultRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.WinnerEntryID < 1 {
		badRequestResponse(w, r, errors.New("winner_entry_id is required"))
		return
	}

	match, err := h.matchService.AdminOverride(r.Context(), id, req.WinnerEntryID, req.Score)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

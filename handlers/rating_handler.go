package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bracketforge/bracketforge/repositories"
	"github.com/bracketforge/bracketforge/services"
)

type RatingHandler struct {
	ratingService services.RatingService
	matchLogRepo  repositories.MatchLogRepository
}

func NewRatingHandler(ratingService services.RatingService, matchLogRepo repositories.MatchLogRepository) *RatingHandler {
	return &RatingHandler{ratingService: ratingService, matchLogRepo: matchLogRepo}
}

func (h *RatingHandler) GetPlayerRatings(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if playerID == "" {
		badRequestResponse(w, r, errors.New("playerID parameter is required"))
		return
	}
	ratings, err := h.ratingService.GetPlayerRatings(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"ratings": ratings}, nil)
}

func (h *RatingHandler) GetPlayerHistory(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if playerID == "" {
		badRequestResponse(w, r, errors.New("playerID parameter is required"))
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	history, err := h.matchLogRepo.ListByPlayer(r.Context(), playerID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"matches": history}, nil)
}

package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// getRankHistoryHandler godoc
//
//	@Summary		Get rank history
//	@Description	Returns the append-only rank change log for a ranking, oldest first
//	@Tags			rankings
//	@Produce		json
//	@Param			ranking_id	path		string	true	"Ranking ID"
//	@Success		200			{array}		domain.RankHistory
//	@Failure		400			{object}	map[string]string
//	@Failure		500			{object}	map[string]string
//	@Router			/rankings/{ranking_id}/history [get]
func (app *application) getRankHistoryHandler(w http.ResponseWriter, r *http.Request) {
	rankingIDStr := chi.URLParam(r, "ranking_id")
	if rankingIDStr == "" {
		app.badRequestResponse(w, r, ErrInvalidID)
		return
	}

	rankingID, err := primitive.ObjectIDFromHex(rankingIDStr)
	if err != nil {
		app.badRequestResponse(w, r, ErrInvalidID)
		return
	}

	entries, err := app.queryService.GetRankHistory(r.Context(), rankingID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, entries); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getTopRankedHandler godoc
//
//	@Summary		Top rankings for a dish across users
//	@Description	Global aggregate view of a dish's rankings across all users, rank ascending then recency
//	@Tags			dishes
//	@Produce		json
//	@Param			dish_id	path		string	true	"Dish ID"
//	@Param			limit	query		int		false	"Maximum results (default 10)"
//	@Success		200		{array}		domain.DishRanking
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/dishes/{dish_id}/top [get]
func (app *application) getTopRankedHandler(w http.ResponseWriter, r *http.Request) {
	dishID := chi.URLParam(r, "dish_id")
	if dishID == "" {
		app.badRequestResponse(w, r, ErrInvalidID)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		limit = parsed
	}

	rankings, err := app.queryService.GetTopRankedAcrossUsers(r.Context(), dishID, limit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, rankings); err != nil {
		app.internalServerError(w, r, err)
	}
}

package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
	"github.com/ming0627/bellyfed-new-sub008/internal/producer"
)

var (
	ErrInvalidID     = errors.New("invalid ID format")
	ErrMissingParams = errors.New("user_id and dish_type are required")
	ErrAmbiguousBody = errors.New("provide exactly one of new_rank or taste_status")
)

type CreateRankingRequest struct {
	UserID       string   `json:"user_id" validate:"required"`
	DishID       string   `json:"dish_id" validate:"required"`
	DishType     string   `json:"dish_type" validate:"required"`
	RestaurantID string   `json:"restaurant_id" validate:"required"`
	Rank         *int     `json:"rank,omitempty" validate:"omitempty,min=1"`
	TasteStatus  string   `json:"taste_status" validate:"required,oneof=ACCEPTABLE SECOND_CHANCE DISSATISFIED"`
	Notes        string   `json:"notes"`
	PhotoRefs    []string `json:"photo_refs"`
}

type UpdateRankingRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	DishType    string `json:"dish_type" validate:"required"`
	NewRank     *int   `json:"new_rank,omitempty" validate:"omitempty,min=1"`
	TasteStatus string `json:"taste_status,omitempty" validate:"omitempty,oneof=ACCEPTABLE SECOND_CHANCE DISSATISFIED"`
	Note        string `json:"note"`
}

type ClearScopeRequest struct {
	UserID       string `json:"user_id" validate:"required"`
	DishType     string `json:"dish_type"`
	RestaurantID string `json:"restaurant_id"`
}

type AcceptedResponse struct {
	Status     string `json:"status"`
	TrackingID string `json:"tracking_id"`
}

// requestNonce returns the client's retry nonce, or a fresh one when the
// client did not supply any. Same nonce, same idempotency key.
func requestNonce(r *http.Request) string {
	if nonce := r.Header.Get("X-Request-Nonce"); nonce != "" {
		return nonce
	}
	return uuid.NewString()
}

// createRankingHandler godoc
//
//	@Summary		Create dish ranking
//	@Description	Enqueues a RANKING_CREATE mutation; the ranking is applied asynchronously
//	@Tags			rankings
//	@Accept			json
//	@Produce		json
//	@Param			X-Request-Nonce	header		string					false	"Client retry nonce for idempotent re-submission"
//	@Param			request			body		CreateRankingRequest	true	"Ranking to create"
//	@Success		202				{object}	AcceptedResponse
//	@Failure		400				{object}	map[string]string
//	@Failure		500				{object}	map[string]string
//	@Router			/rankings [post]
func (app *application) createRankingHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateRankingRequest
	if err := readJson(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	payload := domain.CreateRankingPayload{
		DishID:       req.DishID,
		DishType:     req.DishType,
		RestaurantID: req.RestaurantID,
		Rank:         req.Rank,
		TasteStatus:  domain.TasteStatus(req.TasteStatus),
		Notes:        req.Notes,
		PhotoRefs:    req.PhotoRefs,
	}

	key := producer.IdempotencyKey(req.UserID, req.DishType, req.DishID, domain.EventRankingCreate, requestNonce(r))

	envelope, err := app.producer.Publish(r.Context(), domain.EventRankingCreate, req.UserID, "", key, payload)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	response := AcceptedResponse{
		Status:     "PROCESSING",
		TrackingID: envelope.TraceID,
	}

	if err := app.jsonRespone(w, http.StatusAccepted, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateRankingHandler godoc
//
//	@Summary		Update dish ranking
//	@Description	Enqueues a RANKING_UPDATE (new_rank set) or TASTE_STATUS_UPDATE (taste_status set)
//	@Tags			rankings
//	@Accept			json
//	@Produce		json
//	@Param			ranking_id		path		string					true	"Ranking ID"
//	@Param			X-Request-Nonce	header		string					false	"Client retry nonce for idempotent re-submission"
//	@Param			request			body		UpdateRankingRequest	true	"Fields to update"
//	@Success		202				{object}	AcceptedResponse
//	@Failure		400				{object}	map[string]string
//	@Failure		500				{object}	map[string]string
//	@Router			/rankings/{ranking_id} [put]
func (app *application) updateRankingHandler(w http.ResponseWriter, r *http.Request) {
	rankingID := chi.URLParam(r, "ranking_id")
	if rankingID == "" {
		app.badRequestResponse(w, r, ErrInvalidID)
		return
	}

	var req UpdateRankingRequest
	if err := readJson(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if (req.NewRank == nil) == (req.TasteStatus == "") {
		app.badRequestResponse(w, r, ErrAmbiguousBody)
		return
	}

	var (
		eventType domain.EventType
		payload   any
	)
	if req.NewRank != nil {
		eventType = domain.EventRankingUpdate
		payload = domain.UpdateRankPayload{
			RankingID: rankingID,
			NewRank:   *req.NewRank,
			Note:      req.Note,
		}
	} else {
		eventType = domain.EventTasteStatusUpdate
		payload = domain.UpdateTasteStatusPayload{
			RankingID:   rankingID,
			TasteStatus: domain.TasteStatus(req.TasteStatus),
		}
	}

	// the ranking id stands in for the dish id in the key for update operations
	key := producer.IdempotencyKey(req.UserID, req.DishType, rankingID, eventType, requestNonce(r))

	envelope, err := app.producer.Publish(r.Context(), eventType, req.UserID, "", key, payload)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	response := AcceptedResponse{
		Status:     "PROCESSING",
		TrackingID: envelope.TraceID,
	}

	if err := app.jsonRespone(w, http.StatusAccepted, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getRankingsHandler godoc
//
//	@Summary		List rankings for a scope
//	@Description	Returns the user's best-of list for a dish type, rank ascending, unranked last. Reads bypass the pipeline and may lag in-flight mutations.
//	@Tags			rankings
//	@Produce		json
//	@Param			user_id		query		string	true	"User ID"
//	@Param			dish_type	query		string	true	"Dish type"
//	@Success		200			{array}		domain.DishRanking
//	@Failure		400			{object}	map[string]string
//	@Failure		500			{object}	map[string]string
//	@Router			/rankings [get]
func (app *application) getRankingsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	dishType := r.URL.Query().Get("dish_type")
	if userID == "" || dishType == "" {
		app.badRequestResponse(w, r, ErrMissingParams)
		return
	}

	rankings, err := app.queryService.GetRankings(r.Context(), userID, dishType)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, rankings); err != nil {
		app.internalServerError(w, r, err)
	}
}

// clearScopeHandler godoc
//
//	@Summary		Clear a ranking scope
//	@Description	Enqueues a SCOPE_CLEAR that bulk-deletes all the user's rankings in a dish type or restaurant. Irreversible.
//	@Tags			rankings
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ClearScopeRequest	true	"Scope to clear"
//	@Success		202		{object}	AcceptedResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/rankings/scope [delete]
func (app *application) clearScopeHandler(w http.ResponseWriter, r *http.Request) {
	var req ClearScopeRequest
	if err := readJson(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if req.DishType == "" && req.RestaurantID == "" {
		app.badRequestResponse(w, r, domain.ErrInvalidScope)
		return
	}

	payload := domain.ClearScopePayload{
		DishType:     req.DishType,
		RestaurantID: req.RestaurantID,
	}

	key := producer.IdempotencyKey(req.UserID, req.DishType, req.RestaurantID, domain.EventScopeClear, requestNonce(r))

	envelope, err := app.producer.Publish(r.Context(), domain.EventScopeClear, req.UserID, "", key, payload)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	response := AcceptedResponse{
		Status:     "PROCESSING",
		TrackingID: envelope.TraceID,
	}

	if err := app.jsonRespone(w, http.StatusAccepted, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

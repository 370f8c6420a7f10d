package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/ming0627/bellyfed-new-sub008/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// listDlqMessagesHandler godoc
//
//	@Summary		List dead-letter messages
//	@Description	Administrative inspection of dead-lettered events, filterable by source, event type, status and time range
//	@Tags			admin
//	@Produce		json
//	@Param			source		query		string	false	"Producer source"
//	@Param			event_type	query		string	false	"Event type"
//	@Param			status		query		string	false	"dead or replayed"
//	@Param			from		query		string	false	"RFC3339 lower bound on failure time"
//	@Param			to			query		string	false	"RFC3339 upper bound on failure time"
//	@Param			limit		query		int		false	"Maximum results (default 100)"
//	@Success		200			{array}		domain.DLQMessage
//	@Failure		400			{object}	map[string]string
//	@Failure		500			{object}	map[string]string
//	@Router			/admin/dlq [get]
func (app *application) listDlqMessagesHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := domain.DLQFilter{
		Source:    query.Get("source"),
		EventType: domain.EventType(query.Get("event_type")),
		Status:    domain.DLQStatus(query.Get("status")),
	}

	if from := query.Get("from"); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		filter.From = parsed
	}
	if to := query.Get("to"); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		filter.To = parsed
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		filter.Limit = limit
	}

	messages, err := app.dlqService.ListMessages(r.Context(), filter)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, messages); err != nil {
		app.internalServerError(w, r, err)
	}
}

// replayDlqMessageHandler godoc
//
//	@Summary		Replay a dead-letter message
//	@Description	Re-injects the stored envelope into the main queue with its delivery count reset. Idempotency keys still de-duplicate.
//	@Tags			admin
//	@Produce		json
//	@Param			message_id	path		string	true	"DLQ message ID"
//	@Success		200			{object}	domain.DLQMessage
//	@Failure		400			{object}	map[string]string
//	@Failure		404			{object}	map[string]string
//	@Failure		500			{object}	map[string]string
//	@Router			/admin/dlq/{message_id}/replay [post]
func (app *application) replayDlqMessageHandler(w http.ResponseWriter, r *http.Request) {
	messageIDStr := chi.URLParam(r, "message_id")
	if messageIDStr == "" {
		app.badRequestResponse(w, r, ErrInvalidID)
		return
	}

	messageID, err := primitive.ObjectIDFromHex(messageIDStr)
	if err != nil {
		app.badRequestResponse(w, r, ErrInvalidID)
		return
	}

	msg, err := app.dlqService.ReplayMessage(r.Context(), messageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			app.notFoundError(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, msg); err != nil {
		app.internalServerError(w, r, err)
	}
}

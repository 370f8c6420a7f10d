package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type EventType string

const (
	EventRankingCreate     EventType = "RANKING_CREATE"
	EventRankingUpdate     EventType = "RANKING_UPDATE"
	EventTasteStatusUpdate EventType = "TASTE_STATUS_UPDATE"
	EventScopeClear        EventType = "SCOPE_CLEAR"
)

func (t EventType) Valid() bool {
	switch t {
	case EventRankingCreate, EventRankingUpdate, EventTasteStatusUpdate, EventScopeClear:
		return true
	}
	return false
}

type EventStatus string

const (
	EventStatusPending   EventStatus = "PENDING"
	EventStatusProcessed EventStatus = "PROCESSED"
	EventStatusFailed    EventStatus = "FAILED"
)

// EventEnvelope is the wire format for ranking mutations on the bus. The
// payload is a tagged union discriminated by EventType; DecodePayload resolves
// it into the matching typed payload.
type EventEnvelope struct {
	EventID        string          `json:"eventId" validate:"required"`
	Timestamp      time.Time       `json:"timestamp"`
	EventType      EventType       `json:"eventType" validate:"required"`
	Source         string          `json:"source"`
	Version        string          `json:"version"`
	TraceID        string          `json:"traceId"`
	UserID         string          `json:"userId" validate:"required"`
	Status         EventStatus     `json:"status"`
	IdempotencyKey string          `json:"idempotencyKey" validate:"required"`
	Payload        json.RawMessage `json:"payload" validate:"required"`
}

type CreateRankingPayload struct {
	DishID       string      `json:"dishId" validate:"required"`
	DishType     string      `json:"dishType" validate:"required"`
	RestaurantID string      `json:"restaurantId" validate:"required"`
	Rank         *int        `json:"rank,omitempty" validate:"omitempty,min=1"`
	TasteStatus  TasteStatus `json:"tasteStatus" validate:"required,oneof=ACCEPTABLE SECOND_CHANCE DISSATISFIED"`
	Notes        string      `json:"notes,omitempty"`
	PhotoRefs    []string    `json:"photoRefs,omitempty"`
}

type UpdateRankPayload struct {
	RankingID string `json:"rankingId" validate:"required"`
	NewRank   int    `json:"newRank" validate:"required,min=1"`
	Note      string `json:"note,omitempty"`
}

type UpdateTasteStatusPayload struct {
	RankingID   string      `json:"rankingId" validate:"required"`
	TasteStatus TasteStatus `json:"tasteStatus" validate:"required,oneof=ACCEPTABLE SECOND_CHANCE DISSATISFIED"`
}

type ClearScopePayload struct {
	DishType     string `json:"dishType,omitempty"`
	RestaurantID string `json:"restaurantId,omitempty"`
}

var validate = validator.New()

// Validate checks the envelope header fields.
func (e *EventEnvelope) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("invalid envelope: %w", err)
	}
	if !e.EventType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, e.EventType)
	}
	return nil
}

// DecodePayload resolves the envelope's raw payload into the typed payload for
// its event type, validating required fields.
func (e *EventEnvelope) DecodePayload() (any, error) {
	var payload any

	switch e.EventType {
	case EventRankingCreate:
		payload = &CreateRankingPayload{}
	case EventRankingUpdate:
		payload = &UpdateRankPayload{}
	case EventTasteStatusUpdate:
		payload = &UpdateTasteStatusPayload{}
	case EventScopeClear:
		payload = &ClearScopePayload{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, e.EventType)
	}

	if err := json.Unmarshal(e.Payload, payload); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal %s payload: %w", ErrInvalidPayload, e.EventType, err)
	}

	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %w", ErrInvalidPayload, e.EventType, err)
	}

	if p, ok := payload.(*ClearScopePayload); ok {
		if p.DishType == "" && p.RestaurantID == "" {
			return nil, ErrInvalidScope
		}
	}

	return payload, nil
}

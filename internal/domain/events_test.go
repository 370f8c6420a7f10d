package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnvelope(eventType EventType, payload any) *EventEnvelope {
	raw, _ := json.Marshal(payload)
	return &EventEnvelope{
		EventID:        "evt-1",
		Timestamp:      time.Now(),
		EventType:      eventType,
		Source:         "ranking-api",
		Version:        "1",
		TraceID:        "trace-1",
		UserID:         "user-1",
		Status:         EventStatusPending,
		IdempotencyKey: "key-1",
		Payload:        raw,
	}
}

func TestEnvelopeValidate(t *testing.T) {
	env := validEnvelope(EventRankingCreate, CreateRankingPayload{
		DishID: "d", DishType: "ramen", RestaurantID: "r", TasteStatus: TasteAcceptable,
	})
	require.NoError(t, env.Validate())

	missing := *env
	missing.IdempotencyKey = ""
	assert.Error(t, missing.Validate())

	unknown := *env
	unknown.EventType = "DISH_EXPLODE"
	assert.ErrorIs(t, unknown.Validate(), ErrUnknownEventType)
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name      string
		eventType EventType
		payload   any
		wantErr   error
		check     func(t *testing.T, got any)
	}{
		{
			name:      "create ranking",
			eventType: EventRankingCreate,
			payload: CreateRankingPayload{
				DishID: "dish-1", DishType: "ramen", RestaurantID: "rest-1",
				Rank: intPtr(2), TasteStatus: TasteAcceptable, Notes: "rich broth",
			},
			check: func(t *testing.T, got any) {
				p, ok := got.(*CreateRankingPayload)
				require.True(t, ok)
				assert.Equal(t, "dish-1", p.DishID)
				assert.Equal(t, 2, *p.Rank)
			},
		},
		{
			name:      "update rank",
			eventType: EventRankingUpdate,
			payload:   UpdateRankPayload{RankingID: "64f000000000000000000001", NewRank: 3},
			check: func(t *testing.T, got any) {
				p, ok := got.(*UpdateRankPayload)
				require.True(t, ok)
				assert.Equal(t, 3, p.NewRank)
			},
		},
		{
			name:      "taste status update",
			eventType: EventTasteStatusUpdate,
			payload:   UpdateTasteStatusPayload{RankingID: "64f000000000000000000001", TasteStatus: TasteDissatisfied},
			check: func(t *testing.T, got any) {
				p, ok := got.(*UpdateTasteStatusPayload)
				require.True(t, ok)
				assert.Equal(t, TasteDissatisfied, p.TasteStatus)
			},
		},
		{
			name:      "scope clear by dish type",
			eventType: EventScopeClear,
			payload:   ClearScopePayload{DishType: "ramen"},
			check: func(t *testing.T, got any) {
				p, ok := got.(*ClearScopePayload)
				require.True(t, ok)
				assert.Equal(t, "ramen", p.DishType)
			},
		},
		{
			name:      "scope clear needs a target",
			eventType: EventScopeClear,
			payload:   ClearScopePayload{},
			wantErr:   ErrInvalidScope,
		},
		{
			name:      "create without dish id",
			eventType: EventRankingCreate,
			payload:   CreateRankingPayload{DishType: "ramen", RestaurantID: "r", TasteStatus: TasteAcceptable},
			wantErr:   ErrInvalidPayload,
		},
		{
			name:      "update with zero rank",
			eventType: EventRankingUpdate,
			payload:   UpdateRankPayload{RankingID: "64f000000000000000000001", NewRank: 0},
			wantErr:   ErrInvalidPayload,
		},
		{
			name:      "bad taste status",
			eventType: EventTasteStatusUpdate,
			payload:   UpdateTasteStatusPayload{RankingID: "64f000000000000000000001", TasteStatus: "MEDIOCRE"},
			wantErr:   ErrInvalidPayload,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := validEnvelope(tc.eventType, tc.payload)
			got, err := env.DecodePayload()
			if tc.wantErr != nil {
				require.Error(t, err)
				if tc.wantErr != assert.AnError {
					assert.ErrorIs(t, err, tc.wantErr)
				}
				return
			}
			require.NoError(t, err)
			tc.check(t, got)
		})
	}
}

func TestDecodePayload_MalformedJSON(t *testing.T) {
	env := validEnvelope(EventRankingCreate, nil)
	env.Payload = json.RawMessage(`{"dishId":`)
	_, err := env.DecodePayload()
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(ErrNotFound))
	assert.True(t, IsPermanent(ErrDuplicateDish))
	assert.True(t, IsPermanent(ErrInvalidRank))
	assert.True(t, IsPermanent(ErrInvalidScope))
	assert.True(t, IsPermanent(ErrInvalidStatus))
	assert.True(t, IsPermanent(ErrInvalidPayload))
	assert.True(t, IsPermanent(ErrUnknownEventType))
	assert.False(t, IsPermanent(assert.AnError))
	assert.False(t, IsPermanent(nil))
}

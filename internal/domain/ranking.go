package domain

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TasteStatus string

const (
	TasteAcceptable   TasteStatus = "ACCEPTABLE"
	TasteSecondChance TasteStatus = "SECOND_CHANCE"
	TasteDissatisfied TasteStatus = "DISSATISFIED"
)

func (s TasteStatus) Valid() bool {
	switch s {
	case TasteAcceptable, TasteSecondChance, TasteDissatisfied:
		return true
	}
	return false
}

// MaxRankedPerScope caps the length of a user's best-of list per dish type.
// Entries pushed past this position stay reviewed but lose their rank.
const MaxRankedPerScope = 10

type DishRanking struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       string             `bson:"user_id" json:"user_id"`
	DishID       string             `bson:"dish_id" json:"dish_id"`
	DishType     string             `bson:"dish_type" json:"dish_type"`
	RestaurantID string             `bson:"restaurant_id" json:"restaurant_id"`
	Rank         *int               `bson:"rank,omitempty" json:"rank,omitempty"`
	TasteStatus  TasteStatus        `bson:"taste_status" json:"taste_status"`
	Notes        string             `bson:"notes,omitempty" json:"notes,omitempty"`
	PhotoRefs    []string           `bson:"photo_refs,omitempty" json:"photo_refs,omitempty"`
	HistorySeq   int                `bson:"history_seq" json:"-"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// RankChange is one planned rank move inside a scope. A mutation produces one
// change per ranking whose rank differs after reordering.
type RankChange struct {
	RankingID    primitive.ObjectID
	PreviousRank *int
	NewRank      *int
}

// Reorder computes the rank changes needed to place the ranking with the given
// id at newRank within its scope, shifting neighbours so that ranks stay unique
// and dense (1..n). A nil newRank unranks the entry and closes the gap it
// leaves. The scope slice is a snapshot of every ranking in (userID, dishType),
// ranked or not; it is not modified.
//
// Requested ranks are clamped to the end of the current list, and entries
// pushed past MaxRankedPerScope drop to a nil rank.
func Reorder(scope []DishRanking, id primitive.ObjectID, newRank *int) ([]RankChange, error) {
	var target *DishRanking
	for i := range scope {
		if scope[i].ID == id {
			target = &scope[i]
			break
		}
	}
	if target == nil {
		return nil, ErrNotFound
	}

	if newRank != nil && *newRank < 1 {
		return nil, ErrInvalidRank
	}

	// ordered list of everything ranked, excluding the target
	ordered := make([]*DishRanking, 0, len(scope))
	for i := range scope {
		if scope[i].ID == id || scope[i].Rank == nil {
			continue
		}
		ordered = append(ordered, &scope[i])
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return *ordered[i].Rank < *ordered[j].Rank
	})

	if newRank != nil {
		pos := *newRank
		if pos > len(ordered)+1 {
			pos = len(ordered) + 1
		}
		ordered = append(ordered, nil)
		copy(ordered[pos:], ordered[pos-1:])
		ordered[pos-1] = target
	}

	changes := make([]RankChange, 0, len(ordered)+1)
	seen := false
	for i, r := range ordered {
		rank := i + 1
		var next *int
		if rank <= MaxRankedPerScope {
			next = &rank
		}
		if r.ID == id {
			seen = true
		}
		if !rankEqual(r.Rank, next) {
			changes = append(changes, RankChange{RankingID: r.ID, PreviousRank: r.Rank, NewRank: next})
		}
	}
	if !seen && target.Rank != nil {
		// target moved to unranked
		changes = append(changes, RankChange{RankingID: target.ID, PreviousRank: target.Rank, NewRank: nil})
	}

	return changes, nil
}

// CloseGap recomputes a scope's ordering after the ranking with the given id
// has been removed, shifting everything below it up by one.
func CloseGap(scope []DishRanking, removed primitive.ObjectID) []RankChange {
	ordered := make([]*DishRanking, 0, len(scope))
	for i := range scope {
		if scope[i].ID == removed || scope[i].Rank == nil {
			continue
		}
		ordered = append(ordered, &scope[i])
	}

	return renumber(ordered)
}

// Compact renumbers a scope's surviving ranked entries back to 1..n after a
// bulk deletion has punched holes in the ordering.
func Compact(scope []DishRanking) []RankChange {
	ordered := make([]*DishRanking, 0, len(scope))
	for i := range scope {
		if scope[i].Rank == nil {
			continue
		}
		ordered = append(ordered, &scope[i])
	}

	return renumber(ordered)
}

func renumber(ordered []*DishRanking) []RankChange {
	sort.SliceStable(ordered, func(i, j int) bool {
		return *ordered[i].Rank < *ordered[j].Rank
	})

	var changes []RankChange
	for i, r := range ordered {
		rank := i + 1
		if *r.Rank != rank {
			changes = append(changes, RankChange{RankingID: r.ID, PreviousRank: r.Rank, NewRank: &rank})
		}
	}

	return changes
}

// SortForDisplay orders rankings by rank ascending with unranked entries last,
// ties broken by most recently updated.
func SortForDisplay(rankings []DishRanking) {
	sort.SliceStable(rankings, func(i, j int) bool {
		ri, rj := rankings[i].Rank, rankings[j].Rank
		switch {
		case ri != nil && rj != nil && *ri != *rj:
			return *ri < *rj
		case ri != nil && rj == nil:
			return true
		case ri == nil && rj != nil:
			return false
		}
		return rankings[i].UpdatedAt.After(rankings[j].UpdatedAt)
	})
}

func rankEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

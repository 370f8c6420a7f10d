package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RankHistory is an append-only record of one rank move. Entries are never
// mutated after creation; Seq increases monotonically per ranking.
type RankHistory struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RankingID    primitive.ObjectID `bson:"ranking_id" json:"ranking_id"`
	Seq          int                `bson:"seq" json:"seq"`
	PreviousRank *int               `bson:"previous_rank,omitempty" json:"previous_rank,omitempty"`
	NewRank      *int               `bson:"new_rank,omitempty" json:"new_rank,omitempty"`
	Note         string             `bson:"note,omitempty" json:"note,omitempty"`
	ChangedAt    time.Time          `bson:"changed_at" json:"changed_at"`
}

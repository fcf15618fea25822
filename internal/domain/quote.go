package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Quote is a hadith shown by the "hadith of the day" feature.
type Quote struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Text      string             `bson:"text" json:"text"`
	Author    string             `bson:"author" json:"author"`
	CreatedAt time.Time          `bson:"created_at" json:"-"`
}

// FallbackQuote is served when the quote collection is empty.
var FallbackQuote = Quote{Text: "Нет доступных хадисов.", Author: "Система"}

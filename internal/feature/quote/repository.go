// Package quote stores the hadiths served by the "hadith of the day" feature.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ruznama_bot/internal/domain"
	"ruznama_bot/internal/logging"
)

type quoteCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// Repository persists hadiths in MongoDB.
type Repository struct {
	coll   quoteCollection
	logger *logrus.Entry
	now    func() time.Time
	pick   func(n int) int
}

// NewRepository constructs a Repository for the quotes collection.
func NewRepository(coll quoteCollection, logger *logrus.Entry) *Repository {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Repository{
		coll:   coll,
		logger: logger,
		now:    time.Now,
		pick:   rand.IntN,
	}
}

// Parse splits "text — author" as typed after /addquote.
func Parse(args string) (text, author string, err error) {
	idx := strings.LastIndex(args, "—")
	if idx < 0 {
		return "", "", errors.New("expected \"text — author\"")
	}

	text = strings.TrimSpace(args[:idx])
	author = strings.TrimSpace(args[idx+len("—"):])
	if text == "" || author == "" {
		return "", "", errors.New("text and author are required")
	}

	return text, author, nil
}

// Add stores a new hadith.
func (r *Repository) Add(ctx context.Context, text, author string) (domain.Quote, error) {
	if err := r.check(ctx); err != nil {
		return domain.Quote{}, err
	}

	q := domain.Quote{
		ID:        primitive.NewObjectID(),
		Text:      strings.TrimSpace(text),
		Author:    strings.TrimSpace(author),
		CreatedAt: r.now().UTC().Truncate(time.Millisecond),
	}
	if q.Text == "" || q.Author == "" {
		return domain.Quote{}, errors.New("text and author are required")
	}

	if _, err := r.coll.InsertOne(ctx, q); err != nil {
		return domain.Quote{}, fmt.Errorf("insert quote: %w", err)
	}

	r.logger.WithFields(logging.Fields{
		"event":    "quote_added",
		"quote_id": q.ID.Hex(),
	}).Info("quote added")

	return q, nil
}

// List returns all hadiths in insertion order.
func (r *Repository) List(ctx context.Context) ([]domain.Quote, error) {
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer cursor.Close(ctx)

	quotes := make([]domain.Quote, 0)
	if err := cursor.All(ctx, &quotes); err != nil {
		return nil, fmt.Errorf("decode quotes: %w", err)
	}

	return quotes, nil
}

// DeleteAt removes the n-th hadith (1-based) of List.
func (r *Repository) DeleteAt(ctx context.Context, n int) (domain.Quote, error) {
	quotes, err := r.List(ctx)
	if err != nil {
		return domain.Quote{}, err
	}
	if n < 1 || n > len(quotes) {
		return domain.Quote{}, fmt.Errorf("quote %d of %d: %w", n, len(quotes), domain.ErrQuoteNotFound)
	}

	target := quotes[n-1]
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": target.ID})
	if err != nil {
		return domain.Quote{}, fmt.Errorf("delete quote: %w", err)
	}
	if result != nil && result.DeletedCount == 0 {
		return domain.Quote{}, domain.ErrQuoteNotFound
	}

	r.logger.WithFields(logging.Fields{
		"event":    "quote_deleted",
		"quote_id": target.ID.Hex(),
	}).Info("quote deleted")

	return target, nil
}

// Random returns a random hadith, or FallbackQuote when none are stored.
func (r *Repository) Random(ctx context.Context) (domain.Quote, error) {
	quotes, err := r.List(ctx)
	if err != nil {
		return domain.Quote{}, err
	}
	if len(quotes) == 0 {
		return domain.FallbackQuote, nil
	}

	return quotes[r.pick(len(quotes))], nil
}

// SeedIfEmpty imports the quotes file into an empty collection and returns
// the number of inserted hadiths. A missing file is not an error.
func (r *Repository) SeedIfEmpty(ctx context.Context, path string) (int, error) {
	if err := r.check(ctx); err != nil {
		return 0, err
	}

	count, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count quotes: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.WithFields(logging.Fields{
				"event": "quotes_seed_missing",
				"path":  path,
			}).Warn("quotes file not found; collection left empty")
			return 0, nil
		}
		return 0, fmt.Errorf("read quotes file: %w", err)
	}

	var entries []struct {
		Text   string `json:"text"`
		Author string `json:"author"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0, fmt.Errorf("decode quotes file: %w", err)
	}

	base := r.now().UTC().Truncate(time.Millisecond)
	docs := make([]interface{}, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		docs = append(docs, domain.Quote{
			ID:     primitive.NewObjectID(),
			Text:   strings.TrimSpace(e.Text),
			Author: strings.TrimSpace(e.Author),
			// keep file order stable under the created_at sort
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		})
	}
	if len(docs) == 0 {
		return 0, nil
	}

	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return 0, fmt.Errorf("seed quotes: %w", err)
	}

	r.logger.WithFields(logging.Fields{
		"event": "quotes_seeded",
		"count": len(docs),
	}).Info("seeded quotes collection")

	return len(docs), nil
}

func (r *Repository) check(ctx context.Context) error {
	if r == nil || r.coll == nil {
		return errors.New("quote repository is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	return nil
}

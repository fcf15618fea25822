// Package subscription persists users, their chosen location and their
// reminder opt-in.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ruznama_bot/internal/domain"
	"ruznama_bot/internal/logging"
	"ruznama_bot/internal/store"
)

type subscriptionCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// Store is the Mongo-backed subscription store. It is shared by the update
// handlers and the reminder scheduler.
type Store struct {
	coll   subscriptionCollection
	logger *logrus.Entry
	now    func() time.Time
}

// NewStore constructs a Store for the provided subscriptions collection.
func NewStore(coll subscriptionCollection, logger *logrus.Entry) *Store {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Store{
		coll:   coll,
		logger: logger,
		now:    time.Now,
	}
}

// EnsureUser upserts the user record and updates last_seen_at/updated_at on
// every call. New users start unsubscribed with no location. It reports
// whether the record was created.
func (s *Store) EnsureUser(ctx context.Context, userID string) (bool, error) {
	if err := s.check(ctx, userID); err != nil {
		return false, err
	}

	now := s.timestamp()
	update := bson.M{
		"$set": bson.M{
			"updated_at":   now,
			"last_seen_at": now,
		},
		"$setOnInsert": bson.M{
			"user_id":    userID,
			"subscribed": false,
			"created_at": now,
		},
	}

	result, err := s.coll.UpdateOne(ctx,
		bson.M{"user_id": userID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}

	created := result != nil && result.UpsertedCount > 0
	if created {
		s.logger.WithFields(logging.Fields{
			"event":   "user_registered",
			"user_id": userID,
		}).Info("registered new user")
		return true, nil
	}

	s.logger.WithFields(logging.Fields{
		"event":   "user_seen",
		"user_id": userID,
	}).Debug("updated user last seen")

	return false, nil
}

// SetLocation remembers the user's chosen location, creating the record when
// needed.
func (s *Store) SetLocation(ctx context.Context, userID, locationID string) error {
	if err := s.check(ctx, userID); err != nil {
		return err
	}
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return errors.New("location id is required")
	}

	now := s.timestamp()
	update := bson.M{
		"$set": bson.M{
			"location_id":  locationID,
			"updated_at":   now,
			"last_seen_at": now,
		},
		"$setOnInsert": bson.M{
			"user_id":    userID,
			"subscribed": false,
			"created_at": now,
		},
	}

	if _, err := s.coll.UpdateOne(ctx, bson.M{"user_id": userID}, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("set location: %w", err)
	}

	s.logger.WithFields(logging.Fields{
		"event":       "location_selected",
		"user_id":     userID,
		"location_id": locationID,
	}).Debug("stored user location")

	return nil
}

// SetSubscribed flips the reminder flag of an existing user.
func (s *Store) SetSubscribed(ctx context.Context, userID string, value bool) error {
	if err := s.check(ctx, userID); err != nil {
		return err
	}

	update := bson.M{
		"$set": bson.M{
			"subscribed": value,
			"updated_at": s.timestamp(),
		},
	}

	result, err := s.coll.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		return fmt.Errorf("set subscribed: %w", err)
	}
	if result != nil && result.MatchedCount == 0 {
		return domain.ErrSubscriptionNotFound
	}

	s.logger.WithFields(logging.Fields{
		"event":      "subscription_changed",
		"user_id":    userID,
		"subscribed": value,
	}).Info("subscription updated")

	return nil
}

// Delete removes the user's record.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.check(ctx, userID); err != nil {
		return err
	}

	result, err := s.coll.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if result != nil && result.DeletedCount == 0 {
		return domain.ErrSubscriptionNotFound
	}

	s.logger.WithFields(logging.Fields{
		"event":   "subscription_deleted",
		"user_id": userID,
	}).Info("subscription deleted")

	return nil
}

// Get fetches a user's record.
func (s *Store) Get(ctx context.Context, userID string) (domain.Subscription, error) {
	if err := s.check(ctx, userID); err != nil {
		return domain.Subscription{}, err
	}

	result := s.coll.FindOne(ctx, bson.M{"user_id": userID})
	if result == nil {
		return domain.Subscription{}, errors.New("find subscription returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Subscription{}, domain.ErrSubscriptionNotFound
		}
		return domain.Subscription{}, fmt.Errorf("find subscription: %w", err)
	}

	var sub domain.Subscription
	if err := result.Decode(&sub); err != nil {
		return domain.Subscription{}, fmt.Errorf("decode subscription: %w", err)
	}

	return sub, nil
}

// ListActive returns a snapshot of subscriptions eligible for reminders.
func (s *Store) ListActive(ctx context.Context) ([]domain.Subscription, error) {
	return s.list(ctx, store.ActiveFilter(), "list active subscriptions")
}

// ListAll returns every known user.
func (s *Store) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	return s.list(ctx, bson.D{}, "list subscriptions")
}

func (s *Store) list(ctx context.Context, filter bson.D, op string) ([]domain.Subscription, error) {
	if s == nil || s.coll == nil {
		return nil, errors.New("subscription store is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	subs := make([]domain.Subscription, 0)
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return subs, nil
}

func (s *Store) check(ctx context.Context, userID string) error {
	if s == nil || s.coll == nil {
		return errors.New("subscription store is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is required")
	}
	return nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

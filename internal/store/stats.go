package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type countCollection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// StatsProvider exposes helper methods to retrieve collection counts for the
// statistics screens without leaking MongoDB internals to callers.
type StatsProvider struct {
	subscriptions countCollection
	quotes        countCollection
}

// NewStatsProvider constructs a StatsProvider backed by the provided
// subscription and quote collections.
func NewStatsProvider(subscriptions, quotes countCollection) *StatsProvider {
	return &StatsProvider{
		subscriptions: subscriptions,
		quotes:        quotes,
	}
}

// ActiveFilter matches subscriptions that should receive reminders.
func ActiveFilter() bson.D {
	return bson.D{
		{Key: "subscribed", Value: true},
		{Key: "location_id", Value: bson.D{{Key: "$nin", Value: bson.A{nil, ""}}}},
	}
}

// CountUsers returns the number of known users.
func (p *StatsProvider) CountUsers(ctx context.Context) (int64, error) {
	if err := p.check(ctx, p.subscriptionsColl()); err != nil {
		return 0, err
	}

	count, err := p.subscriptions.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

// CountSubscribed returns the number of users with reminders enabled.
func (p *StatsProvider) CountSubscribed(ctx context.Context) (int64, error) {
	if err := p.check(ctx, p.subscriptionsColl()); err != nil {
		return 0, err
	}

	count, err := p.subscriptions.CountDocuments(ctx, ActiveFilter())
	if err != nil {
		return 0, fmt.Errorf("count subscribed: %w", err)
	}

	return count, nil
}

// CountQuotes returns the number of stored hadiths.
func (p *StatsProvider) CountQuotes(ctx context.Context) (int64, error) {
	var coll countCollection
	if p != nil {
		coll = p.quotes
	}
	if err := p.check(ctx, coll); err != nil {
		return 0, err
	}

	count, err := p.quotes.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count quotes: %w", err)
	}

	return count, nil
}

func (p *StatsProvider) subscriptionsColl() countCollection {
	if p == nil {
		return nil
	}
	return p.subscriptions
}

func (p *StatsProvider) check(ctx context.Context, coll countCollection) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if p == nil || coll == nil {
		return errors.New("stats provider is not initialized")
	}
	return nil
}

// Package notify announces new financing requests and listings. Delivery is
// best effort: callers log failures and carry on.
package notify

import (
	"context"
	"errors"
	"time"
)

// FinancingEvent announces a submitted financing request.
type FinancingEvent struct {
	RequestID   string    `json:"request_id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	CarBrand    string    `json:"car_brand"`
	CarModel    string    `json:"car_model"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ListingEvent announces a newly created listing.
type ListingEvent struct {
	ListingID string    `json:"listing_id"`
	Title     string    `json:"title"`
	Brand     string    `json:"brand"`
	Model     string    `json:"model"`
	Year      int       `json:"year"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier delivers domain events.
type Notifier interface {
	FinancingSubmitted(ctx context.Context, e FinancingEvent) error
	ListingCreated(ctx context.Context, e ListingEvent) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) FinancingSubmitted(context.Context, FinancingEvent) error { return nil }
func (Noop) ListingCreated(context.Context, ListingEvent) error       { return nil }

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) FinancingSubmitted(ctx context.Context, e FinancingEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.FinancingSubmitted(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) ListingCreated(ctx context.Context, e ListingEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.ListingCreated(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

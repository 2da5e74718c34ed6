package database

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/jackc/pgx/v5"
)

const listingColumns = `id, title, brand, model, year, price, color, transmission, mileage,
	description, contact_number, status, featured, view_count, contact_count,
	sync_state, pending_features, sync_error, sync_updated_at, created_at, updated_at`

func scanListing(row pgx.Row) (*domain.VehicleListing, error) {
	var (
		l       domain.VehicleListing
		pending []string
	)
	err := row.Scan(
		&l.ID, &l.Title, &l.Brand, &l.Model, &l.Year, &l.Price, &l.Color, &l.Transmission, &l.Mileage,
		&l.Description, &l.ContactNumber, &l.Status, &l.Featured, &l.ViewCount, &l.ContactCount,
		&l.SyncState, &pending, &l.SyncError, &l.SyncUpdatedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.PendingFeatures = toTags(pending)
	return &l, nil
}

// CreateListing inserts l and fills its generated fields.
func (s *Store) CreateListing(ctx context.Context, l *domain.VehicleListing) error {
	if l.Status == "" {
		l.Status = domain.ListingPending
	}
	if l.SyncState == "" {
		l.SyncState = domain.SyncComplete
	}
	err := s.pool.QueryRow(ctx, `INSERT INTO car_ads (
			title, brand, model, year, price, color, transmission, mileage,
			description, contact_number, status, featured, sync_state, pending_features, sync_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, view_count, contact_count, sync_updated_at, created_at, updated_at`,
		l.Title, l.Brand, l.Model, l.Year, l.Price, l.Color, l.Transmission, l.Mileage,
		l.Description, l.ContactNumber, l.Status, l.Featured, l.SyncState, fromTags(l.PendingFeatures), l.SyncError,
	).Scan(&l.ID, &l.ViewCount, &l.ContactCount, &l.SyncUpdatedAt, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// UpdateListing overwrites the editable columns of l.
func (s *Store) UpdateListing(ctx context.Context, l *domain.VehicleListing) error {
	err := s.pool.QueryRow(ctx, `UPDATE car_ads SET
			title = $2, brand = $3, model = $4, year = $5, price = $6, color = $7,
			transmission = $8, mileage = $9, description = $10, contact_number = $11,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		l.ID, l.Title, l.Brand, l.Model, l.Year, l.Price, l.Color,
		l.Transmission, l.Mileage, l.Description, l.ContactNumber,
	).Scan(&l.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrListingNotFound
		}
		return notFound(err, domain.ErrListingNotFound)
	}
	return nil
}

// GetListing loads a listing with its images and features.
func (s *Store) GetListing(ctx context.Context, id string) (*domain.VehicleListing, error) {
	l, err := scanListing(s.pool.QueryRow(ctx, "SELECT "+listingColumns+" FROM car_ads WHERE id = $1", id))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrListingNotFound
		}
		return nil, notFound(err, domain.ErrListingNotFound)
	}

	if l.Images, err = s.ListImages(ctx, l.ID); err != nil {
		return nil, err
	}
	if l.Features, err = s.ListFeatures(ctx, l.ID); err != nil {
		return nil, err
	}
	return l, nil
}

func listingWhere(f domain.ListingFilter) *whereBuilder {
	wb := newWhereBuilder()
	wb.Add("status", string(f.Status))
	wb.Add("sync_state", string(f.SyncState))
	if f.Brand != "" {
		wb.AddExpr("brand ILIKE ?", escapeLike(f.Brand))
	}
	if f.Model != "" {
		wb.AddExpr("model ILIKE ?", "%"+escapeLike(f.Model)+"%")
	}
	wb.Add("transmission", f.Transmission)
	if f.MinYear > 0 {
		wb.AddExpr("year >= ?", f.MinYear)
	}
	if f.MaxYear > 0 {
		wb.AddExpr("year <= ?", f.MaxYear)
	}
	if f.MinPrice > 0 {
		wb.AddExpr("price >= ?", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		wb.AddExpr("price <= ?", f.MaxPrice)
	}
	if f.FeaturedOnly {
		wb.AddRaw("featured")
	}
	wb.AddSearch(f.Query, "title", "brand", "model", "description")
	return wb
}

// ListListings returns one page of listings plus the total match count.
// Each listing carries its primary image, if any.
func (s *Store) ListListings(ctx context.Context, f domain.ListingFilter) ([]domain.VehicleListing, int, error) {
	where, args := listingWhere(f).Build()

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM car_ads"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}

	n := len(args)
	query := "SELECT " + listingColumns + " FROM car_ads" + where +
		fmt.Sprintf(" ORDER BY featured DESC, created_at DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, f.Limit(), f.Offset())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	listings := make([]domain.VehicleListing, 0)
	ids := make([]string, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		listings = append(listings, *l)
		ids = append(ids, l.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		primaries, err := s.primaryImages(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range listings {
			if img, ok := primaries[listings[i].ID]; ok {
				listings[i].Images = []domain.VehicleImage{img}
			}
		}
	}
	return listings, total, nil
}

// SetListingStatus moves a listing through its lifecycle.
func (s *Store) SetListingStatus(ctx context.Context, id string, status domain.ListingStatus) error {
	return s.execOne(ctx, domain.ErrListingNotFound,
		"UPDATE car_ads SET status = $2, updated_at = NOW() WHERE id = $1", id, status)
}

// SetListingFeatured toggles the featured flag.
func (s *Store) SetListingFeatured(ctx context.Context, id string, featured bool) error {
	return s.execOne(ctx, domain.ErrListingNotFound,
		"UPDATE car_ads SET featured = $2, updated_at = NOW() WHERE id = $1", id, featured)
}

// DeleteListing removes the row; images and features cascade.
func (s *Store) DeleteListing(ctx context.Context, id string) error {
	return s.execOne(ctx, domain.ErrListingNotFound, "DELETE FROM car_ads WHERE id = $1", id)
}

// IncrementViewCount calls the increment_view_count SQL function.
func (s *Store) IncrementViewCount(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, "SELECT increment_view_count($1)", id)
	return err
}

// IncrementContactCount calls the increment_contact_count SQL function.
func (s *Store) IncrementContactCount(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, "SELECT increment_contact_count($1)", id)
	return err
}

// ReplaceFeatures deletes all feature rows of the listing and inserts tags.
func (s *Store) ReplaceFeatures(ctx context.Context, listingID string, tags []domain.FeatureTag) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM car_features WHERE car_id = $1", listingID); err != nil {
			return fmt.Errorf("delete features: %w", err)
		}
		if len(tags) == 0 {
			return nil
		}
		rows := make([][]any, len(tags))
		for i, t := range tags {
			rows[i] = []any{listingID, string(t)}
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"car_features"}, []string{"car_id", "feature"},
			pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("insert features: %w", err)
		}
		return nil
	})
}

// ListFeatures returns the feature tags of a listing.
func (s *Store) ListFeatures(ctx context.Context, listingID string) ([]domain.FeatureTag, error) {
	rows, err := s.pool.Query(ctx, "SELECT feature FROM car_features WHERE car_id = $1 ORDER BY feature", listingID)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return toTags(names), nil
}

// RecordSync stores the saga state of a listing's child writes.
func (s *Store) RecordSync(ctx context.Context, id string, state domain.SyncState, pending []domain.FeatureTag, syncErr string) error {
	return s.execOne(ctx, domain.ErrListingNotFound,
		`UPDATE car_ads SET sync_state = $2, pending_features = $3, sync_error = $4, sync_updated_at = NOW()
		WHERE id = $1`, id, state, fromTags(pending), syncErr)
}

// ListStale returns listings with child writes to retry that were not
// touched since before, oldest first.
func (s *Store) ListStale(ctx context.Context, before time.Time, limit int) ([]domain.VehicleListing, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+listingColumns+` FROM car_ads
		WHERE sync_updated_at < $1
		  AND (sync_state = $2 OR (sync_state = $3 AND cardinality(pending_features) > 0))
		ORDER BY sync_updated_at LIMIT $4`,
		before, domain.SyncAwaitingChildren, domain.SyncNeedsRepair, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale listings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.VehicleListing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// execOne runs a statement that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, missing error, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return missing
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return missing
	}
	return nil
}

func toTags(names []string) []domain.FeatureTag {
	if len(names) == 0 {
		return nil
	}
	tags := make([]domain.FeatureTag, len(names))
	for i, n := range names {
		tags[i] = domain.FeatureTag(n)
	}
	return tags
}

func fromTags(tags []domain.FeatureTag) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = string(t)
	}
	return names
}

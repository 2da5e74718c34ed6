package database

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/jackc/pgx/v5"
)

const imageColumns = "id, COALESCE(car_id::text, ''), url, storage_key, is_primary, created_at"

func scanImage(row pgx.Row) (*domain.VehicleImage, error) {
	var img domain.VehicleImage
	if err := row.Scan(&img.ID, &img.ListingID, &img.URL, &img.StorageKey, &img.Primary, &img.CreatedAt); err != nil {
		return nil, err
	}
	return &img, nil
}

// ListImages returns the images of a listing, primary first.
func (s *Store) ListImages(ctx context.Context, listingID string) ([]domain.VehicleImage, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+imageColumns+
		" FROM car_images WHERE car_id = $1 ORDER BY is_primary DESC, created_at", listingID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	images := make([]domain.VehicleImage, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

func (s *Store) primaryImages(ctx context.Context, listingIDs []string) (map[string]domain.VehicleImage, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+imageColumns+
		" FROM car_images WHERE car_id = ANY($1::uuid[]) AND is_primary", listingIDs)
	if err != nil {
		return nil, fmt.Errorf("list primary images: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.VehicleImage, len(listingIDs))
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out[img.ListingID] = *img
	}
	return out, rows.Err()
}

// GetImage loads one image row.
func (s *Store) GetImage(ctx context.Context, id string) (*domain.VehicleImage, error) {
	img, err := scanImage(s.pool.QueryRow(ctx, "SELECT "+imageColumns+" FROM car_images WHERE id = $1", id))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrImageNotFound
		}
		return nil, notFound(err, domain.ErrImageNotFound)
	}
	return img, nil
}

// InsertImage stores img. A primary image demotes the listing's previous
// primary inside the same transaction so the partial unique index holds.
func (s *Store) InsertImage(ctx context.Context, img *domain.VehicleImage) error {
	var carID any
	if img.ListingID != "" {
		carID = img.ListingID
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if img.Primary && carID != nil {
			if _, err := tx.Exec(ctx,
				"UPDATE car_images SET is_primary = FALSE WHERE car_id = $1 AND is_primary", carID); err != nil {
				return fmt.Errorf("demote primary image: %w", err)
			}
		}
		err := tx.QueryRow(ctx, `INSERT INTO car_images (car_id, url, storage_key, is_primary)
			VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
			carID, img.URL, img.StorageKey, img.Primary,
		).Scan(&img.ID, &img.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert image: %w", err)
		}
		return nil
	})
}

// DeleteImage removes one image row.
func (s *Store) DeleteImage(ctx context.Context, id string) error {
	return s.execOne(ctx, domain.ErrImageNotFound, "DELETE FROM car_images WHERE id = $1", id)
}

// SetPrimaryImage makes imageID the only primary image of the listing.
func (s *Store) SetPrimaryImage(ctx context.Context, listingID, imageID string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			"UPDATE car_images SET is_primary = FALSE WHERE car_id = $1 AND is_primary", listingID); err != nil {
			if isInvalidUUID(err) {
				return domain.ErrListingNotFound
			}
			return fmt.Errorf("demote primary image: %w", err)
		}
		tag, err := tx.Exec(ctx,
			"UPDATE car_images SET is_primary = TRUE WHERE id = $1 AND car_id = $2", imageID, listingID)
		if err != nil {
			if isInvalidUUID(err) {
				return domain.ErrImageNotFound
			}
			return fmt.Errorf("promote image: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrImageNotFound
		}
		return nil
	})
}

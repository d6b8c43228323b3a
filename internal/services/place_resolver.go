package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"tripplan_app_echo/internal/models"
)

// PlaceRef is a place reference as it arrives from the client, usually copied
// from a map search result. ExternalID is empty for manually entered places.
type PlaceRef struct {
	ExternalID string  `json:"external_id"`
	Name       string  `json:"place_name"`
	Address    string  `json:"address"`
	Category   string  `json:"category"`
	Latitude   float64 `json:"lat"`
	Longitude  float64 `json:"lng"`
	ImageURL   string  `json:"image_url"`
}

// ResolveOutcome tells which branch of the lookup cascade produced the id
type ResolveOutcome string

const (
	ResolveFound      ResolveOutcome = "found"
	ResolveBackfilled ResolveOutcome = "backfilled"
	ResolveCreated    ResolveOutcome = "created"
)

// Resolution is the canonical place id for a PlaceRef
type Resolution struct {
	PlaceID uint
	Outcome ResolveOutcome
}

// PlaceResolver maps place references to canonical Place rows:
//  1. exact external id
//  2. same name and identical coordinates, linking the external id if the row had none
//  3. insert
//
// The unique index on places.external_id decides concurrent inserts; the loser
// looks the winner up instead of failing.
type PlaceResolver struct {
	db       *gorm.DB
	cache    *RedisCache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewPlaceResolver creates a resolver. cache may be nil.
func NewPlaceResolver(db *gorm.DB, cache *RedisCache, cacheTTL time.Duration, logger *slog.Logger) *PlaceResolver {
	return &PlaceResolver{db: db, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// WithTx returns a resolver whose reads and writes happen inside tx
func (r *PlaceResolver) WithTx(tx *gorm.DB) *PlaceResolver {
	clone := *r
	clone.db = tx
	return &clone
}

// Resolve returns the canonical place id for ref, creating the place if needed
func (r *PlaceResolver) Resolve(ctx context.Context, ref PlaceRef) (Resolution, error) {
	ref.ExternalID = strings.TrimSpace(ref.ExternalID)
	ref.Name = strings.TrimSpace(ref.Name)
	if ref.ExternalID == "" && ref.Name == "" {
		return Resolution{}, fmt.Errorf("%w: place needs an external id or a name", ErrInvalidArgument)
	}

	res, err := r.resolveOnce(ctx, ref)
	if errors.Is(err, errResolutionRace) {
		r.logger.Debug("place resolution race, looking up again", "external_id", ref.ExternalID)
		res, err = r.resolveOnce(ctx, ref)
		if errors.Is(err, errResolutionRace) {
			return Resolution{}, ErrConflict
		}
	}
	return res, err
}

func (r *PlaceResolver) resolveOnce(ctx context.Context, ref PlaceRef) (Resolution, error) {
	db := r.db.WithContext(ctx)

	if ref.ExternalID != "" {
		id, err := r.findByExternalID(ctx, db, ref.ExternalID)
		if err == nil {
			return Resolution{PlaceID: id, Outcome: ResolveFound}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return Resolution{}, fmt.Errorf("find place by external id: %w", err)
		}
	}

	var place models.Place
	err := db.Where("name = ? AND latitude = ? AND longitude = ?", ref.Name, ref.Latitude, ref.Longitude).
		Order("id").
		First(&place).Error
	switch {
	case err == nil:
		if place.ExternalID != nil || ref.ExternalID == "" {
			return Resolution{PlaceID: place.ID, Outcome: ResolveFound}, nil
		}
		if err := r.backfill(db, place.ID, ref.ExternalID); err != nil {
			return Resolution{}, err
		}
		return Resolution{PlaceID: place.ID, Outcome: ResolveBackfilled}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return Resolution{}, fmt.Errorf("find place by name and location: %w", err)
	}

	created := models.Place{
		Name:      ref.Name,
		Address:   ref.Address,
		Category:  ref.Category,
		Latitude:  ref.Latitude,
		Longitude: ref.Longitude,
		ImageURL:  ref.ImageURL,
	}
	if ref.ExternalID != "" {
		externalID := ref.ExternalID
		created.ExternalID = &externalID
	}

	// Savepoint: a unique violation must not poison the enclosing transaction
	err = db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&created).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Resolution{}, errResolutionRace
		}
		return Resolution{}, fmt.Errorf("create place: %w", err)
	}
	return Resolution{PlaceID: created.ID, Outcome: ResolveCreated}, nil
}

func (r *PlaceResolver) findByExternalID(ctx context.Context, db *gorm.DB, externalID string) (uint, error) {
	lookup := func() (uint, error) {
		var place models.Place
		if err := db.Select("id").Where("external_id = ?", externalID).First(&place).Error; err != nil {
			return 0, err
		}
		return place.ID, nil
	}
	if r.cache == nil {
		return lookup()
	}
	// Only committed, linked rows are cached: places are never deleted and an
	// external id never moves once set.
	return GetOrSet(r.cache, ctx, placeCacheKey(externalID), r.cacheTTL, lookup)
}

// backfill links externalID to a place that was entered without one. Losing
// the race to another backfill or insert of the same id is reported as
// errResolutionRace so the cascade runs again.
func (r *PlaceResolver) backfill(db *gorm.DB, placeID uint, externalID string) error {
	var affected int64
	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Place{}).
			Where("id = ? AND external_id IS NULL", placeID).
			Update("external_id", externalID)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errResolutionRace
		}
		return fmt.Errorf("backfill place external id: %w", err)
	}
	if affected == 0 {
		return errResolutionRace
	}
	return nil
}

func placeCacheKey(externalID string) string {
	return "place:ext:" + externalID
}

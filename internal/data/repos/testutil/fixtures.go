package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/travelog-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB) *types.User {
	tb.Helper()
	u := &types.User{ID: uuid.New(), DisplayName: "traveler"}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedDestination(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Destination {
	tb.Helper()
	d := &types.Destination{ID: uuid.New(), Name: name, Address: "somewhere"}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed destination: %v", err)
	}
	return d
}

func SeedPlace(tb testing.TB, ctx context.Context, tx *gorm.DB, x, y string) *types.Place {
	tb.Helper()
	p := &types.Place{ID: uuid.New(), Name: "place", XCoord: x, YCoord: y, Category: "sight"}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed place: %v", err)
	}
	return p
}

func SeedPlan(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, destID uuid.UUID, start, end time.Time, status types.PlanStatus) *types.TravelPlan {
	tb.Helper()
	now := time.Now().UTC()
	p := &types.TravelPlan{
		ID:            uuid.Must(uuid.NewV7()),
		UserID:        userID,
		DestinationID: destID,
		Name:          "trip",
		StartDate:     types.DateOf(start),
		EndDate:       types.DateOf(end),
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed plan: %v", err)
	}
	return p
}

func SeedRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, planID, userID uuid.UUID, public bool) *types.TravelRecord {
	tb.Helper()
	now := time.Now().UTC()
	r := &types.TravelRecord{
		ID:        uuid.Must(uuid.NewV7()),
		PlanID:    planID,
		UserID:    userID,
		Title:     "day one",
		Content:   "walked a lot",
		IsPublic:  public,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed record: %v", err)
	}
	return r
}

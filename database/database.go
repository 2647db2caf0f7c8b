package database

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/drummonds/cvpreview/score"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ErrNotFound is returned when no review matches
var ErrNotFound = errors.New("review not found")

// Review is a scored resume together with its first page preview
type Review struct {
	ID          ulid.ULID      `json:"id"`
	Name        string         `json:"name"`
	Score       float64        `json:"score"`
	Category    score.Category `json:"category"` // derived from Score on every read, never stored
	PreviewURL  string         `json:"previewUrl"` // PreviewPath(ID) when a preview is stored
	PreviewName string         `json:"previewName"`
	PreviewPNG  []byte         `json:"-"` // written by SaveReview, served via GetReviewPreview
	Excerpt     string         `json:"excerpt"`
	Error       string         `json:"error,omitempty"` // preview conversion failure, if any
	CreatedAt   time.Time      `json:"createdAt"`
}

// PreviewPath is where the stored first page image of a review is served
func PreviewPath(id ulid.ULID) string {
	return "/api/reviews/" + id.String() + "/preview"
}

// NewReview creates a review with a fresh ID and its category filled in
func NewReview(name string, value float64) *Review {
	now := time.Now()
	return &Review{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()),
		Name:      name,
		Score:     value,
		Category:  score.Categorize(value),
		CreatedAt: now,
	}
}

// Repository defines database operations
type Repository interface {
	Close() error
	SaveReview(ctx context.Context, review *Review) error
	GetReview(ctx context.Context, id ulid.ULID) (*Review, error)
	GetReviewPreview(ctx context.Context, id ulid.ULID) ([]byte, error)
	GetRecentReviews(ctx context.Context, limit, offset int) ([]Review, error)
	CountReviews(ctx context.Context) (int, error)
	DeleteReview(ctx context.Context, id ulid.ULID) error
}

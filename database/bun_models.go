package database

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"

	"github.com/drummonds/cvpreview/score"
)

// BunReview represents the reviews table for Bun ORM
type BunReview struct {
	bun.BaseModel `bun:"table:reviews,alias:r"`

	ID          int       `bun:"id,pk,autoincrement"`
	ULID        string    `bun:"ulid,notnull,unique"` // Stored as string in DB
	Name        string    `bun:"name,notnull"`
	Score       float64   `bun:"score,notnull"`
	PreviewName string    `bun:"preview_name,nullzero"`
	Excerpt     string    `bun:"excerpt,nullzero"`
	Error       string    `bun:"error,nullzero"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ToReview converts BunReview to Review, recomputing the category
func (br *BunReview) ToReview() (*Review, error) {
	parsedULID, err := ulid.Parse(br.ULID)
	if err != nil {
		return nil, err
	}

	review := &Review{
		ID:          parsedULID,
		Name:        br.Name,
		Score:       br.Score,
		Category:    score.Categorize(br.Score),
		PreviewName: br.PreviewName,
		Excerpt:     br.Excerpt,
		Error:       br.Error,
		CreatedAt:   br.CreatedAt,
	}
	// preview_name is only set when the PNG row was written alongside
	if br.PreviewName != "" {
		review.PreviewURL = PreviewPath(parsedULID)
	}
	return review, nil
}

// FromReview converts Review to BunReview
func FromReview(review *Review) *BunReview {
	return &BunReview{
		ULID:        review.ID.String(),
		Name:        review.Name,
		Score:       review.Score,
		PreviewName: review.PreviewName,
		Excerpt:     review.Excerpt,
		Error:       review.Error,
		CreatedAt:   review.CreatedAt,
	}
}

// BunReviewPreview holds the PNG of a review's first page, kept out of the
// reviews table so listings never load image bytes
type BunReviewPreview struct {
	bun.BaseModel `bun:"table:review_previews,alias:rp"`

	ReviewULID string    `bun:"review_ulid,pk"`
	Data       []byte    `bun:"data,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// BunSchemaMigration tracks applied migrations
type BunSchemaMigration struct {
	bun.BaseModel `bun:"table:bun_schema_migrations"`

	ID        int       `bun:"id,pk,autoincrement"`
	Version   string    `bun:"version,notnull,unique"`
	AppliedAt time.Time `bun:"applied_at,notnull,default:current_timestamp"`
}

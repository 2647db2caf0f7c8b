package webapp

import (
	"fmt"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// ReviewsPage lists recent reviews with their preview and score badge
type ReviewsPage struct {
	app.Compo
	reviews []Review
	loading bool
	err     string
}

// OnMount is called when the component is mounted
func (p *ReviewsPage) OnMount(ctx app.Context) {
	p.loadReviews(ctx)
}

// loadReviews fetches recent reviews from the API
func (p *ReviewsPage) loadReviews(ctx app.Context) {
	p.loading = true
	p.err = ""

	fetchJSON(ctx, BuildAPIURL(reviewsPath(GetReviewPageSize())), nil, func(ctx app.Context, status int, body app.Value) {
		p.loading = false
		if status < 200 || status >= 300 {
			p.err = fmt.Sprintf("Failed to load reviews (status %d)", status)
			return
		}
		var reviews []Review
		if err := decodeJSValue(body, &reviews); err != nil {
			p.err = "Failed to parse reviews: " + err.Error()
			return
		}
		p.reviews = reviews
	})
}

// deleteReview removes a review and drops it from the list
func (p *ReviewsPage) deleteReview(ctx app.Context, id string) {
	options := map[string]any{"method": "DELETE"}
	fetchJSON(ctx, BuildAPIURL("/api/reviews/"+id), options, func(ctx app.Context, status int, body app.Value) {
		if status < 200 || status >= 300 {
			p.err = fmt.Sprintf("Failed to delete review (status %d)", status)
			return
		}
		p.reviews = withoutReview(p.reviews, id)
	})
}

// withoutReview returns reviews minus the one with id
func withoutReview(reviews []Review, id string) []Review {
	kept := make([]Review, 0, len(reviews))
	for _, r := range reviews {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	return kept
}

// Render renders the reviews page
func (p *ReviewsPage) Render() app.UI {
	return app.Div().
		Class("reviews-page").
		Body(
			app.H2().Text("Recent Reviews"),
			app.If(p.loading, func() app.UI {
				return app.P().Class("loading").Text("Loading reviews...")
			}),
			app.If(p.err != "", func() app.UI {
				return app.Div().Class("error-message").Text(p.err)
			}),
			app.If(!p.loading && p.err == "" && len(p.reviews) == 0, func() app.UI {
				return app.P().Class("empty-state").Body(
					app.Text("No reviews yet. "),
					app.A().Href("/upload").Text("Upload a resume"),
				)
			}),
			app.Div().Class("review-grid").Body(
				app.Range(p.reviews).Slice(func(i int) app.UI {
					return p.renderReview(p.reviews[i])
				}),
			),
		)
}

// renderReview renders one review card
func (p *ReviewsPage) renderReview(r Review) app.UI {
	id := r.ID
	return app.Div().
		Class("review-card").
		Body(
			app.If(r.PreviewURL != "", func() app.UI {
				return app.Img().
					Class("review-preview").
					Src(BuildAPIURL(r.PreviewURL)).
					Alt(r.PreviewName)
			}).Else(func() app.UI {
				return app.Div().Class("review-preview review-preview-missing").Text(previewFallback(r))
			}),
			app.Div().Class("review-body").Body(
				app.H3().Class("review-name").Text(r.Name),
				&ScoreBadge{Score: r.Score},
				app.P().Class("review-score").Text(fmt.Sprintf("Score: %.1f", r.Score)),
				app.If(r.Excerpt != "", func() app.UI {
					return app.P().Class("review-excerpt").Text(r.Excerpt)
				}),
				app.Small().Class("review-date").Text(formatReviewDate(r.CreatedAt)),
				app.Button().
					Class("btn btn-danger").
					Text("Delete").
					OnClick(func(ctx app.Context, e app.Event) {
						p.deleteReview(ctx, id)
					}),
			),
		)
}

// previewFallback is shown in place of a missing preview
func previewFallback(r Review) string {
	if r.Error != "" {
		return r.Error
	}
	return "No preview"
}

// formatReviewDate renders an RFC 3339 timestamp for display
func formatReviewDate(createdAt string) string {
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return createdAt
	}
	return t.Local().Format("2006-01-02 15:04")
}

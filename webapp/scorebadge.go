package webapp

import (
	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/cvpreview/score"
)

// ScoreBadge displays a coloured label for a score:
// above 70 "Strong" (green), above 49 "Good Start" (yellow), otherwise
// "Needs Work" (red)
type ScoreBadge struct {
	app.Compo
	Score float64
}

// Render renders the badge, recomputing the category every time
func (b *ScoreBadge) Render() app.UI {
	category := score.Categorize(b.Score)
	return app.Div().
		Class(category.Classes()...).
		Body(
			app.P().Text(category.Label()),
		)
}

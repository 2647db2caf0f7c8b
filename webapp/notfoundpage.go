package webapp

import (
	"strings"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// NotFoundPage is shown for paths the app has no page for. Old links to a
// review preview get a hint instead of a bare 404.
type NotFoundPage struct {
	app.Compo
	Path string
}

// Render renders the 404 page
func (p *NotFoundPage) Render() app.UI {
	return app.Div().
		Class("not-found-page").
		Body(
			app.H1().Class("not-found-title").Text("404"),
			app.P().Class("not-found-message").Text(notFoundMessage(p.Path)),
			app.Div().Class("not-found-actions").Body(
				app.A().Href("/").Class("btn btn-primary").Text("See all reviews"),
				app.A().Href("/upload").Class("btn").Text("Review a new resume"),
			),
		)
}

// notFoundMessage explains what went wrong for the given path
func notFoundMessage(path string) string {
	switch {
	case strings.HasPrefix(path, "/blob/"):
		return "This preview link has expired. Open the review from the list to see its stored preview."
	case strings.HasPrefix(path, "/api/reviews/"):
		return "That review no longer exists. It may have been deleted."
	case path == "":
		return "There is no page here."
	default:
		return "There is no page at " + path + "."
	}
}

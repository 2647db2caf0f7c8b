package webapp

import (
	"fmt"

	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/drummonds/cvpreview/score"
)

// sidebarReviewCount is how many recent reviews the sidebar lists
const sidebarReviewCount = 5

// Sidebar offers the two pages plus a short list of the latest reviews,
// each tagged with its category
type Sidebar struct {
	app.Compo
	isOpen bool
	latest []Review
}

// OnMount restores the open state and loads the latest reviews
func (s *Sidebar) OnMount(ctx app.Context) {
	ctx.LocalStorage().Get("sidebar-open", &s.isOpen)
	s.loadLatest(ctx)
}

// OnNav refreshes the list, an upload may have just added a review
func (s *Sidebar) OnNav(ctx app.Context) {
	ctx.LocalStorage().Get("sidebar-open", &s.isOpen)
	s.loadLatest(ctx)
}

func (s *Sidebar) loadLatest(ctx app.Context) {
	fetchJSON(ctx, BuildAPIURL(reviewsPath(sidebarReviewCount)), nil, func(ctx app.Context, status int, body app.Value) {
		if status < 200 || status >= 300 {
			return
		}
		var reviews []Review
		if err := decodeJSValue(body, &reviews); err == nil {
			s.latest = reviews
		}
	})
}

// Render renders the sidebar
func (s *Sidebar) Render() app.UI {
	class := "sidebar"
	if s.isOpen {
		class += " sidebar-open"
	}
	current := app.Window().URL().Path

	return app.Aside().
		Class(class).
		Body(
			app.Nav().Class("sidebar-nav").Body(
				sidebarLink("Reviews", "/", current),
				sidebarLink("Upload Resume", "/upload", current),
			),
			app.Div().Class("sidebar-latest").Body(
				app.H3().Text("Latest"),
				app.If(len(s.latest) == 0, func() app.UI {
					return app.P().Class("sidebar-empty").Text("Nothing reviewed yet")
				}),
				app.Ul().Body(
					app.Range(s.latest).Slice(func(i int) app.UI {
						return latestEntry(s.latest[i])
					}),
				),
			),
		)
}

// sidebarLink highlights the link for the page being shown
func sidebarLink(label, href, current string) app.UI {
	class := "sidebar-item"
	if current == href {
		class += " sidebar-item-active"
	}
	return app.A().Href(href).Class(class).Text(label)
}

// latestEntry is one line of the latest list: name, score and a category
// marker, linking to the stored preview when there is one
func latestEntry(r Review) app.UI {
	category := score.Categorize(r.Score)
	text := fmt.Sprintf("%s (%.0f)", r.Name, r.Score)

	var name app.UI = app.Span().Text(text)
	if r.PreviewURL != "" {
		name = app.A().
			Href(BuildAPIURL(r.PreviewURL)).
			Target("_blank").
			Text(text)
	}
	return app.Li().
		Class("sidebar-review").
		Body(
			app.Span().
				Class(append([]string{"sidebar-marker"}, category.Classes()...)...).
				Title(category.Label()).
				Text(categoryInitial(category)),
			name,
		)
}

// categoryInitial is the one letter shown in the marker
func categoryInitial(c score.Category) string {
	switch c {
	case score.CategoryStrong:
		return "S"
	case score.CategoryGoodStart:
		return "G"
	default:
		return "N"
	}
}

package webapp

import (
	"fmt"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// Version info - can be set at build time with -ldflags
var (
	Version   = "dev"
	BuildDate = ""
)

// health mirrors the /api/health response
type health struct {
	Status        string `json:"status"`
	PDFBackend    string `json:"pdfBackend"`
	BackendLoaded bool   `json:"backendLoaded"`
	Blobs         int    `json:"blobs"`
}

// NavBar is the navigation bar component
type NavBar struct {
	app.Compo
	status        health
	refreshTicker *time.Ticker
}

// Render renders the navigation bar
func (n *NavBar) Render() app.UI {
	return app.Nav().
		Class("navbar").
		Body(
			app.Button().
				Class("hamburger-menu").
				ID("menu-toggle").
				OnClick(n.onMenuToggle).
				Body(
					// Three horizontal lines for hamburger menu
					app.Span().Class("hamburger-line"),
					app.Span().Class("hamburger-line"),
					app.Span().Class("hamburger-line"),
				),
			app.Div().Class("navbar-brand").Body(
				app.H1().Text("cvpreview"),
				app.Span().Class("version-info").Body(
					app.Text(n.getVersionInfo()),
				),
			),
			app.Div().Class("navbar-menu").Body(
				app.A().
					Href("/").
					Class("navbar-item").
					Body(app.Text("Reviews")),
				app.A().
					Href("/upload").
					Class("navbar-item").
					Body(app.Text("Upload")),
			),
		)
}

// onMenuToggle handles the hamburger menu click
func (n *NavBar) onMenuToggle(ctx app.Context, e app.Event) {
	ctx.Dispatch(func(ctx app.Context) {
		ctx.LocalStorage().Set("sidebar-open", !n.isSidebarOpen(ctx))
		ctx.Reload()
	})
}

// isSidebarOpen checks if the sidebar is currently open
func (n *NavBar) isSidebarOpen(ctx app.Context) bool {
	var isOpen bool
	ctx.LocalStorage().Get("sidebar-open", &isOpen)
	return isOpen
}

// OnMount is called when the component is mounted
func (n *NavBar) OnMount(ctx app.Context) {
	n.loadHealth(ctx)

	// Renderer state only changes once, so poll slowly
	ctx.Async(func() {
		n.refreshTicker = time.NewTicker(30 * time.Second)
		for range n.refreshTicker.C {
			n.loadHealth(ctx)
		}
	})
}

// OnDismount is called when the component is unmounted
func (n *NavBar) OnDismount() {
	if n.refreshTicker != nil {
		n.refreshTicker.Stop()
	}
}

// getVersionInfo returns formatted version and date information with renderer state
func (n *NavBar) getVersionInfo() string {
	date := BuildDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	return fmt.Sprintf("%s | %s%s", Version, date, rendererInfo(n.status))
}

// rendererInfo summarises the backend state for the version line
func rendererInfo(h health) string {
	if h.PDFBackend == "" {
		return ""
	}
	state := "idle"
	if h.BackendLoaded {
		state = "ready"
	}
	return fmt.Sprintf(" | %s %s", h.PDFBackend, state)
}

// loadHealth fetches the service status from the API
func (n *NavBar) loadHealth(ctx app.Context) {
	fetchJSON(ctx, BuildAPIURL("/api/health"), nil, func(ctx app.Context, status int, body app.Value) {
		if status < 200 || status >= 300 {
			// Silently keep the last known state
			return
		}
		var h health
		if err := decodeJSValue(body, &h); err == nil {
			n.status = h
		}
	})
}

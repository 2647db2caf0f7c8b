// Command frontend serves the review UI on its own and forwards API and
// preview traffic to a separate backend.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/drummonds/cvpreview/config"
	"github.com/drummonds/cvpreview/webapp"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

func main() {
	port := flag.String("port", "3000", "Port to run frontend server on")
	apiURL := flag.String("api", "", "Backend API URL (overrides config)")
	blobPrefix := flag.String("blob-prefix", "/blob/", "Object URL prefix served by the backend")
	flag.Parse()

	frontendConfig, logger := config.SetupFrontend()
	Logger = logger
	config.Logger = logger

	if *apiURL != "" {
		frontendConfig.ServerAPIURL = *apiURL
	}

	e, err := newFrontend(frontendConfig, *blobPrefix)
	if err != nil {
		Logger.Error("Frontend setup failed", "error", err)
		os.Exit(1)
	}

	addr := ":" + *port
	fmt.Printf("\n✅  Review UI on http://localhost:%s, previews and API from %s\n\n", *port, frontendConfig.ServerAPIURL)
	Logger.Info("Starting frontend server", "address", addr, "backendAPI", frontendConfig.ServerAPIURL, "blobPrefix", *blobPrefix)
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		Logger.Error("Server failed to start", "error", err)
	}
}

// newFrontend builds the UI server. Review data, stored previews and
// transient object URLs all live on the backend, so /api and the blob
// prefix are proxied there and everything else goes to the go-app handler.
func newFrontend(cfg config.FrontEndConfig, blobPrefix string) (*echo.Echo, error) {
	backendURL, err := backendTarget(cfg.ServerAPIURL)
	if err != nil {
		return nil, err
	}
	blobGroup := "/" + strings.Trim(blobPrefix, "/")
	if blobGroup == "/" || strings.HasPrefix(blobGroup, "/api") {
		return nil, fmt.Errorf("blob prefix %q must be its own top level path", blobPrefix)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.CORS())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}, latency=${latency_human}\n",
	}))

	proxy := middleware.ProxyWithConfig(middleware.ProxyConfig{
		Balancer: middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{{URL: backendURL}}),
	})
	e.Group("/api", proxy)
	e.Group(blobGroup, proxy)

	appHandler := webapp.Handler()
	e.File("/wasm_exec.js", "web/wasm_exec.js")
	e.Static("/web", "web")
	e.File("/webapp/webapp.css", "webapp/webapp.css")
	e.GET("/app.js", echo.WrapHandler(appHandler))
	e.GET("/app.css", echo.WrapHandler(appHandler))
	e.GET("/manifest.webmanifest", echo.WrapHandler(appHandler))

	// The page fetches from the same origin, the proxy above carries it on
	e.GET("/config.js", func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "application/javascript")
		return c.String(http.StatusOK, webapp.ConfigScript("", cfg.ReviewPageSize))
	})

	e.Any("/*", echo.WrapHandler(appHandler))
	return e, nil
}

// backendTarget parses the backend URL, which must be absolute
func backendTarget(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend URL %q needs a scheme and host", rawURL)
	}
	return u, nil
}

package engine

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/drummonds/cvpreview/blobstore"
	"github.com/drummonds/cvpreview/config"
	"github.com/drummonds/cvpreview/engine/pdfrenderer"
)

// NewConverter builds the PDF preview converter from the render and blob
// settings. The backend itself is not loaded until the first conversion.
func NewConverter(serverConfig config.ServerConfig) *pdfrenderer.Converter {
	loader := pdfrenderer.NewRendererLoader(serverConfig.PDFBackend, serverConfig.PDFWorkers)
	store := blobstore.New(serverConfig.BlobURLPrefix)
	return pdfrenderer.NewConverter(loader, store, pdfrenderer.Options{
		Scale:            serverConfig.RenderScale,
		ThumbnailWidth:   serverConfig.ThumbnailWidth,
		MaxSurfacePixels: serverConfig.MaxSurfacePixels,
	})
}

// IsAPIPath reports whether a request path belongs to the JSON API
func IsAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// APINotFound writes the JSON 404 body used for unknown API endpoints
func APINotFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, map[string]string{
		"error":   "Not Found",
		"message": "The requested API endpoint does not exist",
		"path":    c.Request().URL.Path,
	})
}

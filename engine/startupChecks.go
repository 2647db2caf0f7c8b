package engine

import (
	"fmt"
	"strings"

	"github.com/drummonds/cvpreview/config"
	"github.com/drummonds/cvpreview/engine/pdfrenderer"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	if err := rendererChecks(serverHandler.ServerConfig.RenderConfig); err != nil {
		return err
	}
	return blobChecks(serverHandler.ServerConfig.BlobConfig)
}

// rendererChecks validates the backend name without loading it, loading
// happens lazily on the first conversion
func rendererChecks(renderConfig config.RenderConfig) error {
	switch renderConfig.PDFBackend {
	case "", pdfrenderer.BackendPDFium, pdfrenderer.BackendFitz:
	default:
		Logger.Error("Unsupported PDF backend configured", "backend", renderConfig.PDFBackend)
		return fmt.Errorf("%w: %q", pdfrenderer.ErrUnknownBackend, renderConfig.PDFBackend)
	}
	if renderConfig.PDFWorkers < 1 {
		Logger.Warn("PDF_WORKERS below 1, using a single worker", "workers", renderConfig.PDFWorkers)
	}
	if renderConfig.RenderScale > 4 {
		Logger.Warn("Render scale above 4 is very memory intensive", "scale", renderConfig.RenderScale)
	}
	Logger.Info("PDF backend configured, will load on first conversion", "backend", renderConfig.PDFBackend)
	return nil
}

// blobChecks makes sure object URLs can be routed
func blobChecks(blobConfig config.BlobConfig) error {
	prefix := blobConfig.BlobURLPrefix
	if !strings.HasPrefix(prefix, "/") || !strings.HasSuffix(prefix, "/") {
		Logger.Error("BLOB_URL_PREFIX must be a path starting and ending with /", "prefix", prefix)
		return fmt.Errorf("invalid blob URL prefix %q", prefix)
	}
	// A bare "/" would register /:id over every web UI route
	if strings.Trim(prefix, "/") == "" {
		Logger.Error("BLOB_URL_PREFIX needs at least one path segment", "prefix", prefix)
		return fmt.Errorf("blob URL prefix %q would shadow the web UI", prefix)
	}
	if IsAPIPath(prefix) {
		Logger.Error("BLOB_URL_PREFIX must not live under /api/", "prefix", prefix)
		return fmt.Errorf("blob URL prefix %q collides with the API", prefix)
	}
	return nil
}

package engine

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"

	"github.com/drummonds/cvpreview/blobstore"
	"github.com/drummonds/cvpreview/config"
	"github.com/drummonds/cvpreview/database"
	"github.com/drummonds/cvpreview/engine/pdfrenderer"
	"github.com/drummonds/cvpreview/score"
)

// maxUploadSize caps uploaded PDFs
const maxUploadSize = 32 << 20

// totalCountHeader carries the number of stored reviews on list responses
const totalCountHeader = "X-Total-Count"

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.Repository
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Converter    *pdfrenderer.Converter
}

// AddRoutes registers every API and blob route on the Echo instance
func (serverHandler *ServerHandler) AddRoutes() {
	e := serverHandler.Echo

	// Preview API routes
	e.POST("/api/preview", serverHandler.PreviewPDF)

	// Score API routes
	e.GET("/api/score", serverHandler.GetScore)

	// Review API routes
	e.GET("/api/reviews", serverHandler.GetRecentReviews)
	e.POST("/api/reviews", serverHandler.CreateReview)
	e.GET("/api/reviews/:id", serverHandler.GetReview)
	e.GET("/api/reviews/:id/preview", serverHandler.GetReviewPreview)
	e.DELETE("/api/reviews/:id", serverHandler.DeleteReview)

	// Health check endpoint
	e.GET("/api/health", serverHandler.Health)

	// Anything else under /api/ is a JSON 404, not a web UI page
	e.Any("/api/*", APINotFound)

	// Object URLs (serve PNG bytes - not JSON, so not under /api/*)
	blobRoute := strings.TrimSuffix(serverHandler.Converter.Store().Prefix(), "/") + "/:id"
	e.GET(blobRoute, serverHandler.ServeBlob)
	e.DELETE(blobRoute, serverHandler.RevokeBlob)
}

func jsonError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]interface{}{
		"error": message,
	})
}

// readUploadedPDF pulls the "pdf" multipart field into a File
func readUploadedPDF(c echo.Context) (pdfrenderer.File, error) {
	fileHeader, err := c.FormFile("pdf")
	if err != nil {
		return pdfrenderer.File{}, err
	}
	if fileHeader.Size > maxUploadSize {
		return pdfrenderer.File{}, errors.New("PDF file too large")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return pdfrenderer.File{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		return pdfrenderer.File{}, err
	}
	mimeType := fileHeader.Header.Get(echo.HeaderContentType)
	if mimeType == "" {
		mimeType = "application/pdf"
	}
	return pdfrenderer.NewFile(fileHeader.Filename, mimeType, data), nil
}

// PreviewPDF converts the first page of an uploaded PDF to PNG
// @Summary Preview a PDF
// @Description Render page 1 of the uploaded PDF to a PNG and return an object URL for it
// @Tags Preview
// @Accept multipart/form-data
// @Produce json
// @Param pdf formData file true "PDF to preview"
// @Success 200 {object} pdfrenderer.ConversionResult "Conversion result, failures carry error"
// @Failure 400 {object} map[string]interface{} "No PDF file provided"
// @Router /preview [post]
func (serverHandler *ServerHandler) PreviewPDF(c echo.Context) error {
	file, err := readUploadedPDF(c)
	if err != nil {
		Logger.Warn("Preview request without usable PDF", "error", err)
		return jsonError(c, http.StatusBadRequest, "No PDF file provided")
	}

	Logger.Info("Processing PDF preview", "file", file.Name, "size", file.Size)
	result := serverHandler.Converter.Convert(c.Request().Context(), file)
	return c.JSON(http.StatusOK, result)
}

// GetScore categorizes a score
// @Summary Categorize a score
// @Description Map a numeric score to its badge category, label and style
// @Tags Score
// @Produce json
// @Param value query number true "Score"
// @Success 200 {object} score.Badge "Badge"
// @Failure 400 {object} map[string]interface{} "Invalid score"
// @Router /score [get]
func (serverHandler *ServerHandler) GetScore(c echo.Context) error {
	value, err := strconv.ParseFloat(c.QueryParam("value"), 64)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid score")
	}
	return c.JSON(http.StatusOK, score.NewBadge(value))
}

// CreateReview stores a scored resume along with its preview
// @Summary Create a review
// @Description Upload a resume PDF with its score; the first page is rendered and stored as preview
// @Tags Reviews
// @Accept multipart/form-data
// @Produce json
// @Param pdf formData file true "Resume PDF"
// @Param score formData number true "Resume score"
// @Success 201 {object} database.Review "Stored review"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /reviews [post]
func (serverHandler *ServerHandler) CreateReview(c echo.Context) error {
	value, err := strconv.ParseFloat(c.FormValue("score"), 64)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid score")
	}
	file, err := readUploadedPDF(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "No PDF file provided")
	}

	ctx := c.Request().Context()
	review := database.NewReview(file.Name, value)
	result := serverHandler.Converter.Convert(ctx, file)
	if result.OK() {
		// The stored review serves its own copy, the object URL is only transient
		defer serverHandler.Converter.Store().RevokeObjectURL(result.ImageURL)
		review.PreviewName = result.File.Name
		review.PreviewPNG = result.File.Data
	} else {
		review.Error = result.Error
	}
	review.Excerpt = extractExcerpt(file.Data, excerptLength)

	if err := serverHandler.DB.SaveReview(ctx, review); err != nil {
		Logger.Error("Failed to save review", "file", file.Name, "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to save review")
	}

	Logger.Info("Review stored", "id", review.ID, "file", file.Name, "score", value, "category", review.Category)
	return c.JSON(http.StatusCreated, review)
}

// GetRecentReviews lists reviews newest first
// @Summary List reviews
// @Description Retrieve recent reviews with pagination
// @Tags Reviews
// @Produce json
// @Param limit query int false "Number of reviews to return"
// @Param offset query int false "Offset for pagination (default: 0)"
// @Success 200 {array} database.Review "List of reviews"
// @Header 200 {int} X-Total-Count "Total number of reviews"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /reviews [get]
func (serverHandler *ServerHandler) GetRecentReviews(c echo.Context) error {
	limit := serverHandler.ServerConfig.ReviewPageSize
	if limit <= 0 {
		limit = 20
	}
	offset := 0

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	reviews, err := serverHandler.DB.GetRecentReviews(c.Request().Context(), limit, offset)
	if err != nil {
		Logger.Error("Failed to get recent reviews", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to retrieve reviews")
	}

	if reviews == nil {
		reviews = []database.Review{}
	}

	if total, err := serverHandler.DB.CountReviews(c.Request().Context()); err == nil {
		c.Response().Header().Set(totalCountHeader, strconv.Itoa(total))
	} else {
		Logger.Warn("Failed to count reviews", "error", err)
	}

	return c.JSON(http.StatusOK, reviews)
}

func parseReviewID(c echo.Context) (ulid.ULID, error) {
	return ulid.Parse(c.Param("id"))
}

// GetReview retrieves a review by ID
// @Summary Get review by ID
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID (ULID)"
// @Success 200 {object} database.Review "Review"
// @Failure 400 {object} map[string]interface{} "Invalid review ID"
// @Failure 404 {object} map[string]interface{} "Review not found"
// @Router /reviews/{id} [get]
func (serverHandler *ServerHandler) GetReview(c echo.Context) error {
	id, err := parseReviewID(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid review ID format")
	}

	review, err := serverHandler.DB.GetReview(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "Review not found")
		}
		Logger.Error("Failed to get review", "id", id, "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to retrieve review")
	}

	return c.JSON(http.StatusOK, review)
}

// GetReviewPreview serves the stored first page PNG of a review
// @Summary Get review preview
// @Tags Reviews
// @Produce png
// @Param id path string true "Review ID (ULID)"
// @Success 200 {file} binary "PNG image"
// @Failure 400 {object} map[string]interface{} "Invalid review ID"
// @Failure 404 {object} map[string]interface{} "No preview stored"
// @Router /reviews/{id}/preview [get]
func (serverHandler *ServerHandler) GetReviewPreview(c echo.Context) error {
	id, err := parseReviewID(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid review ID format")
	}

	data, err := serverHandler.DB.GetReviewPreview(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "Preview not found")
		}
		Logger.Error("Failed to get review preview", "id", id, "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to retrieve preview")
	}
	// Previews never change once stored
	c.Response().Header().Set("Cache-Control", "private, max-age=86400, immutable")
	return c.Blob(http.StatusOK, pdfrenderer.PNGMimeType, data)
}

// DeleteReview removes a review and its stored preview
// @Summary Delete review
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID (ULID)"
// @Success 200 {string} string "Review Deleted"
// @Failure 400 {object} map[string]interface{} "Invalid review ID"
// @Failure 404 {object} map[string]interface{} "Review not found"
// @Router /reviews/{id} [delete]
func (serverHandler *ServerHandler) DeleteReview(c echo.Context) error {
	id, err := parseReviewID(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid review ID format")
	}
	if err := serverHandler.DB.DeleteReview(c.Request().Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "Review not found")
		}
		Logger.Error("Failed to delete review", "id", id, "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to delete review")
	}
	return c.JSON(http.StatusOK, "Review Deleted")
}

// ServeBlob writes the bytes behind an object URL
func (serverHandler *ServerHandler) ServeBlob(c echo.Context) error {
	blob, err := serverHandler.Converter.Store().Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "Blob not found or revoked")
		}
		return err
	}
	c.Response().Header().Set("Cache-Control", "private, max-age=3600")
	return c.Blob(http.StatusOK, blob.Type, blob.Data)
}

// RevokeBlob releases an object URL
func (serverHandler *ServerHandler) RevokeBlob(c echo.Context) error {
	if !serverHandler.Converter.Store().Revoke(c.Param("id")) {
		return jsonError(c, http.StatusNotFound, "Blob not found or revoked")
	}
	return c.NoContent(http.StatusNoContent)
}

// Health reports service status
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{} "Service status"
// @Router /health [get]
func (serverHandler *ServerHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"service":       "cvpreview",
		"pdfBackend":    serverHandler.ServerConfig.PDFBackend,
		"backendLoaded": serverHandler.Converter.Loader().Loaded(),
		"blobs":         serverHandler.Converter.Store().Len(),
	})
}

package pdfrenderer

import (
	"context"
	"errors"
	"fmt"
	"image/draw"
	"log/slog"
	"math"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Backend names accepted by NewRenderer
const (
	BackendPDFium = "pdfium"
	BackendFitz   = "fitz"
)

// PointsPerInch is the PDF user space resolution, a viewport at scale 1
// renders one pixel per point
const PointsPerInch = 72.0

var (
	// ErrUnknownBackend is returned by NewRenderer for an unsupported name
	ErrUnknownBackend = errors.New("unknown PDF backend")
	// ErrPageOutOfRange is returned when asking for a page the document lacks
	ErrPageOutOfRange = errors.New("page out of range")
)

// Backend is the subset of a PDF rendering library the converter needs
type Backend interface {
	// Name identifies the backend in logs
	Name() string

	// Open parses data as a PDF document
	Open(ctx context.Context, data []byte) (Document, error)

	// Close cleans up any resources used by the backend
	Close() error
}

// Document is an opened PDF
type Document interface {
	NumPages() int

	// Page loads a page by its 1-indexed number
	Page(ctx context.Context, number int) (Page, error)

	Close() error
}

// Page is a single loaded page
type Page interface {
	// Viewport returns the raster frame of the page at the given scale
	Viewport(scale float64) (Viewport, error)

	// Render draws the page onto surface using the viewport's scale. It
	// returns once rendering has completed.
	Render(ctx context.Context, surface draw.Image, viewport Viewport) error
}

// Viewport is the pixel frame a page is rendered into
type Viewport struct {
	Width  int
	Height int
	Scale  float64
}

// DPI returns the render resolution matching the viewport scale
func (v Viewport) DPI() float64 {
	return PointsPerInch * v.Scale
}

// newViewport converts a page size in points to a pixel viewport
func newViewport(widthPt, heightPt, scale float64) Viewport {
	return Viewport{
		Width:  int(math.Floor(widthPt * scale)),
		Height: int(math.Floor(heightPt * scale)),
		Scale:  scale,
	}
}

// pageIndex validates a 1-indexed page number against the page count and
// returns the 0-based index backends work with
func pageIndex(number, count int) (int, error) {
	if number < 1 || number > count {
		return 0, fmt.Errorf("%w: page %d requested, document has %d pages", ErrPageOutOfRange, number, count)
	}
	return number - 1, nil
}

// NewRenderer creates the named PDF backend. workers bounds the number of
// concurrently opened documents for backends that pool instances.
func NewRenderer(name string, workers int) (Backend, error) {
	switch name {
	case "", BackendPDFium:
		return NewPDFiumRenderer(workers)
	case BackendFitz:
		return NewFitzRenderer()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

func logger() *slog.Logger {
	if Logger != nil {
		return Logger
	}
	return slog.Default()
}

package pdfrenderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/drummonds/cvpreview/blobstore"
)

// PNGMimeType is the MIME type of every converted image
const PNGMimeType = "image/png"

// DefaultScale balances preview fidelity against memory use
const DefaultScale = 2.0

// DefaultMaxSurfacePixels matches the largest canvas area browsers allow
const DefaultMaxSurfacePixels = 268435456

var (
	// ErrNoContext is returned when a drawing surface cannot be allocated
	ErrNoContext = errors.New("failed to get drawing context")
	// ErrEmptyImage is returned when PNG encoding produced nothing
	ErrEmptyImage = errors.New("failed to create image blob from surface")
)

// File is a named binary payload, both the uploaded PDF and the produced PNG
type File struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int    `json:"size"`
	Data []byte `json:"-"`
}

// NewFile wraps data with a name and MIME type
func NewFile(name, mimeType string, data []byte) File {
	return File{Name: name, Type: mimeType, Size: len(data), Data: data}
}

// ConversionResult is the outcome of a single conversion. On success ImageURL
// and File are set and Error is empty; on failure ImageURL is empty, File is
// nil and Error describes what went wrong.
type ConversionResult struct {
	ImageURL string `json:"imageUrl"`
	File     *File  `json:"file"`
	Error    string `json:"error,omitempty"`
}

// OK reports whether the conversion succeeded
func (r ConversionResult) OK() bool {
	return r.Error == "" && r.File != nil
}

func failedResult(cause any) ConversionResult {
	return ConversionResult{
		ImageURL: "",
		File:     nil,
		Error:    "Failed to convert PDF: " + describe(cause),
	}
}

// Options tune the conversion
type Options struct {
	// Scale is the viewport upscaling factor, DefaultScale when zero
	Scale float64
	// ThumbnailWidth downsizes the render to this width when positive
	ThumbnailWidth int
	// MaxSurfacePixels caps width*height of the drawing surface
	MaxSurfacePixels int
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.MaxSurfacePixels <= 0 {
		o.MaxSurfacePixels = DefaultMaxSurfacePixels
	}
	return o
}

// Converter renders the first page of PDFs to PNG previews
type Converter struct {
	loader *Loader
	store  *blobstore.Store
	opts   Options
}

// NewConverter creates a converter drawing its backend from loader and
// registering results in store
func NewConverter(loader *Loader, store *blobstore.Store, opts Options) *Converter {
	return &Converter{
		loader: loader,
		store:  store,
		opts:   opts.withDefaults(),
	}
}

// Loader exposes the backend loader, mainly for health reporting
func (c *Converter) Loader() *Loader {
	return c.loader
}

// Store exposes the object URL store results are registered in
func (c *Converter) Store() *blobstore.Store {
	return c.store
}

// Convert renders page 1 of file to PNG. It never returns an error or panics;
// failures are reported through ConversionResult.Error. The returned ImageURL
// must be revoked by the caller once no longer needed.
func (c *Converter) Convert(ctx context.Context, file File) (result ConversionResult) {
	defer func() {
		if r := recover(); r != nil {
			logger().Error("PDF Conversion Error", "file", file.Name, "panic", r)
			result = failedResult(r)
		}
	}()

	encoded, err := c.render(ctx, file.Data)
	if err != nil {
		logger().Error("PDF Conversion Error", "file", file.Name, "error", err)
		return failedResult(err)
	}

	out := NewFile(OutputName(file.Name), PNGMimeType, encoded)
	return ConversionResult{
		ImageURL: c.store.CreateObjectURL(out.Data, PNGMimeType),
		File:     &out,
	}
}

// render runs the backend pipeline and returns PNG bytes
func (c *Converter) render(ctx context.Context, data []byte) ([]byte, error) {
	backend, err := c.loader.Get(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := backend.Open(ctx, data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	page, err := doc.Page(ctx, 1)
	if err != nil {
		return nil, err
	}

	viewport, err := page.Viewport(c.opts.Scale)
	if err != nil {
		return nil, err
	}

	surface, err := newSurface(viewport, c.opts.MaxSurfacePixels)
	if err != nil {
		return nil, err
	}

	if err := page.Render(ctx, surface, viewport); err != nil {
		return nil, err
	}

	var img image.Image = surface
	if c.opts.ThumbnailWidth > 0 && viewport.Width > c.opts.ThumbnailWidth {
		img = imaging.Resize(surface, c.opts.ThumbnailWidth, 0, imaging.Lanczos)
	}

	return encodePNG(img)
}

// newSurface allocates the RGBA raster a page is drawn onto
func newSurface(viewport Viewport, maxPixels int) (*image.RGBA, error) {
	if viewport.Width <= 0 || viewport.Height <= 0 {
		return nil, fmt.Errorf("%w: viewport %dx%d is empty", ErrNoContext, viewport.Width, viewport.Height)
	}
	if viewport.Width > maxPixels/viewport.Height {
		return nil, fmt.Errorf("%w: viewport %dx%d exceeds %d pixels", ErrNoContext, viewport.Width, viewport.Height, maxPixels)
	}
	return image.NewRGBA(image.Rect(0, 0, viewport.Width, viewport.Height)), nil
}

// encodePNG serializes img losslessly at the highest compression
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	if buf.Len() == 0 {
		return nil, ErrEmptyImage
	}
	return buf.Bytes(), nil
}

// OutputName strips one trailing ".pdf" (any case) and appends ".png"
func OutputName(name string) string {
	if len(name) >= 4 && strings.EqualFold(name[len(name)-4:], ".pdf") {
		name = name[:len(name)-4]
	}
	return name + ".png"
}

// describe turns a recovered value or error into a message without ever
// panicking itself
func describe(cause any) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = fmt.Sprintf("%T", cause)
		}
	}()

	switch v := cause.(type) {
	case nil:
		return "unknown error"
	case error:
		msg = v.Error()
	case fmt.Stringer:
		msg = v.String()
	case string:
		msg = v
	default:
		msg = fmt.Sprint(v)
	}
	if msg == "" {
		return fmt.Sprintf("%T", cause)
	}
	return msg
}

var (
	defaultOnce      sync.Once
	defaultConverter *Converter
)

// Default returns the process-wide converter: PDFium backend, loaded on first
// conversion, results registered with the default object URL store
func Default() *Converter {
	defaultOnce.Do(func() {
		defaultConverter = NewConverter(
			NewRendererLoader(BackendPDFium, 1),
			blobstore.Default(),
			Options{},
		)
	})
	return defaultConverter
}

// ConvertPDFToImage converts with the process-wide converter
func ConvertPDFToImage(ctx context.Context, file File) ConversionResult {
	return Default().Convert(ctx, file)
}

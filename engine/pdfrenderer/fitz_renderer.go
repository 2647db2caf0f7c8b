package pdfrenderer

import (
	"context"
	"fmt"
	"image/draw"

	"github.com/gen2brain/go-fitz"
)

// FitzRenderer implements Backend using go-fitz (requires CGo and MuPDF)
type FitzRenderer struct {
}

// NewFitzRenderer creates a new Fitz-based PDF renderer
func NewFitzRenderer() (*FitzRenderer, error) {
	return &FitzRenderer{}, nil
}

// Name implements Backend
func (r *FitzRenderer) Name() string {
	return BackendFitz
}

// Open parses the PDF from memory
func (r *FitzRenderer) Open(ctx context.Context, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

// Close is a no-op, documents are closed individually
func (r *FitzRenderer) Close() error {
	return nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) NumPages() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) Page(ctx context.Context, number int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	index, err := pageIndex(number, d.doc.NumPage())
	if err != nil {
		return nil, err
	}
	return &fitzPage{doc: d.doc, index: index}, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}

type fitzPage struct {
	doc   *fitz.Document
	index int
}

// Viewport uses the page bounds, which MuPDF reports in points
func (p *fitzPage) Viewport(scale float64) (Viewport, error) {
	bounds, err := p.doc.Bound(p.index)
	if err != nil {
		return Viewport{}, fmt.Errorf("unable to get bounds of page %d: %w", p.index+1, err)
	}
	return newViewport(float64(bounds.Dx()), float64(bounds.Dy()), scale), nil
}

func (p *fitzPage) Render(ctx context.Context, surface draw.Image, viewport Viewport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := p.doc.ImageDPI(p.index, viewport.DPI())
	if err != nil {
		return fmt.Errorf("unable to render page %d: %w", p.index+1, err)
	}
	draw.Draw(surface, surface.Bounds(), img, img.Bounds().Min, draw.Src)
	return nil
}

package pdfrenderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"os"
	"sync/atomic"
)

func init() {
	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// fakePDFMagic marks bytes the fake backend accepts as a document
var fakePDFMagic = []byte("%PDF-")

var errNotPDF = errors.New("Invalid PDF structure")

// fakeBackend parses "%PDF-<pages>" style payloads and renders solid pages
type fakeBackend struct {
	widthPt   float64
	heightPt  float64
	fill      color.Color
	renderErr error
	panicOn   string
	opened    atomic.Int32
	closed    atomic.Int32
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{widthPt: 100, heightPt: 50, fill: color.RGBA{R: 200, A: 255}}
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Open(ctx context.Context, data []byte) (Document, error) {
	if b.panicOn == "open" {
		panic("open exploded")
	}
	if !bytes.HasPrefix(data, fakePDFMagic) {
		return nil, fmt.Errorf("unable to open PDF document: %w", errNotPDF)
	}
	pages := 1
	if rest := data[len(fakePDFMagic):]; len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
		pages = int(rest[0] - '0')
	}
	b.opened.Add(1)
	return &fakeDocument{backend: b, pages: pages}, nil
}

func (b *fakeBackend) Close() error { return nil }

type fakeDocument struct {
	backend *fakeBackend
	pages   int
}

func (d *fakeDocument) NumPages() int { return d.pages }

func (d *fakeDocument) Page(ctx context.Context, number int) (Page, error) {
	index, err := pageIndex(number, d.pages)
	if err != nil {
		return nil, err
	}
	return &fakePage{backend: d.backend, index: index}, nil
}

func (d *fakeDocument) Close() error {
	d.backend.closed.Add(1)
	return nil
}

type fakePage struct {
	backend *fakeBackend
	index   int
}

func (p *fakePage) Viewport(scale float64) (Viewport, error) {
	return newViewport(p.backend.widthPt, p.backend.heightPt, scale), nil
}

func (p *fakePage) Render(ctx context.Context, surface draw.Image, viewport Viewport) error {
	if p.backend.panicOn == "render" {
		panic(errors.New("render exploded"))
	}
	if p.backend.renderErr != nil {
		return p.backend.renderErr
	}
	draw.Draw(surface, surface.Bounds(), &image.Uniform{C: p.backend.fill}, image.Point{}, draw.Src)
	return nil
}

package pdfrenderer

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"math"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// instanceTimeout bounds how long Open waits for a free pool worker
const instanceTimeout = 30 * time.Second

// PDFiumRenderer implements Backend using go-pdfium with WebAssembly (pure Go, no CGo)
type PDFiumRenderer struct {
	pool pdfium.Pool
}

// NewPDFiumRenderer starts the WebAssembly worker pool
func NewPDFiumRenderer(workers int) (*PDFiumRenderer, error) {
	if workers < 1 {
		workers = 1
	}
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  workers,
		MaxTotal: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}
	return &PDFiumRenderer{pool: pool}, nil
}

// Name implements Backend
func (r *PDFiumRenderer) Name() string {
	return BackendPDFium
}

// Open borrows a worker from the pool for the lifetime of the document
func (r *PDFiumRenderer) Open(ctx context.Context, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	instance, err := r.pool.GetInstance(instanceTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}

	doc, err := instance.OpenDocument(&requests.OpenDocument{
		File: &data,
	})
	if err != nil {
		instance.Close()
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}

	pageCount, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
		instance.Close()
		return nil, fmt.Errorf("unable to get page count: %w", err)
	}

	return &pdfiumDocument{
		instance: instance,
		document: doc.Document,
		pages:    pageCount.PageCount,
	}, nil
}

// Close cleans up resources used by the PDFium renderer
func (r *PDFiumRenderer) Close() error {
	if r.pool != nil {
		err := r.pool.Close()
		r.pool = nil
		return err
	}
	return nil
}

type pdfiumDocument struct {
	instance pdfium.Pdfium
	document references.FPDF_DOCUMENT
	pages    int
}

func (d *pdfiumDocument) NumPages() int {
	return d.pages
}

func (d *pdfiumDocument) Page(ctx context.Context, number int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	index, err := pageIndex(number, d.pages)
	if err != nil {
		return nil, err
	}
	return &pdfiumPage{doc: d, index: index}, nil
}

// Close releases the document and hands the worker back to the pool
func (d *pdfiumDocument) Close() error {
	_, closeErr := d.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: d.document,
	})
	if err := d.instance.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	return closeErr
}

type pdfiumPage struct {
	doc   *pdfiumDocument
	index int
}

func (p *pdfiumPage) ref() requests.Page {
	return requests.Page{
		ByIndex: &requests.PageByIndex{
			Document: p.doc.document,
			Index:    p.index,
		},
	}
}

func (p *pdfiumPage) Viewport(scale float64) (Viewport, error) {
	size, err := p.doc.instance.GetPageSize(&requests.GetPageSize{
		Page: p.ref(),
	})
	if err != nil {
		return Viewport{}, fmt.Errorf("unable to get size of page %d: %w", p.index+1, err)
	}
	return newViewport(size.Width, size.Height, scale), nil
}

func (p *pdfiumPage) Render(ctx context.Context, surface draw.Image, viewport Viewport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pageRender, err := p.doc.instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI:  int(math.Round(viewport.DPI())),
		Page: p.ref(),
	})
	if err != nil {
		return fmt.Errorf("unable to render page %d: %w", p.index+1, err)
	}
	// Clean up WebAssembly resources for this page once copied out
	defer pageRender.Cleanup()

	draw.Draw(surface, surface.Bounds(), pageRender.Result.Image, image.Point{}, draw.Src)
	return nil
}

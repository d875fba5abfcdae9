package convert

import (
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// Rasterizer renders every page of a PDF into an image file inside outDir
// and returns the image paths in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// Assembler joins images, in order, into a single PDF at out.
type Assembler interface {
	Assemble(ctx context.Context, images []string, out string) error
}

const pagePattern = "page-%04d.jpg"

// GMRasterizer shells out to GraphicsMagick.
type GMRasterizer struct {
	Runner  Runner
	Binary  string
	Density int
	Timeout time.Duration
}

// NewGMRasterizer returns a GraphicsMagick rasterizer using binary (default "gm").
func NewGMRasterizer(r Runner, binary string, density int, timeout time.Duration) *GMRasterizer {
	if binary == "" {
		binary = "gm"
	}
	return &GMRasterizer{Runner: r, Binary: binary, Density: density, Timeout: timeout}
}

func (g *GMRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	args := []string{"convert"}
	if g.Density > 0 {
		args = append(args, "-density", strconv.Itoa(g.Density))
	}
	args = append(args, "-antialias", "-enhance", pdfPath, "+adjoin", filepath.Join(outDir, pagePattern))

	if _, err := g.Runner.Run(ctx, Command{Name: g.Binary, Args: args, Timeout: g.Timeout}); err != nil {
		return nil, err
	}
	pages, err := filepath.Glob(filepath.Join(outDir, "page-*.jpg"))
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%s produced no pages for %s", g.Binary, pdfPath)
	}
	sort.Strings(pages)
	return pages, nil
}

// GMAssembler joins images with GraphicsMagick.
type GMAssembler struct {
	Runner  Runner
	Binary  string
	Timeout time.Duration
}

// NewGMAssembler returns a GraphicsMagick assembler using binary (default "gm").
func NewGMAssembler(r Runner, binary string, timeout time.Duration) *GMAssembler {
	if binary == "" {
		binary = "gm"
	}
	return &GMAssembler{Runner: r, Binary: binary, Timeout: timeout}
}

func (g *GMAssembler) Assemble(ctx context.Context, images []string, out string) error {
	if len(images) == 0 {
		return fmt.Errorf("no images to assemble into %s", out)
	}
	args := append([]string{"convert"}, images...)
	args = append(args, out)
	_, err := g.Runner.Run(ctx, Command{Name: g.Binary, Args: args, Timeout: g.Timeout})
	return err
}

// FitzRasterizer renders pages in-process with MuPDF.
type FitzRasterizer struct {
	DPI     float64
	Quality int
	logger  *zap.Logger
}

// NewFitzRasterizer returns a MuPDF-backed rasterizer.
func NewFitzRasterizer(dpi float64, quality int, logger *zap.Logger) *FitzRasterizer {
	if dpi <= 0 {
		dpi = 150
	}
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FitzRasterizer{DPI: dpi, Quality: quality, logger: logger}
}

func (f *FitzRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", pdfPath, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("%s has no pages", pdfPath)
	}

	pages := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		img, err := doc.ImageDPI(i, f.DPI)
		if err != nil {
			return pages, fmt.Errorf("render page %d: %w", i+1, err)
		}
		out := filepath.Join(outDir, fmt.Sprintf(pagePattern, i))
		file, err := os.Create(out)
		if err != nil {
			return pages, err
		}
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: f.Quality})
		file.Close()
		if err != nil {
			return pages, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		pages = append(pages, out)
		f.logger.Debug("page rendered", zap.String("file", pdfPath), zap.Int("page", i+1))
	}
	return pages, nil
}

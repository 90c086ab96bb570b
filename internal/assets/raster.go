package assets

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
)

const (
	// minRasterSize is the smallest edge accepted without upscaling; vision
	// models lose logo detail below this.
	minRasterSize = 256
	// svgRenderSize is the edge length vector logos are rendered at.
	svgRenderSize = 512
)

// Rasterizer converts raw logo bytes into a vision-model-compatible PNG
// raster. Vector inputs are rendered; low-resolution rasters are upscaled.
type Rasterizer interface {
	Rasterize(raw []byte, mime string) ([]byte, error)
}

// Verifier decode-checks a raster before it is included in a prompt.
type Verifier interface {
	Verify(raster []byte) bool
}

// StandardRasterizer handles SVG, PNG, JPEG and GIF inputs.
type StandardRasterizer struct{}

func NewStandardRasterizer() *StandardRasterizer {
	return &StandardRasterizer{}
}

func (r *StandardRasterizer) Rasterize(raw []byte, mime string) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty logo payload")
	}
	if isSVG(raw, mime) {
		return rasterizeSVG(raw)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode raster: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() >= minRasterSize && bounds.Dy() >= minRasterSize {
		return encodePNG(src)
	}
	return encodePNG(upscale(src, minRasterSize))
}

// Verify reports whether the raster decodes cleanly with positive dimensions.
func (r *StandardRasterizer) Verify(raster []byte) bool {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raster))
	if err != nil {
		return false
	}
	return cfg.Width > 0 && cfg.Height > 0
}

func isSVG(raw []byte, mime string) bool {
	if strings.Contains(strings.ToLower(mime), "svg") {
		return true
	}
	head := bytes.TrimSpace(raw)
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(head, []byte("<svg"))
}

func rasterizeSVG(raw []byte) ([]byte, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	icon.SetTarget(0, 0, float64(svgRenderSize), float64(svgRenderSize))
	rgba := image.NewRGBA(image.Rect(0, 0, svgRenderSize, svgRenderSize))
	scanner := rasterx.NewScannerGV(svgRenderSize, svgRenderSize, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(svgRenderSize, svgRenderSize, scanner), 1.0)

	return encodePNG(rgba)
}

// upscale grows the image so its shorter edge reaches minEdge, preserving the
// aspect ratio.
func upscale(src image.Image, minEdge int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	scale := float64(minEdge) / float64(w)
	if h < w {
		scale = float64(minEdge) / float64(h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

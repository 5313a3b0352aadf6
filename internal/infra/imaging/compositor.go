package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"

	"pinterest-ai-studio/internal/domain/model"
)

const jpegQuality = 90

// Compositor flattens a generated base image into a pin template: background,
// image slots at position/size/opacity, text overlays, one raster output.
type Compositor struct {
	fontData []byte
}

// NewCompositor loads the overlay font once. An empty fontPath is allowed;
// text overlays are then skipped with a rendering error only if a template
// actually requests text.
func NewCompositor(fontPath string) (*Compositor, error) {
	c := &Compositor{}
	if fontPath != "" {
		b, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("read overlay font: %w", err)
		}
		if _, err := truetype.Parse(b); err != nil {
			return nil, fmt.Errorf("parse overlay font: %w", err)
		}
		c.fontData = b
	}
	return c, nil
}

// Composite renders the final artifact as JPEG bytes. A nil template is a
// pass-through resize of the base image to the output dimensions.
func (c *Compositor) Composite(base []byte, tmpl *model.PinTemplate, outW, outH int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(base))
	if err != nil {
		return nil, fmt.Errorf("decode base image: %w", err)
	}
	if outW <= 0 || outH <= 0 {
		b := src.Bounds()
		outW, outH = b.Dx(), b.Dy()
	}

	if tmpl == nil {
		return encodeJPEG(scaleTo(src, outW, outH))
	}

	canvas := image.NewRGBA(image.Rect(0, 0, tmpl.Width, tmpl.Height))
	bg := parseHexColor(tmpl.Background, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	for _, slot := range tmpl.Slots {
		scaled := scaleTo(src, slot.Width, slot.Height)
		rect := image.Rect(slot.X, slot.Y, slot.X+slot.Width, slot.Y+slot.Height)
		opacity := slot.Opacity
		if opacity <= 0 || opacity > 1 {
			opacity = 1
		}
		mask := &image.Uniform{C: color.Alpha{A: uint8(opacity*255 + 0.5)}}
		draw.DrawMask(canvas, rect, scaled, image.Point{}, mask, image.Point{}, draw.Over)
	}

	if len(tmpl.Overlays) > 0 {
		if err := c.drawOverlays(canvas, tmpl.Overlays); err != nil {
			return nil, err
		}
	}

	var final image.Image = canvas
	if outW != tmpl.Width || outH != tmpl.Height {
		final = scaleTo(canvas, outW, outH)
	}
	return encodeJPEG(final)
}

func (c *Compositor) drawOverlays(canvas *image.RGBA, overlays []model.TextOverlay) error {
	if c.fontData == nil {
		return fmt.Errorf("template has text overlays but no overlay font is configured")
	}
	dc := gg.NewContextForRGBA(canvas)
	for _, ov := range overlays {
		if strings.TrimSpace(ov.Text) == "" {
			continue
		}
		size := ov.Size
		if size <= 0 {
			size = 32
		}
		face, err := c.face(size)
		if err != nil {
			return err
		}
		dc.SetFontFace(face)
		dc.SetColor(parseHexColor(ov.Color, color.RGBA{A: 255}))
		dc.DrawStringAnchored(ov.Text, ov.X, ov.Y, 0, 0.5)
	}
	return nil
}

func (c *Compositor) face(size float64) (font.Face, error) {
	f, err := truetype.Parse(c.fontData)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}

func scaleTo(src image.Image, w, h int) *image.RGBA {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// parseHexColor accepts "#rrggbb" or "rrggbb"; anything else yields fallback.
func parseHexColor(s string, fallback color.RGBA) color.RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return fallback
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallback
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

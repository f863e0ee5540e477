// internal/annotate/draw.go
package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

var markRed = color.RGBA{R: 220, G: 30, B: 30, A: 255}

const (
	boxStroke    = 2
	labelPadding = 3
)

// DrawMarks paints a red outline and a numbered label in the top-left corner
// of every element onto a copy of the screenshot. The input bytes are left
// untouched.
func DrawMarks(screenshot []byte, elements []schemas.BBoxElement) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	img := image.NewRGBA(src.Bounds())
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)

	for _, el := range elements {
		x := int(el.CenterX - el.Width/2)
		y := int(el.CenterY - el.Height/2)
		w := int(el.Width)
		h := int(el.Height)
		drawRect(img, x, y, w, h)
		drawLabel(img, x, y, strconv.Itoa(el.Index))
	}

	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, fmt.Errorf("failed to encode annotated screenshot: %w", err)
	}
	return out.Bytes(), nil
}

func drawRect(img *image.RGBA, x, y, w, h int) {
	fill(img, x, y, w, boxStroke)
	fill(img, x, y+h-boxStroke, w, boxStroke)
	fill(img, x, y, boxStroke, h)
	fill(img, x+w-boxStroke, y, boxStroke, h)
}

func drawLabel(img *image.RGBA, x, y int, text string) {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	textHeight := face.Metrics().Ascent.Ceil()

	bg := image.Rect(x, y, x+textWidth+2*labelPadding, y+textHeight+2*labelPadding)
	draw.Draw(img, bg.Intersect(img.Bounds()), image.NewUniform(markRed), image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(x + labelPadding),
			Y: fixed.I(y + labelPadding + textHeight),
		},
	}
	d.DrawString(text)
}

// fill paints a solid rectangle clipped to the image bounds.
func fill(img *image.RGBA, x, y, w, h int) {
	r := image.Rect(x, y, x+w, y+h).Intersect(img.Bounds())
	draw.Draw(img, r, image.NewUniform(markRed), image.Point{}, draw.Src)
}

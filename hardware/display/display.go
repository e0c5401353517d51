// Package display is the 320x240 RGB565 frame that renders draw calls
// and presents them to framebuffer device or PNG snapshot file.
package display

import (
	"image"
	"image/color"
	"strings"

	"github.com/juju/errors"
	"github.com/temoto/powerdash/hardware/display/framebuffer"
	"github.com/temoto/powerdash/internal/render"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"
	"tinygo.org/x/tinyfont/proggy"
)

// Sink receives complete frames on Flush.
type Sink interface {
	Present(pix []uint16, size image.Point) error
	Close() error
}

type Display struct {
	pix   []uint16
	size  image.Point
	sink  Sink
	dirty bool
	// flushes counts frames sent to sink
	flushes uint64
}

// compile-time interface compliance test
var _ render.Canvas = new(Display)
var _ drivers.Displayer = new(Display)

var fonts = map[render.Font]tinyfont.Fonter{
	render.FontLabel:      &proggy.TinySZ8pt7b,
	render.FontValue:      &freemono.Bold12pt7b,
	render.FontValueLarge: &freemono.Bold18pt7b,
	render.FontBadge:      &freemono.Bold9pt7b,
}

func New(driver, dev string) (*Display, error) {
	switch driver {
	case "", "framebuffer":
		if dev == "" {
			dev = "/dev/fb1"
		}
		fb, err := framebuffer.New(dev)
		if err != nil {
			return nil, errors.Annotatef(err, "framebuffer device=%s", dev)
		}
		return NewWithSink(fb), nil
	case "png":
		if dev == "" {
			return nil, errors.NotValidf("display driver=png requires file")
		}
		return NewWithSink(NewPNG(dev)), nil
	case "none":
		return NewMock(), nil
	}
	return nil, errors.NotSupportedf("display driver=%s", driver)
}

func NewWithSink(sink Sink) *Display {
	d := NewMock()
	d.sink = sink
	return d
}

// NewMock returns frame without sink, Flush only resets dirty flag.
func NewMock() *Display {
	size := image.Point{X: render.Width, Y: render.Height}
	return &Display{
		pix:  make([]uint16, size.X*size.Y),
		size: size,
	}
}

func (d *Display) Close() error {
	if d.sink != nil {
		return d.sink.Close()
	}
	return nil
}

func (d *Display) Dirty() bool         { return d.dirty }
func (d *Display) Flushes() uint64     { return d.flushes }
func (d *Display) Bounds() image.Point { return d.size }

// Flush presents frame to sink if anything was drawn since last flush.
func (d *Display) Flush() error {
	if !d.dirty {
		return nil
	}
	d.dirty = false
	d.flushes++
	if d.sink != nil {
		return errors.Annotate(d.sink.Present(d.pix, d.size), "display flush")
	}
	return nil
}

func (d *Display) At(x, y int) render.Color {
	if x < 0 || y < 0 || x >= d.size.X || y >= d.size.Y {
		return render.Black
	}
	return render.Color(d.get(x, y))
}

// Image converts frame to RGBA, for snapshots and tests.
func (d *Display) Image() *image.RGBA {
	img := image.NewRGBA(image.Rectangle{Max: d.size})
	for y := 0; y < d.size.Y; y++ {
		for x := 0; x < d.size.X; x++ {
			img.SetRGBA(x, y, render.Color(d.get(x, y)).RGBA())
		}
	}
	return img
}

// String2 renders frame as text, one cell per pixel, black is space.
func (d *Display) String2(r image.Rectangle) string {
	r = r.Intersect(image.Rectangle{Max: d.size})
	b := strings.Builder{}
	b.Grow((r.Dx()*2 + 1) * r.Dy()) // +1 for \n
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if d.get(x, y) == 0 {
				b.WriteString("  ")
			} else {
				b.WriteString("██")
			}
		}
		b.WriteRune('\n')
	}
	return b.String()
}

// drivers.Displayer, used by tinyfont

func (d *Display) Size() (x, y int16) { return int16(d.size.X), int16(d.size.Y) }

func (d *Display) SetPixel(x, y int16, c color.RGBA) {
	d.pixel(int(x), int(y), render.FromRGBA(c))
}

func (d *Display) Display() error { return d.Flush() }

// render.Canvas

func (d *Display) FillScreen(c render.Color) {
	for i := range d.pix {
		d.pix[i] = uint16(c)
	}
	d.dirty = true
}

func (d *Display) FillRect(x, y, w, h int, c render.Color) {
	r := image.Rect(x, y, x+w, y+h).Intersect(image.Rectangle{Max: d.size})
	for py := r.Min.Y; py < r.Max.Y; py++ {
		row := d.pix[py*d.size.X:]
		for px := r.Min.X; px < r.Max.X; px++ {
			row[px] = uint16(c)
		}
	}
	d.dirty = true
}

func (d *Display) DrawHLine(x, y, w int, c render.Color) { d.FillRect(x, y, w, 1, c) }
func (d *Display) DrawVLine(x, y, h int, c render.Color) { d.FillRect(x, y, 1, h, c) }

func (d *Display) DrawCentreString(s string, cx, y int, f render.Font, c render.Color) {
	font, ok := fonts[f]
	if !ok {
		font = fonts[render.FontValue]
	}
	width, _ := tinyfont.LineWidth(font, s)
	// y is top of text, tinyfont wants baseline
	ascent := -int(font.GetGlyph('0').Info().YOffset)
	tinyfont.WriteLine(d, font, int16(cx-int(width)/2), int16(y+ascent), s, c.RGBA())
	d.dirty = true
}

func (d *Display) pixel(x, y int, c render.Color) {
	if x < 0 || y < 0 || x >= d.size.X || y >= d.size.Y {
		return
	}
	d.set(x, y, uint16(c))
	d.dirty = true
}

func (d *Display) get(x, y int) uint16    { return d.pix[y*d.size.X+x] }
func (d *Display) set(x, y int, c uint16) { d.pix[y*d.size.X+x] = c }

func minInt(i1, i2 int) int {
	if i1 <= i2 {
		return i1
	}
	return i2
}

package display

import (
	"image"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/powerdash/internal/render"
)

// art converts "X." rows to String2 format
func art(rows ...string) string {
	b := strings.Builder{}
	for _, row := range rows {
		for _, c := range row {
			if c == 'X' {
				b.WriteString("██")
			} else {
				b.WriteString("  ")
			}
		}
		b.WriteRune('\n')
	}
	return b.String()
}

type mockSink struct {
	frames int
	last   []uint16
	closed bool
}

func (s *mockSink) Present(pix []uint16, size image.Point) error {
	s.frames++
	s.last = append(s.last[:0], pix...)
	return nil
}
func (s *mockSink) Close() error { s.closed = true; return nil }

func TestShapes(t *testing.T) {
	t.Parallel()

	box := image.Rect(0, 0, 5, 5)
	cases := []struct {
		name   string
		draw   func(d *Display)
		expect string
	}{
		{"fill-round", func(d *Display) { d.FillRoundRect(0, 0, 5, 5, 2, render.White) },
			art(".XXX.", "XXXXX", "XXXXX", "XXXXX", ".XXX.")},
		{"draw-round", func(d *Display) { d.DrawRoundRect(0, 0, 5, 5, 2, render.White) },
			art(".XXX.", "X...X", "X...X", "X...X", ".XXX.")},
		{"radius-zero", func(d *Display) { d.DrawRoundRect(1, 1, 3, 3, 0, render.White) },
			art(".....", ".XXX.", ".X.X.", ".XXX.", ".....")},
		{"radius-negative", func(d *Display) { d.FillRoundRect(1, 1, 2, 2, -4, render.White) },
			art(".....", ".XX..", ".XX..", ".....", ".....")},
		{"clip", func(d *Display) { d.FillRect(-2, 3, 4, 9, render.White) },
			art(".....", ".....", ".....", "XX...", "XX...")},
		{"hline", func(d *Display) { d.DrawHLine(1, 2, 3, render.Red) },
			art(".....", ".....", ".XXX.", ".....", ".....")},
		{"empty", func(d *Display) { d.FillRoundRect(0, 0, 0, 5, 2, render.White) },
			art(".....", ".....", ".....", ".....", ".....")},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			d := NewMock()
			c.draw(d)
			assert.Equal(t, c.expect, d.String2(box))
		})
	}
}

func TestColors(t *testing.T) {
	t.Parallel()

	d := NewMock()
	d.FillScreen(render.Navy)
	d.FillRect(10, 10, 1, 1, render.Pink)
	assert.Equal(t, render.Navy, d.At(0, 0))
	assert.Equal(t, render.Pink, d.At(10, 10))
	assert.Equal(t, render.Black, d.At(-1, 500))
	assert.Equal(t, render.Pink.RGBA(), d.Image().RGBAAt(10, 10))
}

func TestCentreString(t *testing.T) {
	t.Parallel()

	d := NewMock()
	d.DrawCentreString("888", 160, 100, render.FontValue, render.White)
	minX, maxX := render.Width, 0
	lit := 0
	for y := 0; y < render.Height; y++ {
		for x := 0; x < render.Width; x++ {
			if d.At(x, y) != render.White {
				continue
			}
			lit++
			assert.True(t, y >= 100 && y < 130, "pixel y=%d outside text line", y)
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
		}
	}
	require.NotZero(t, lit)
	centre := (minX + maxX) / 2
	assert.InDelta(t, 160, centre, 4)
	assert.True(t, d.Dirty())
}

func TestFlush(t *testing.T) {
	t.Parallel()

	sink := &mockSink{}
	d := NewWithSink(sink)
	require.NoError(t, d.Flush())
	assert.Equal(t, 0, sink.frames)

	d.FillRect(0, 0, 1, 1, render.Red)
	require.NoError(t, d.Flush())
	require.NoError(t, d.Flush())
	assert.Equal(t, 1, sink.frames)
	assert.Equal(t, uint16(render.Red), sink.last[0])
	assert.Equal(t, uint64(1), d.Flushes())

	d.SetPixel(1, 0, render.Green.RGBA())
	require.NoError(t, d.Display())
	assert.Equal(t, 2, sink.frames)
	assert.Equal(t, uint16(render.Green), sink.last[1])

	require.NoError(t, d.Close())
	assert.True(t, sink.closed)
}

func TestPNG(t *testing.T) {
	t.Parallel()

	dir, err := ioutil.TempDir("", "powerdash-display")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "frame.png")

	d, err := New("png", path)
	require.NoError(t, err)
	d.FillScreen(render.Navy)
	d.FillRect(5, 5, 10, 10, render.Orange)
	require.NoError(t, d.Flush())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, render.Width, render.Height), img.Bounds())
	r, g, b, _ := img.At(7, 7).RGBA()
	expect := render.Orange.RGBA()
	assert.Equal(t, []uint8{expect.R, expect.G, expect.B}, []uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)})
}

func TestNewDriver(t *testing.T) {
	t.Parallel()

	_, err := New("png", "")
	assert.Error(t, err)
	_, err = New("vga", "")
	assert.Error(t, err)
	d, err := New("none", "")
	require.NoError(t, err)
	assert.Equal(t, image.Point{X: 320, Y: 240}, d.Bounds())
}

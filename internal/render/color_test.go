package render

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorRGBA(t *testing.T) {
	t.Parallel()

	cases := []struct {
		c      Color
		expect color.RGBA
	}{
		{Black, color.RGBA{0, 0, 0, 0xff}},
		{White, color.RGBA{0xff, 0xff, 0xff, 0xff}},
		{Red, color.RGBA{0xff, 0, 0, 0xff}},
		{Green, color.RGBA{0, 0xff, 0, 0xff}},
		{Blue, color.RGBA{0, 0, 0xff, 0xff}},
		{Navy, color.RGBA{0, 0, 0x7b, 0xff}},
		{DarkGrey, color.RGBA{0x7b, 0x7d, 0x7b, 0xff}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.c.String(), func(t *testing.T) {
			assert.Equal(t, c.expect, c.c.RGBA())
			assert.Equal(t, c.c, FromRGBA(c.c.RGBA()))
		})
	}
}

func TestColorPaletteRoundtrip(t *testing.T) {
	t.Parallel()

	for c, name := range colorNames {
		assert.Equal(t, c, FromRGBA(c.RGBA()), name)
		assert.Equal(t, c, RGB565(c.R5(), c.G6(), c.B5()), name)
	}
	assert.Equal(t, "#1234", Color(0x1234).String())
}

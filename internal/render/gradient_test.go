package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuarterProfile(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{0}, quarterProfile(0))
	assert.Equal(t, []int{4, 3, 3, 2, 0}, quarterProfile(4))
	assert.Equal(t, []int{6, 5, 5, 5, 4, 3, 0}, quarterProfile(6))
}

func TestLerp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		from, to Color
		i, n     int
		expect   Color
	}{
		{"start", Cyan, Blue, 0, 67, Cyan},
		{"end", Cyan, Blue, 66, 67, Blue},
		{"single-row", Yellow, White, 0, 1, Yellow},
		// green 63->0 at ratio 1/2: 63-31.5 rounds half up to 32
		{"mid-down", Cyan, Blue, 1, 3, RGB565(0, 32, 31)},
		// blue 0->31 at 1/2: 15.5 -> 16
		{"mid-up", Yellow, White, 1, 3, RGB565(31, 63, 16)},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expect, Lerp(c.from, c.to, c.i, c.n))
		})
	}
}

func TestGradientSpans(t *testing.T) {
	t.Parallel()

	// PV field inset area
	spans := GradientSpans(9, 9, 302, 67, 6, Cyan, Blue)
	require.Len(t, spans, 67)
	assert.Equal(t, Span{X: 15, Y: 9, W: 290, Color: Cyan}, spans[0])
	assert.Equal(t, Span{X: 10, Y: 14, W: 300, Color: spans[5].Color}, spans[5])
	assert.Equal(t, 9, spans[6].X)
	assert.Equal(t, 302, spans[30].W)
	assert.Equal(t, Blue, spans[66].Color)
	for i := 0; i < 67; i++ {
		mirror := spans[66-i]
		assert.Equal(t, spans[i].X, mirror.X, "row=%d", i)
		assert.Equal(t, spans[i].W, mirror.W, "row=%d", i)
		assert.True(t, spans[i].X >= 0 && spans[i].X+spans[i].W <= Width)
	}
}

func TestGradientSpansClip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		x, w       int
		firstX     int
		firstW     int
		fullRowsW  int
		expectRows int
	}{
		{"left", -10, 50, 0, 36, 40, 20},
		{"right", 300, 50, 304, 16, 20, 20},
		{"outside", 400, 50, 0, 0, 0, 0},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			spans := GradientSpans(c.x, 0, c.w, 20, 4, Black, White)
			require.Len(t, spans, c.expectRows)
			if c.expectRows == 0 {
				return
			}
			assert.Equal(t, c.firstX, spans[0].X)
			assert.Equal(t, c.firstW, spans[0].W)
			assert.Equal(t, c.fullRowsW, spans[10].W)
		})
	}
}

func TestGradientSpansDegenerate(t *testing.T) {
	t.Parallel()

	assert.Nil(t, GradientSpans(0, 0, 0, 10, 2, Black, White))
	assert.Nil(t, GradientSpans(0, 0, 10, -1, 2, Black, White))
	spans := GradientSpans(0, 0, 10, 1, 0, Red, Blue)
	assert.Equal(t, []Span{{X: 0, Y: 0, W: 10, Color: Red}}, spans)
	// radius larger than half height is clamped
	assert.Len(t, GradientSpans(0, 0, 40, 6, 10, Red, Blue), 6)
}

package render

import (
	"fmt"
	"image/color"
)

// Color is RGB565 as used by SPI TFT panels and 16bpp framebuffers.
type Color uint16

const (
	Black       Color = 0x0000
	Navy        Color = 0x000F
	DarkGreen   Color = 0x03E0
	DarkCyan    Color = 0x03EF
	Maroon      Color = 0x7800
	Purple      Color = 0x780F
	Olive       Color = 0x7BE0
	LightGrey   Color = 0xC618
	DarkGrey    Color = 0x7BEF
	Blue        Color = 0x001F
	Green       Color = 0x07E0
	Cyan        Color = 0x07FF
	Red         Color = 0xF800
	Magenta     Color = 0xF81F
	Yellow      Color = 0xFFE0
	White       Color = 0xFFFF
	Orange      Color = 0xFD20
	GreenYellow Color = 0xAFE5
	Pink        Color = 0xFE19
)

var colorNames = map[Color]string{
	Black: "black", Navy: "navy", DarkGreen: "darkgreen", DarkCyan: "darkcyan",
	Maroon: "maroon", Purple: "purple", Olive: "olive", LightGrey: "lightgrey",
	DarkGrey: "darkgrey", Blue: "blue", Green: "green", Cyan: "cyan", Red: "red",
	Magenta: "magenta", Yellow: "yellow", White: "white", Orange: "orange",
	GreenYellow: "greenyellow", Pink: "pink",
}

func (c Color) String() string {
	if s, ok := colorNames[c]; ok {
		return s
	}
	return fmt.Sprintf("#%04x", uint16(c))
}

func (c Color) R5() uint8 { return uint8(c>>11) & 0x1f }
func (c Color) G6() uint8 { return uint8(c>>5) & 0x3f }
func (c Color) B5() uint8 { return uint8(c) & 0x1f }

func RGB565(r5, g6, b5 uint8) Color {
	return Color(uint16(r5&0x1f)<<11 | uint16(g6&0x3f)<<5 | uint16(b5&0x1f))
}

// RGBA expands to 8 bit channels, replicating high bits into low ones.
func (c Color) RGBA() color.RGBA {
	r, g, b := c.R5(), c.G6(), c.B5()
	return color.RGBA{R: r<<3 | r>>2, G: g<<2 | g>>4, B: b<<3 | b>>2, A: 0xff}
}

func FromRGBA(c color.RGBA) Color {
	return RGB565(c.R>>3, c.G>>2, c.B>>3)
}

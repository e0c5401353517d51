// Package render turns telemetry store into draw calls: dirty check per field,
// field compositing (shadow, gradient, border, text) and static chrome.
package render

type Font uint8

const (
	FontLabel Font = iota
	FontValue
	FontValueLarge
	FontBadge
)

// Canvas is the rasterizer collaborator. Coordinates are display pixels,
// out of bounds parts are clipped by implementation.
type Canvas interface {
	FillScreen(c Color)
	FillRect(x, y, w, h int, c Color)
	DrawHLine(x, y, w int, c Color)
	FillRoundRect(x, y, w, h, r int, c Color)
	DrawRoundRect(x, y, w, h, r int, c Color)
	DrawCentreString(s string, cx, y int, f Font, c Color)
}

const (
	Width  = 320
	Height = 240
)

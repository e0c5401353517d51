package render

import (
	"fmt"
	"strconv"

	"github.com/temoto/powerdash/internal/telemetry"
)

// Field is fixed layout and styling of one telemetry channel.
type Field struct {
	Channel    telemetry.Channel
	Label      string
	X, Y, W, H int
	R          int
	CX         int // text centre
	LabelY     int
	ValueY     int
	ValueFont  Font
	Shadow     Color
	From, To   Color
	Border     func(telemetry.Value) Color
	Text       func(telemetry.Value) string
	// Key decides whether value change is visible
	Key func(telemetry.Value) string
}

const (
	shadowInset = 4
	borderPass  = 4
)

var Layout = [telemetry.ChannelCount]Field{
	telemetry.Generation: {
		Channel: telemetry.Generation, Label: "PV Leistung",
		X: 5, Y: 5, W: 310, H: 75, R: 10, CX: 160, LabelY: 12, ValueY: 40, ValueFont: FontValueLarge,
		Shadow: Blue, From: Cyan, To: Blue,
		Border: func(telemetry.Value) Color { return DarkCyan },
		Text:   func(v telemetry.Value) string { return FormatGeneration(v.Int()) },
		Key:    func(v telemetry.Value) string { return strconv.FormatInt(v.Int(), 10) },
	},
	telemetry.Grid: {
		Channel: telemetry.Grid, Label: "Netz [W]",
		X: 5, Y: 85, W: 147, H: 80, R: 8, CX: 78, LabelY: 92, ValueY: 118, ValueFont: FontValue,
		Shadow: DarkGreen, From: Green, To: GreenYellow,
		Border: GridBorder,
		Text:   watts,
		Key:    telemetry.Value.String,
	},
	telemetry.Storage: {
		Channel: telemetry.Storage, Label: "Akku [W]",
		X: 165, Y: 85, W: 147, H: 80, R: 8, CX: 238, LabelY: 92, ValueY: 118, ValueFont: FontValue,
		Shadow: DarkGrey, From: Orange, To: Yellow,
		Border: StorageBorder,
		Text:   watts,
		Key:    telemetry.Value.String,
	},
	telemetry.Battery: {
		Channel: telemetry.Battery, Label: "Akku Level [%]",
		X: 5, Y: 170, W: 147, H: 65, R: 8, CX: 78, LabelY: 177, ValueY: 200, ValueFont: FontValue,
		Shadow: DarkGrey, From: Yellow, To: White,
		Border: BatteryBorder,
		Text:   percent,
		Key:    telemetry.Value.String,
	},
	telemetry.Autarky: {
		Channel: telemetry.Autarky, Label: "Autarkie [%]",
		X: 165, Y: 170, W: 147, H: 65, R: 8, CX: 238, LabelY: 177, ValueY: 200, ValueFont: FontValue,
		Shadow: Purple, From: Magenta, To: Pink,
		Border: func(telemetry.Value) Color { return Purple },
		Text:   percent,
		Key:    telemetry.Value.String,
	},
}

func FormatGeneration(n int64) string {
	if n >= 1000 {
		return fmt.Sprintf("%.1f kW", float32(n)/1000)
	}
	return fmt.Sprintf("%d W", n)
}

func GridBorder(v telemetry.Value) Color {
	if v.Int() > 500 {
		return Red
	}
	return DarkGreen
}

func StorageBorder(v telemetry.Value) Color {
	if v.Int() > 0 {
		return Green
	}
	return Orange
}

func BatteryBorder(v telemetry.Value) Color {
	switch n := v.Int(); {
	case n > 75:
		return Green
	case n > 25:
		return Yellow
	}
	return Red
}

func watts(v telemetry.Value) string   { return v.String() + " W" }
func percent(v telemetry.Value) string { return v.String() + "%" }

// Draw composites field: shadow, gradient, border passes, label, value.
func (f *Field) Draw(cv Canvas, v telemetry.Value) {
	x, y, w, h, r := f.X+shadowInset, f.Y+shadowInset, f.W-2*shadowInset, f.H-2*shadowInset, f.R-shadowInset
	if r < 0 {
		r = 0
	}
	cv.FillRoundRect(x, y, w, h, r, f.Shadow)
	FillGradientRoundRect(cv, x, y, w, h, r, f.From, f.To)
	border := f.Border(v)
	for k := 0; k < borderPass; k++ {
		cv.DrawRoundRect(f.X+k, f.Y+k, f.W-2*k, f.H-2*k, f.R-k, border)
	}
	cv.DrawCentreString(f.Label, f.CX, f.LabelY, FontLabel, Black)
	cv.DrawCentreString(f.Text(v), f.CX, f.ValueY, f.ValueFont, Black)
}

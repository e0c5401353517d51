package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/powerdash/internal/telemetry"
	"github.com/temoto/powerdash/log2"
)

func TestFormatGeneration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		n      int64
		expect string
	}{
		{0, "0 W"},
		{999, "999 W"},
		{1000, "1.0 kW"},
		{1200, "1.2 kW"},
		{9999, "10.0 kW"},
		{12345, "12.3 kW"},
		{-40, "-40 W"},
	}
	for _, c := range cases {
		assert.Equal(t, c.expect, FormatGeneration(c.n))
	}
}

func TestBorders(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		fun    func(telemetry.Value) Color
		input  string
		expect Color
	}{
		{"grid/low", GridBorder, "500", DarkGreen},
		{"grid/high", GridBorder, "501", Red},
		{"grid/frac", GridBorder, "500.9", DarkGreen},
		{"grid/export", GridBorder, "-800", DarkGreen},
		{"storage/charge", StorageBorder, "1", Green},
		{"storage/idle", StorageBorder, "0", Orange},
		{"storage/frac", StorageBorder, "0.5", Orange},
		{"storage/discharge", StorageBorder, "-120", Orange},
		{"battery/full", BatteryBorder, "100", Green},
		{"battery/76", BatteryBorder, "76", Green},
		{"battery/75", BatteryBorder, "75", Yellow},
		{"battery/26", BatteryBorder, "26", Yellow},
		{"battery/25", BatteryBorder, "25", Red},
		{"battery/empty", BatteryBorder, "0", Red},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expect, c.fun(telemetry.MustValue(c.input)))
		})
	}
}

func newTestPipeline(t testing.TB) (*Pipeline, *Recorder, *telemetry.Store) {
	rec := NewRecorder()
	return NewPipeline(log2.NewTest(t, log2.LDebug), rec, DefaultInterval), rec, telemetry.NewStore()
}

func fieldOps(f *Field) int {
	return 1 + (f.H - 2*shadowInset) + borderPass + 2
}

func TestChrome(t *testing.T) {
	t.Parallel()

	p, rec, store := newTestPipeline(t)
	p.Chrome(store)
	ops := rec.Take()
	require.True(t, len(ops) > 3)
	assert.Equal(t, Op{Kind: "screen", Color: Navy}, ops[0])
	assert.Equal(t, Op{Kind: "round", X: 1, Y: 1, W: 318, H: 238, R: 10, Color: LightGrey}, ops[1])
	assert.Equal(t, Op{Kind: "round", X: 2, Y: 2, W: 316, H: 236, R: 8, Color: DarkGrey}, ops[2])
	total := 3
	for i := range Layout {
		total += fieldOps(&Layout[i])
	}
	assert.Equal(t, total, len(ops))
	assert.Equal(t, uint64(telemetry.ChannelCount), p.Redraws())
}

func TestRenderGrid(t *testing.T) {
	t.Parallel()

	p, rec, store := newTestPipeline(t)
	p.Chrome(store)
	rec.Take()

	store.Apply(telemetry.Update{Channel: telemetry.Grid, Value: telemetry.MustValue("750")})
	assert.Equal(t, []telemetry.Channel{telemetry.Grid}, p.Render(store, false))
	ops := rec.Take()
	f := &Layout[telemetry.Grid]
	require.Len(t, ops, fieldOps(f))
	assert.Equal(t, Op{Kind: "fillround", X: 9, Y: 89, W: 139, H: 72, R: 4, Color: DarkGreen}, ops[0])
	borders := 0
	for _, op := range ops {
		if op.Kind == "round" {
			assert.Equal(t, Red, op.Color)
			borders++
		}
	}
	assert.Equal(t, borderPass, borders)
	assert.Equal(t, Op{Kind: "round", X: 8, Y: 88, W: 141, H: 74, R: 5, Color: Red}, ops[len(ops)-3])
	assert.Equal(t, Op{Kind: "text", X: 78, Y: 92, Font: FontLabel, Color: Black, Text: "Netz [W]"}, ops[len(ops)-2])
	assert.Equal(t, Op{Kind: "text", X: 78, Y: 118, Font: FontValue, Color: Black, Text: "750 W"}, ops[len(ops)-1])

	// same value again is idempotent
	store.Apply(telemetry.Update{Channel: telemetry.Grid, Value: telemetry.MustValue("750")})
	assert.Nil(t, p.Render(store, false))
	assert.Empty(t, rec.Take())
}

func TestRenderTexts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		channel telemetry.Channel
		input   string
		expect  string
	}{
		{telemetry.Generation, "1200", "1.2 kW"},
		{telemetry.Generation, "850.7", "850 W"},
		{telemetry.Storage, "-120", "-120 W"},
		{telemetry.Battery, "88.5", "88.5%"},
		{telemetry.Autarky, "100", "100%"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.channel.String()+"/"+c.input, func(t *testing.T) {
			p, rec, store := newTestPipeline(t)
			p.Render(store, true)
			rec.Take()
			store.Apply(telemetry.Update{Channel: c.channel, Value: telemetry.MustValue(c.input)})
			assert.Equal(t, []telemetry.Channel{c.channel}, p.Render(store, false))
			texts := rec.Texts()
			require.Len(t, texts, 2)
			assert.Equal(t, c.expect, texts[1])
		})
	}
}

func TestRenderDirtyKey(t *testing.T) {
	t.Parallel()

	p, rec, store := newTestPipeline(t)
	p.Render(store, true)
	rec.Take()

	// generation compares integer part
	store.Apply(telemetry.Update{Channel: telemetry.Generation, Value: telemetry.MustValue("1200")})
	assert.Len(t, p.Render(store, false), 1)
	store.Apply(telemetry.Update{Channel: telemetry.Generation, Value: telemetry.MustValue("1200.7")})
	assert.Nil(t, p.Render(store, false))

	// other fields compare text
	store.Apply(telemetry.Update{Channel: telemetry.Storage, Value: telemetry.MustValue("5")})
	assert.Len(t, p.Render(store, false), 1)
	store.Apply(telemetry.Update{Channel: telemetry.Storage, Value: telemetry.MustValue("5.0")})
	assert.Equal(t, []telemetry.Channel{telemetry.Storage}, p.Render(store, false))

	// forced repaint draws all once
	rec.Take()
	assert.Len(t, p.Render(store, true), telemetry.ChannelCount)
	assert.Nil(t, p.Render(store, false))
}

func TestTickCadence(t *testing.T) {
	t.Parallel()

	p, _, store := newTestPipeline(t)
	ms := time.Millisecond
	steps := []struct {
		now    time.Duration
		expect bool
	}{
		{100 * ms, false},
		{500 * ms, false},
		{501 * ms, true},
		{900 * ms, false},
		{1001 * ms, false},
		{1002 * ms, true},
		{5 * time.Second, true},
	}
	for _, s := range steps {
		ok, _ := p.Tick(s.now, store)
		assert.Equal(t, s.expect, ok, "now=%v", s.now)
	}
}

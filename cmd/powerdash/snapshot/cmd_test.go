package snapshot

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/powerdash/internal/telemetry"
	"github.com/temoto/powerdash/log2"
)

func TestSetFlag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input  string
		expect string
		check  func(error) bool
	}{
		{"grid=750", "grid=750", nil},
		{"Battery=55.5", "battery=55.5", nil},
		{"grid", "", errors.IsNotValid},
		{"solar=1", "", errors.IsNotFound},
		{"grid=x", "", func(err error) bool { return err != nil }},
	}
	for _, c := range cases {
		c := c
		t.Run(c.input, func(t *testing.T) {
			t.Parallel()
			var f setFlag
			err := f.Set(c.input)
			if c.check != nil {
				require.Error(t, err)
				assert.True(t, c.check(err), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.expect, f.String())
		})
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "snap.png")
	updates := []telemetry.Update{{Channel: telemetry.Grid, Value: telemetry.MustValue("750")}}
	require.NoError(t, Render(log2.NewTest(t, log2.LDebug), path, updates))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

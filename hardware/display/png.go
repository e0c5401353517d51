package display

import (
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/temoto/powerdash/internal/render"
)

// PNG sink writes every presented frame to file, replaced atomically.
type PNG struct {
	path string
}

func NewPNG(path string) *PNG { return &PNG{path: path} }

func (p *PNG) Close() error { return nil }

func (p *PNG) Present(pix []uint16, size image.Point) error {
	img := image.NewRGBA(image.Rectangle{Max: size})
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			img.SetRGBA(x, y, render.Color(pix[y*size.X+x]).RGBA())
		}
	}
	return WritePNG(p.path, img)
}

func WritePNG(path string, img image.Image) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*.png")
	if err != nil {
		return errors.Annotate(err, "png")
	}
	tmp := f.Name()
	if err = png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Annotatef(err, "png encode file=%s", path)
	}
	if err = f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Annotate(err, "png")
	}
	return errors.Annotate(os.Rename(tmp, path), "png")
}

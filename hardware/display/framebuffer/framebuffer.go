// Package framebuffer writes RGB565 frames to Linux fbdev.
package framebuffer

import (
	"encoding/binary"
	"image"
	"io"
	"os"
	"unsafe"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"
)

type device interface {
	io.WriterAt
	io.Closer
}

type Framebuffer struct {
	buf    []byte
	dev    device
	finfo  fixedScreenInfo
	vinfo  variableScreenInfo
	stride int
}

func New(dev string) (*Framebuffer, error) {
	devFile, err := os.OpenFile(dev, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return nil, errors.Annotate(err, "open")
	}
	fb := &Framebuffer{dev: devFile}
	fd := devFile.Fd()

	if err = ioctl(fd, getFixedScreenInfo, unsafe.Pointer(&fb.finfo)); err != nil {
		devFile.Close()
		return nil, errors.Annotate(err, "getFixedScreenInfo")
	}
	if err = ioctl(fd, getVariableScreenInfo, unsafe.Pointer(&fb.vinfo)); err != nil {
		devFile.Close()
		return nil, errors.Annotate(err, "getVariableScreenInfo")
	}
	if err = fb.init(); err != nil {
		devFile.Close()
		return nil, errors.Annotatef(err, "device=%s", dev)
	}
	return fb, nil
}

func (fb *Framebuffer) init() error {
	switch {
	case fb.vinfo.Bits_per_pixel == 16 && fb.vinfo.Red == rgb565.Red && fb.vinfo.Green == rgb565.Green && fb.vinfo.Blue == rgb565.Blue:
	case fb.vinfo.Bits_per_pixel == 32 && fb.vinfo.Red == xrgb8888.Red && fb.vinfo.Green == xrgb8888.Green && fb.vinfo.Blue == xrgb8888.Blue:
	default:
		return errors.NotSupportedf("color model bpp=%d", fb.vinfo.Bits_per_pixel)
	}
	fb.stride = int(fb.finfo.Line_length)
	if fb.stride == 0 {
		fb.stride = int(fb.vinfo.Xres * fb.vinfo.Bits_per_pixel / 8)
	}
	fb.buf = make([]byte, fb.stride*int(fb.vinfo.Yres))
	return nil
}

func (fb *Framebuffer) Close() error {
	return fb.dev.Close()
}

func (fb *Framebuffer) Size() image.Point {
	return image.Point{X: int(fb.vinfo.Xres), Y: int(fb.vinfo.Yres)}
}

// Present copies RGB565 pixels of size frame into device memory.
// Frame is placed at top-left and clipped to device resolution.
func (fb *Framebuffer) Present(pix []uint16, size image.Point) error {
	if err := fb.Update(pix, size); err != nil {
		return err
	}
	return fb.Flush()
}

// Update sets pixels in internal buffer, call Flush() to write to hardware.
func (fb *Framebuffer) Update(pix []uint16, size image.Point) error {
	if len(pix) < size.X*size.Y {
		return errors.NotValidf("pixels=%d size=%s", len(pix), size)
	}
	w, h := size.X, size.Y
	if dx := int(fb.vinfo.Xres); w > dx {
		w = dx
	}
	if dy := int(fb.vinfo.Yres); h > dy {
		h = dy
	}
	wordSize := int(fb.vinfo.Bits_per_pixel / 8)
	for y := 0; y < h; y++ {
		row := fb.buf[y*fb.stride:]
		src := pix[y*size.X : y*size.X+w]
		for x, c := range src {
			off := x * wordSize
			if wordSize == 2 {
				binary.LittleEndian.PutUint16(row[off:], c)
			} else {
				binary.LittleEndian.PutUint32(row[off:], expand8888(c))
			}
		}
	}
	return nil
}

func (fb *Framebuffer) Flush() error {
	_, err := fb.dev.WriteAt(fb.buf, 0)
	return errors.Annotate(err, "framebuffer flush")
}

var rgb565 = variableScreenInfo{
	Red:   bitField{Offset: 11, Length: 5},
	Green: bitField{Offset: 5, Length: 6},
	Blue:  bitField{Offset: 0, Length: 5},
}

var xrgb8888 = variableScreenInfo{
	Red:   bitField{Offset: 16, Length: 8},
	Green: bitField{Offset: 8, Length: 8},
	Blue:  bitField{Offset: 0, Length: 8},
}

func expand8888(c uint16) uint32 {
	r, g, b := uint32(c>>11)&0x1f, uint32(c>>5)&0x3f, uint32(c)&0x1f
	r, g, b = r<<3|r>>2, g<<2|g>>4, b<<3|b>>2
	return 0xff000000 | r<<16 | g<<8 | b
}

func ioctl(fd uintptr, cmd uintptr, data unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, cmd, uintptr(data)); errno != 0 {
		return os.NewSyscallError("ioctl", errno)
	}
	return nil
}

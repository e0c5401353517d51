package render

import (
	"fmt"
	"strings"
	"sync"
)

// Recorder is Canvas that remembers draw calls, for tests and debug dumps.
type Recorder struct {
	mu  sync.Mutex
	ops []Op
}

type Op struct {
	Kind       string
	X, Y, W, H int
	R          int
	Font       Font
	Color      Color
	Text       string
}

func (op Op) String() string {
	switch op.Kind {
	case "text":
		return fmt.Sprintf("text(%q cx=%d y=%d font=%d %s)", op.Text, op.X, op.Y, op.Font, op.Color)
	case "hline":
		return fmt.Sprintf("hline(%d,%d w=%d %s)", op.X, op.Y, op.W, op.Color)
	case "screen":
		return fmt.Sprintf("screen(%s)", op.Color)
	}
	return fmt.Sprintf("%s(%d,%d,%d,%d r=%d %s)", op.Kind, op.X, op.Y, op.W, op.H, op.R, op.Color)
}

func NewRecorder() *Recorder { return &Recorder{} }

func (self *Recorder) add(op Op) {
	self.mu.Lock()
	self.ops = append(self.ops, op)
	self.mu.Unlock()
}

func (self *Recorder) FillScreen(c Color) { self.add(Op{Kind: "screen", Color: c}) }
func (self *Recorder) FillRect(x, y, w, h int, c Color) {
	self.add(Op{Kind: "rect", X: x, Y: y, W: w, H: h, Color: c})
}
func (self *Recorder) DrawHLine(x, y, w int, c Color) {
	self.add(Op{Kind: "hline", X: x, Y: y, W: w, Color: c})
}
func (self *Recorder) FillRoundRect(x, y, w, h, r int, c Color) {
	self.add(Op{Kind: "fillround", X: x, Y: y, W: w, H: h, R: r, Color: c})
}
func (self *Recorder) DrawRoundRect(x, y, w, h, r int, c Color) {
	self.add(Op{Kind: "round", X: x, Y: y, W: w, H: h, R: r, Color: c})
}
func (self *Recorder) DrawCentreString(s string, cx, y int, f Font, c Color) {
	self.add(Op{Kind: "text", X: cx, Y: y, Font: f, Color: c, Text: s})
}

// Take returns and resets recorded ops.
func (self *Recorder) Take() []Op {
	self.mu.Lock()
	defer self.mu.Unlock()
	ops := self.ops
	self.ops = nil
	return ops
}

// Filter returns recorded ops of given kind without resetting.
func (self *Recorder) Filter(kind string) []Op {
	self.mu.Lock()
	defer self.mu.Unlock()
	var out []Op
	for _, op := range self.ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Texts lists drawn strings in order.
func (self *Recorder) Texts() []string {
	ops := self.Filter("text")
	ss := make([]string, len(ops))
	for i, op := range ops {
		ss[i] = op.Text
	}
	return ss
}

func (self *Recorder) Dump() string {
	self.mu.Lock()
	defer self.mu.Unlock()
	var b strings.Builder
	for _, op := range self.ops {
		b.WriteString(op.String())
		b.WriteByte('\n')
	}
	return b.String()
}

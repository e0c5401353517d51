// Package persist keeps small state blobs across restarts.
package persist

import (
	"encoding"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/extremofile"
	"github.com/temoto/powerdash/log2"
)

type Stater interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type storage interface {
	Read() ([]byte, error)
	io.Writer
}

// Persist binds one Stater to one storage directory.
// Zero root means memory only: Load and Store succeed and do nothing.
type Persist struct {
	sync.Mutex
	log     *log2.Log
	tag     string
	target  Stater
	storage storage
}

func New(tag string, target Stater, root string, log *log2.Log) *Persist {
	if target == nil {
		panic("code error persist target=nil")
	}
	p := &Persist{log: log, tag: tag, target: target}
	if root == "" {
		log.Debugf("persist %s memory only", tag)
		return p
	}
	p.storage = extremofile.New(extremofile.Config{
		Dir:      filepath.Join(root, tag),
		DirPerm:  0755,
		FilePerm: 0644,
	})
	return p
}

func (p *Persist) Enabled() bool { return p.storage != nil }

func (p *Persist) Load() error {
	if p.storage == nil {
		return nil
	}
	p.Lock()
	defer p.Unlock()
	tbegin := time.Now()
	b, err := p.storage.Read()
	p.log.Debugf("persist %s read duration=%v", p.tag, time.Since(tbegin))
	if b == nil {
		if extremofile.IsCorrupt(err) {
			p.log.Errorf("persist %s corrupt data ignored", p.tag)
			return nil
		}
		return errors.Annotatef(err, "persist %s load", p.tag)
	}
	if err != nil {
		p.log.Errorf("persist %s ignore non-critical storage err=%v", p.tag, err)
	}
	return errors.Annotatef(p.target.UnmarshalBinary(b), "persist %s load", p.tag)
}

func (p *Persist) Store() error {
	if p.storage == nil {
		return nil
	}
	p.Lock()
	defer p.Unlock()
	b, err := p.target.MarshalBinary()
	if err == nil {
		tbegin := time.Now()
		_, err = p.storage.Write(b)
		p.log.Debugf("persist %s write duration=%v", p.tag, time.Since(tbegin))
	}
	return errors.Annotatef(err, "persist %s store", p.tag)
}

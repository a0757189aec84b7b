// Package viewport holds the latest remote-browser screenshot, maps clicks on
// its on-screen rendition back to remote pixels, and renders it to the
// terminal.
package viewport

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	_ "golang.org/x/image/webp"
)

// Size is a width and height in pixels.
type Size struct {
	Width  int
	Height int
}

// Frame is one decoded screenshot.
type Frame struct {
	Data     []byte
	MIME     string
	Image    image.Image
	Native   Size
	Received time.Time

	released  bool
	onRelease func()
}

// Decode builds a Frame from an inbound binary payload.
func Decode(data []byte, mime string) (*Frame, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s frame (%d bytes): %w", mime, len(data), err)
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = "image/" + format
	}
	b := img.Bounds()
	return &Frame{
		Data:     data,
		MIME:     mime,
		Image:    img,
		Native:   Size{Width: b.Dx(), Height: b.Dy()},
		Received: time.Now(),
	}, nil
}

// OnRelease registers a hook that runs when the frame is released.
func (f *Frame) OnRelease(fn func()) { f.onRelease = fn }

// Release drops the frame's pixel data. Only the first call has an effect;
// it reports whether this call released the frame.
func (f *Frame) Release() bool {
	if f == nil || f.released {
		return false
	}
	f.released = true
	f.Data = nil
	f.Image = nil
	if f.onRelease != nil {
		f.onRelease()
	}
	return true
}

// Released reports whether Release has run.
func (f *Frame) Released() bool { return f != nil && f.released }

// Store keeps at most one live frame. It is owned by the UI goroutine and
// is not safe for concurrent use.
type Store struct {
	current *Frame
}

// Replace installs f and releases the frame it supersedes.
func (s *Store) Replace(f *Frame) {
	prev := s.current
	s.current = f
	if prev != nil && prev != f {
		prev.Release()
	}
}

// Current returns the live frame, or nil.
func (s *Store) Current() *Frame { return s.current }

// Clear releases the live frame, if any.
func (s *Store) Clear() {
	if s.current != nil {
		s.current.Release()
		s.current = nil
	}
}

package mockserver

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	blankURL   = "about:blank"
	barHeight  = 36
	lineHeight = 16
	maxMarks   = 12
	maxLines   = 200
)

var errInvalidURL = errors.New("Invalid URL")

var (
	colorPage   = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorBar    = color.RGBA{0xe5, 0xe7, 0xeb, 0xff}
	colorText   = color.RGBA{0x11, 0x18, 0x27, 0xff}
	colorDimmed = color.RGBA{0x6b, 0x72, 0x80, 0xff}
	colorMark   = color.RGBA{0xdc, 0x26, 0x26, 0xff}
)

// knownKeys are the key names Press accepts.
var knownKeys = map[string]bool{
	"Enter": true, "Backspace": true, "Escape": true, "Tab": true,
	"ArrowUp": true, "ArrowDown": true, "ArrowLeft": true, "ArrowRight": true,
	"PageUp": true, "PageDown": true, "Home": true, "End": true,
}

// Page is a simulated browser tab. Its methods mirror the commands the
// console sends; Render draws its current state as a screenshot.
type Page struct {
	mu     sync.Mutex
	width  int
	height int

	url    string
	input  string
	lines  []string
	marks  []image.Point
	scroll int
}

// NewPage returns a blank page with the given viewport size.
func NewPage(width, height int) *Page {
	return &Page{width: width, height: height, url: blankURL}
}

// URL returns the current address.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Input returns the text typed since the last Enter.
func (p *Page) Input() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input
}

// Lines returns the submitted lines, oldest first.
func (p *Page) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}

// Marks returns the recorded click positions, oldest first.
func (p *Page) Marks() []image.Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]image.Point(nil), p.marks...)
}

// Scroll returns the current scroll offset in lines.
func (p *Page) Scroll() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scroll
}

// Navigate loads raw. Unparsable or non-http(s) addresses fail with
// "Invalid URL"; hosts under .invalid fail as unresolvable.
func (p *Page) Navigate(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", errInvalidURL, raw)
	}
	host := strings.ToLower(u.Hostname())
	if host == "invalid" || strings.HasSuffix(host, ".invalid") {
		return fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", u.String())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = u.String()
	p.input = ""
	p.lines = nil
	p.marks = nil
	p.scroll = 0
	return nil
}

// Click records a click at viewport pixel (x, y).
func (p *Page) Click(x, y int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if x < 0 || y < 0 || x >= p.width || y >= p.height {
		return fmt.Errorf("click at (%d, %d) is outside the %dx%d viewport", x, y, p.width, p.height)
	}
	p.marks = append(p.marks, image.Pt(x, y))
	if len(p.marks) > maxMarks {
		p.marks = p.marks[len(p.marks)-maxMarks:]
	}
	return nil
}

// ClickSelector records a click on an element by selector.
func (p *Page) ClickSelector(selector string) error {
	if strings.TrimSpace(selector) == "" {
		return errors.New("empty selector")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.appendLineLocked("clicked " + selector)
	return nil
}

// Type appends text to the focused input.
func (p *Page) Type(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.input += text
}

// Press handles a named key.
func (p *Page) Press(key string) error {
	if !knownKeys[key] {
		return fmt.Errorf("Unknown key: %q", key)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch key {
	case "Enter":
		if p.input != "" {
			p.appendLineLocked(p.input)
			p.input = ""
		}
	case "Backspace":
		if r := []rune(p.input); len(r) > 0 {
			p.input = string(r[:len(r)-1])
		}
	case "Escape":
		p.input = ""
	case "ArrowDown":
		p.scrollLocked(1)
	case "ArrowUp":
		p.scrollLocked(-1)
	case "PageDown":
		p.scrollLocked(p.visibleLines())
	case "PageUp":
		p.scrollLocked(-p.visibleLines())
	case "Home":
		p.scroll = 0
	case "End":
		p.scrollLocked(len(p.lines))
	}
	return nil
}

func (p *Page) appendLineLocked(s string) {
	p.lines = append(p.lines, s)
	if len(p.lines) > maxLines {
		p.lines = p.lines[len(p.lines)-maxLines:]
	}
}

func (p *Page) visibleLines() int {
	return max(1, (p.height-barHeight-3*lineHeight)/lineHeight)
}

func (p *Page) scrollLocked(delta int) {
	p.scroll = min(max(0, p.scroll+delta), max(0, len(p.lines)-1))
}

// Render draws the page and encodes it as a JPEG.
func (p *Page) Render(quality int) ([]byte, error) {
	p.mu.Lock()
	img := p.drawLocked()
	p.mu.Unlock()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Page) drawLocked() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorPage), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, p.width, barHeight), image.NewUniform(colorBar), image.Point{}, draw.Src)

	text := func(x, y int, c color.Color, s string) {
		d := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(c),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(x, y),
		}
		d.DrawString(s)
	}

	text(12, barHeight/2+5, colorText, p.url)

	y := barHeight + 2*lineHeight
	text(12, y, colorDimmed, fmt.Sprintf("mock page %dx%d", p.width, p.height))
	y += lineHeight
	text(12, y, colorText, "> "+p.input+"_")

	for _, line := range p.lines[min(p.scroll, len(p.lines)):] {
		y += lineHeight
		if y > p.height {
			break
		}
		text(12, y, colorText, line)
	}

	for _, m := range p.marks {
		cross(img, m, colorMark)
	}
	return img
}

func cross(img *image.RGBA, at image.Point, c color.RGBA) {
	const arm, half = 8, 1
	src := image.NewUniform(c)
	draw.Draw(img, image.Rect(at.X-arm, at.Y-half, at.X+arm+1, at.Y+half+1), src, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(at.X-half, at.Y-arm, at.X+half+1, at.Y+arm+1), src, image.Point{}, draw.Src)
}

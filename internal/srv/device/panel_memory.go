package device

import (
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"
)

// MemoryPanel keeps the screen in an in-process frame and records every
// draw call. Used for headless runs and tests.
type MemoryPanel struct {
	lock      sync.Mutex
	frame     *image.RGBA
	draws     []image.Rectangle
	fills     int
	poweredUp bool
	halted    bool
	fault     error
}

func NewMemoryPanel(width, height int) *MemoryPanel {
	return &MemoryPanel{
		frame: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

func (p *MemoryPanel) PowerUp() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.poweredUp = true
	p.halted = false
	return nil
}

func (p *MemoryPanel) FillScreen(c color.Color) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.fault != nil {
		return p.fault
	}
	draw.Draw(p.frame, p.frame.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	p.fills++
	p.halted = false
	return nil
}

func (p *MemoryPanel) DrawRegion(r image.Rectangle, mask *image.Alpha, fg, bg color.Color) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.fault != nil {
		return p.fault
	}
	compose(p.frame, r, mask, fg, bg)
	p.draws = append(p.draws, r)
	p.halted = false
	return nil
}

func (p *MemoryPanel) Bounds() image.Rectangle {
	return p.frame.Bounds()
}

func (p *MemoryPanel) Halt() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.halted = true
	return nil
}

// SetFault makes every following draw fail with err, nil restores the panel.
func (p *MemoryPanel) SetFault(err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.fault = err
}

func (p *MemoryPanel) Draws() []image.Rectangle {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]image.Rectangle(nil), p.draws...)
}

func (p *MemoryPanel) Fills() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.fills
}

func (p *MemoryPanel) IsHalted() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.halted
}

// Frame returns a copy of the screen content.
func (p *MemoryPanel) Frame() *image.RGBA {
	p.lock.Lock()
	defer p.lock.Unlock()
	frame := image.NewRGBA(p.frame.Bounds())
	copy(frame.Pix, p.frame.Pix)
	return frame
}

package device

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/jypelle/homeboard/internal/srv/canvas"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

var (
	splashBackground = color.RGBA{0, 0, 0, 255}
	splashForeground = color.RGBA{255, 255, 255, 255}
	errorForeground  = color.RGBA{255, 0, 0, 255}
)

type paint struct {
	mask   *image.Alpha
	fg, bg color.Color
}

// Display serialises access to the panel, tracks the on/off state and keeps
// what was painted so it can be replayed when the panel is switched back on.
type Display struct {
	lock  sync.RWMutex
	panel Panel
	on    bool

	frame      *image.RGBA
	background color.Color
	paints     map[image.Rectangle]paint
	order      []image.Rectangle

	bootStep int
}

func NewDisplay(panel Panel) *Display {
	return &Display{
		panel:      panel,
		frame:      image.NewRGBA(panel.Bounds()),
		background: splashBackground,
		paints:     make(map[image.Rectangle]paint),
	}
}

// Start powers the panel up and wipes it.
func (d *Display) Start() error {
	logrus.Infof("Start display device")
	d.lock.Lock()
	defer d.lock.Unlock()

	if err := d.panel.PowerUp(); err != nil {
		return fmt.Errorf("panel power up: %w", err)
	}
	d.on = true

	start := time.Now()
	if err := d.fillScreen(splashBackground); err != nil {
		return fmt.Errorf("panel wipe: %w", err)
	}
	logrus.Debugf("Panel wiped in %v", time.Since(start))
	return nil
}

func (d *Display) Stop() {
	logrus.Infof("Stop display device")
	d.lock.Lock()
	defer d.lock.Unlock()

	if err := d.panel.Halt(); err != nil {
		logrus.Warnf("Unable to halt panel: %v", err)
	}
	d.on = false
	if closer, ok := d.panel.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logrus.Warnf("Unable to close panel: %v", err)
		}
	}
}

func (d *Display) Bounds() image.Rectangle {
	return d.panel.Bounds()
}

func (d *Display) FillScreen(c color.Color) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.fillScreen(c)
}

func (d *Display) fillScreen(c color.Color) error {
	draw.Draw(d.frame, d.frame.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	d.background = c
	d.paints = make(map[image.Rectangle]paint)
	d.order = d.order[:0]
	if !d.on {
		return ErrPanelOff
	}
	return d.panel.FillScreen(c)
}

// DrawRegion paints one rectangle. While the panel is off the paint is kept
// for replay and ErrPanelOff is returned.
func (d *Display) DrawRegion(r image.Rectangle, mask *image.Alpha, fg, bg color.Color) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.drawRegion(r, mask, fg, bg)
}

func (d *Display) drawRegion(r image.Rectangle, mask *image.Alpha, fg, bg color.Color) error {
	compose(d.frame, r, mask, fg, bg)
	if _, ok := d.paints[r]; !ok {
		d.order = append(d.order, r)
	}
	d.paints[r] = paint{mask: mask, fg: fg, bg: bg}
	if !d.on {
		return ErrPanelOff
	}
	return d.panel.DrawRegion(r, mask, fg, bg)
}

func (d *Display) SetOff() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.setOff()
}

func (d *Display) setOff() error {
	d.on = false
	return d.panel.Halt()
}

func (d *Display) SetOn() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.setOn()
}

func (d *Display) setOn() error {
	d.on = true
	if err := d.panel.FillScreen(d.background); err != nil {
		return err
	}
	for _, r := range d.order {
		p := d.paints[r]
		if err := d.panel.DrawRegion(r, p.mask, p.fg, p.bg); err != nil {
			return err
		}
	}
	return nil
}

// Switch toggles the panel and returns the new state.
func (d *Display) Switch() (bool, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	var err error
	if d.on {
		err = d.setOff()
	} else {
		err = d.setOn()
	}
	return d.on, err
}

func (d *Display) IsOn() bool {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.on
}

// Snapshot returns a copy of the last painted frame, whatever the panel state.
func (d *Display) Snapshot() *image.RGBA {
	d.lock.RLock()
	defer d.lock.RUnlock()
	frame := image.NewRGBA(d.frame.Bounds())
	copy(frame.Pix, d.frame.Pix)
	return frame
}

func (d *Display) WritePNG(w io.Writer) error {
	return png.Encode(w, d.Snapshot())
}

// ShowStartup paints the boot splash with the step reached so far.
func (d *Display) ShowStartup(step string) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.bootStep++
	logrus.Infof("Startup step %d: %s", d.bootStep, step)
	return d.splash(splashForeground, "Booting...", strconv.Itoa(d.bootStep), step)
}

// ShowMessage paints a full screen message.
func (d *Display) ShowMessage(lines ...string) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.splash(splashForeground, lines...)
}

// ShowError paints the error splash.
func (d *Display) ShowError(lines ...string) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	logrus.Errorf("Error screen: %v", lines)
	return d.splash(errorForeground, append([]string{"Oh no! :("}, lines...)...)
}

func (d *Display) splash(fg color.Color, lines ...string) error {
	if err := d.fillScreen(splashBackground); err != nil && !errors.Is(err, ErrPanelOff) {
		return err
	}
	b := d.panel.Bounds()
	return d.drawRegion(b, canvas.Fit(b.Size(), lines...).CenteredLabel(b.Size(), lines...), fg, splashBackground)
}

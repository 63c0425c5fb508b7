package device

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"
	"time"

	"github.com/jypelle/homeboard/internal/srv/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

const powerUpDelay = 1000 * time.Millisecond

type Ssd1306Panel struct {
	oledLock    sync.Mutex
	oledDisplay *ssd1306.Dev
	bus         io.Closer

	param  config.PanelParam
	frame  *image.RGBA
	halted bool
}

func NewSsd1306Panel(param config.PanelParam) *Ssd1306Panel {
	return &Ssd1306Panel{
		param: param,
		frame: image.NewRGBA(image.Rect(0, 0, param.Width, param.Height)),
	}
}

func (p *Ssd1306Panel) PowerUp() error {
	p.oledLock.Lock()
	defer p.oledLock.Unlock()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}

	if p.param.PowerPin != "" {
		pin := gpioreg.ByName(p.param.PowerPin)
		if pin == nil {
			return fmt.Errorf("unknown power pin %q", p.param.PowerPin)
		}
		if err := pin.Out(gpio.High); err != nil {
			return fmt.Errorf("power pin %s: %w", p.param.PowerPin, err)
		}
		logrus.Debugf("Panel power pin %s set, waiting %v", p.param.PowerPin, powerUpDelay)
		time.Sleep(powerUpDelay)
	}

	opts := ssd1306.DefaultOpts
	opts.W = p.param.Width
	opts.H = p.param.Height

	switch p.param.Driver {
	case config.PANEL_DRIVER_SSD1306_SPI:
		port, err := spireg.Open(p.param.Bus)
		if err != nil {
			return fmt.Errorf("unable to open spi port: %w", err)
		}
		dc := gpioreg.ByName(p.param.DcPin)
		if dc == nil {
			port.Close()
			return fmt.Errorf("unknown dc pin %q", p.param.DcPin)
		}
		p.oledDisplay, err = ssd1306.NewSPI(port, dc, &opts)
		if err != nil {
			port.Close()
			return fmt.Errorf("unable to initialize oled display: %w", err)
		}
		p.bus = port
	default:
		bus, err := i2creg.Open(p.param.Bus)
		if err != nil {
			return fmt.Errorf("unable to open i2c bus: %w", err)
		}
		p.oledDisplay, err = ssd1306.NewI2C(bus, &opts)
		if err != nil {
			bus.Close()
			return fmt.Errorf("unable to initialize oled display: %w", err)
		}
		p.bus = bus
	}

	logrus.Infof("Panel %s ready: %v", p.param.Driver, p.oledDisplay.Bounds())
	return p.oledDisplay.SetContrast(p.param.Contrast)
}

func (p *Ssd1306Panel) FillScreen(c color.Color) error {
	p.oledLock.Lock()
	defer p.oledLock.Unlock()
	if err := p.wake(); err != nil {
		return err
	}
	draw.Draw(p.frame, p.frame.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return p.oledDisplay.Draw(p.oledDisplay.Bounds(), p.frame, image.Point{})
}

func (p *Ssd1306Panel) DrawRegion(r image.Rectangle, mask *image.Alpha, fg, bg color.Color) error {
	p.oledLock.Lock()
	defer p.oledLock.Unlock()
	if err := p.wake(); err != nil {
		return err
	}
	compose(p.frame, r, mask, fg, bg)
	return p.oledDisplay.Draw(r, p.frame, r.Min)
}

func (p *Ssd1306Panel) Bounds() image.Rectangle {
	return p.frame.Bounds()
}

func (p *Ssd1306Panel) Halt() error {
	p.oledLock.Lock()
	defer p.oledLock.Unlock()
	if p.oledDisplay == nil {
		return nil
	}
	p.halted = true
	return p.oledDisplay.Halt()
}

// Close halts the panel and releases the bus.
func (p *Ssd1306Panel) Close() error {
	if err := p.Halt(); err != nil {
		logrus.Warnf("Unable to halt panel: %v", err)
	}
	p.oledLock.Lock()
	defer p.oledLock.Unlock()
	if p.bus == nil {
		return nil
	}
	err := p.bus.Close()
	p.bus = nil
	p.oledDisplay = nil
	return err
}

// wake turns a halted panel back on, Draw alone does not.
func (p *Ssd1306Panel) wake() error {
	if p.oledDisplay == nil {
		return ErrPanelOff
	}
	if p.halted {
		if err := p.oledDisplay.SetContrast(p.param.Contrast); err != nil {
			return err
		}
		p.halted = false
	}
	return nil
}

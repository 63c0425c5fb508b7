package device

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/jypelle/homeboard/internal/srv/config"
	"golang.org/x/image/draw"
)

// Panel is the physical (or simulated) screen. Implementations are not
// required to be safe for concurrent use, the Display device serialises
// access.
type Panel interface {
	PowerUp() error
	FillScreen(c color.Color) error
	// DrawRegion paints fg through mask over r, bg elsewhere in r.
	// mask is sized to r and anchored at the origin.
	DrawRegion(r image.Rectangle, mask *image.Alpha, fg, bg color.Color) error
	Bounds() image.Rectangle
	Halt() error
}

var ErrPanelOff = errors.New("panel is off")

func NewPanel(param config.PanelParam, simulationMode bool) (Panel, error) {
	if simulationMode {
		return NewSimulationPanel(param.Width, param.Height), nil
	}
	switch param.Driver {
	case config.PANEL_DRIVER_MEMORY:
		return NewMemoryPanel(param.Width, param.Height), nil
	case config.PANEL_DRIVER_SSD1306_I2C, config.PANEL_DRIVER_SSD1306_SPI:
		return NewSsd1306Panel(param), nil
	default:
		return nil, fmt.Errorf("unknown panel driver %q", param.Driver)
	}
}

func compose(dst draw.Image, r image.Rectangle, mask *image.Alpha, fg, bg color.Color) {
	draw.Draw(dst, r, image.NewUniform(bg), image.Point{}, draw.Src)
	draw.DrawMask(dst, r, image.NewUniform(fg), image.Point{}, mask, mask.Bounds().Min, draw.Over)
}

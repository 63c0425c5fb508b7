//go:build cgo

package device

import (
	"image"
	"image/color"

	"gioui.org/app"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"github.com/sirupsen/logrus"
)

// SimulationPanel draws into memory and mirrors the frame in a desktop window.
type SimulationPanel struct {
	*MemoryPanel
	simulationWindow *app.Window
}

func NewSimulationPanel(width, height int) *SimulationPanel {
	return &SimulationPanel{MemoryPanel: NewMemoryPanel(width, height)}
}

func (p *SimulationPanel) PowerUp() error {
	if p.simulationWindow == nil {
		b := p.Bounds()
		p.simulationWindow = app.NewWindow(
			app.Title("homeboard"),
			app.Size(unit.Px(float32(2*b.Dx())), unit.Px(float32(2*b.Dy()))),
			app.MinSize(unit.Px(float32(b.Dx())), unit.Px(float32(b.Dy()))),
		)
		go func() {
			if err := p.gioloop(); err != nil {
				logrus.Warnf("Simulation window closed: %v", err)
			}
		}()
		go app.Main()
	}
	return p.MemoryPanel.PowerUp()
}

func (p *SimulationPanel) FillScreen(c color.Color) error {
	err := p.MemoryPanel.FillScreen(c)
	p.invalidateSimulationWindow()
	return err
}

func (p *SimulationPanel) DrawRegion(r image.Rectangle, mask *image.Alpha, fg, bg color.Color) error {
	err := p.MemoryPanel.DrawRegion(r, mask, fg, bg)
	p.invalidateSimulationWindow()
	return err
}

func (p *SimulationPanel) Halt() error {
	err := p.MemoryPanel.Halt()
	p.invalidateSimulationWindow()
	return err
}

// Close shuts the simulation window.
func (p *SimulationPanel) Close() error {
	if p.simulationWindow != nil {
		p.simulationWindow.Close()
	}
	return nil
}

func (p *SimulationPanel) invalidateSimulationWindow() {
	if p.simulationWindow != nil {
		p.simulationWindow.Invalidate()
	}
}

func (p *SimulationPanel) gioloop() error {
	var ops op.Ops
	for {
		e := <-p.simulationWindow.Events()
		switch e := e.(type) {
		case system.DestroyEvent:
			return e.Err
		case system.FrameEvent:
			gtx := layout.NewContext(&ops, e)

			var frame image.Image = p.Frame()
			if p.IsHalted() {
				frame = image.NewUniform(color.Black)
			}

			img := widget.Image{Src: paint.NewImageOp(frame), Fit: widget.Contain}
			img.Layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

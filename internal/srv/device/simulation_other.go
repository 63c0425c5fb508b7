//go:build !amd64 || !cgo

package device

// SimulationPanel is headless on boards without a desktop.
type SimulationPanel struct {
	*MemoryPanel
}

func NewSimulationPanel(width, height int) *SimulationPanel {
	return &SimulationPanel{MemoryPanel: NewMemoryPanel(width, height)}
}

func (p *SimulationPanel) Close() error {
	return nil
}

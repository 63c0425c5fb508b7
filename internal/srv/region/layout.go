package region

import (
	"image"
	"image/color"
	"strings"

	"github.com/jypelle/homeboard/internal/srv/canvas"
	"github.com/jypelle/homeboard/internal/srv/event"
)

var (
	black   = color.RGBA{0, 0, 0, 255}
	white   = color.RGBA{255, 255, 255, 255}
	magenta = color.RGBA{255, 0, 255, 255}
	red     = color.RGBA{255, 0, 0, 255}
)

var Background color.Color = black

// row is one text line of the screen, split in equal columns. An empty name
// leaves its column blank.
type row []Name

var (
	// widePlan shows the readings side by side, the counter on its own line
	// and the clock in the bottom right corner.
	widePlan = []row{
		{COUNTER},
		{TEMPERATURE, WIND, POWER},
		{SYSTEM_MESSAGE},
		{ERROR},
		{HOUSE_MESSAGE},
		{FLAMETHROWER_MESSAGE},
		{"", CLOCK},
	}
	// compactPlan gives every free text region a full line.
	compactPlan = []row{
		{COUNTER, CLOCK},
		{TEMPERATURE},
		{WIND, POWER},
		{HOUSE_MESSAGE},
		{FLAMETHROWER_MESSAGE},
		{SYSTEM_MESSAGE},
		{ERROR},
	}
)

// Widest holds, per region, the longest text a region is sized for.
var Widest = map[Name]string{
	COUNTER:              "4,294,967,295",
	CLOCK:                "12:59:59 PM",
	TEMPERATURE:          "Laundry Room: 100.5F",
	WIND:                 "Wind: 99.9 mph",
	POWER:                "Power: 99999W",
	HOUSE_MESSAGE:        strings.Repeat("W", event.TextCapacity),
	FLAMETHROWER_MESSAGE: strings.Repeat("W", event.TextCapacity),
	SYSTEM_MESSAGE:       strings.Repeat("W", event.TextCapacity),
	ERROR:                strings.Repeat("W", event.TextCapacity),
}

// Layout places every region on one line of text. Regions never overlap.
type Layout struct {
	Face    *canvas.Face
	Regions map[Name]image.Rectangle
}

// NewLayout picks the largest face, then the first plan, where every region
// holds its widest text. When nothing fits, the compact plan is used with the
// smallest face and long texts get clipped.
func NewLayout(bounds image.Rectangle) Layout {
	faces := canvas.Faces()
	for _, face := range faces {
		for _, plan := range [][]row{widePlan, compactPlan} {
			if regions, ok := place(bounds, plan, face); ok {
				return Layout{Face: face, Regions: regions}
			}
		}
	}
	face := faces[len(faces)-1]
	regions, _ := place(bounds, compactPlan, face)
	return Layout{Face: face, Regions: regions}
}

func place(bounds image.Rectangle, plan []row, face *canvas.Face) (map[Name]image.Rectangle, bool) {
	w, h := bounds.Dx(), bounds.Dy()
	rowH := h / len(plan)
	fits := true

	regions := make(map[Name]image.Rectangle, len(Names))
	for i, names := range plan {
		y0 := i * rowH
		for j, name := range names {
			if name == "" {
				continue
			}
			r := image.Rect(j*w/len(names), y0, (j+1)*w/len(names), y0+rowH).Add(bounds.Min)
			if !face.Fits(r.Size(), Widest[name]) {
				fits = false
			}
			regions[name] = r
		}
	}
	return regions, fits
}

// Label renders the text of a region.
func (l Layout) Label(name Name, text string) *image.Alpha {
	size := l.Regions[name].Size()
	switch name {
	case SYSTEM_MESSAGE, ERROR:
		return l.Face.CenteredLabel(size, text)
	default:
		return l.Face.Label(size, text)
	}
}

// Foreground is the text colour of a region.
func Foreground(name Name) color.Color {
	switch name {
	case CLOCK:
		return magenta
	case ERROR:
		return red
	default:
		return white
	}
}

package region

import (
	"image"
	"strings"
	"testing"
	"time"

	"github.com/jypelle/homeboard/internal/srv/canvas"
	"github.com/jypelle/homeboard/internal/srv/event"
	. "gopkg.in/check.v1"
)

func Test(t *testing.T) { TestingT(t) }

type StoreSuite struct {
	store *Store
}

var _ = Suite(&StoreSuite{})

func (s *StoreSuite) SetUpTest(c *C) {
	s.store = NewStore()
	s.store.now = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }
}

func (s *StoreSuite) TestStartsEmpty(c *C) {
	for _, name := range Names {
		r, ok := s.store.Get(name)
		c.Assert(ok, Equals, true)
		c.Assert(r.Text, Equals, "")
		c.Assert(r.Dirty, Equals, false)
	}
	c.Assert(s.store.Dirty(), HasLen, 0)
}

func (s *StoreSuite) TestApplyTouchesOneRegion(c *C) {
	name := s.store.Apply(event.NewValue(event.TEMPERATURE_KIND, "Office: 72.5F", 72.5))
	c.Assert(name, Equals, TEMPERATURE)

	r, _ := s.store.Get(TEMPERATURE)
	c.Assert(r.Text, Equals, "Office: 72.5F")
	c.Assert(r.Value, Equals, 72.5)
	c.Assert(r.Dirty, Equals, true)
	c.Assert(r.Updates, Equals, int64(1))
	c.Assert(s.store.Dirty(), DeepEquals, []Name{TEMPERATURE})

	s.store.MarkClean(TEMPERATURE)
	c.Assert(s.store.Dirty(), HasLen, 0)
}

func (s *StoreSuite) TestLastEventWins(c *C) {
	s.store.Apply(event.NewValue(event.TEMPERATURE_KIND, "Office: 70F", 70))
	s.store.Apply(event.NewValue(event.TEMPERATURE_KIND, "Bedroom: 65F", 65))
	r, _ := s.store.Get(TEMPERATURE)
	c.Assert(r.Text, Equals, "Bedroom: 65F")
	c.Assert(r.Updates, Equals, int64(2))
}

func (s *StoreSuite) TestKindsMapToRegions(c *C) {
	c.Assert(ForKind(event.CLOCK_KIND), Equals, CLOCK)
	c.Assert(ForKind(event.COUNTER_KIND), Equals, COUNTER)
	c.Assert(ForKind(event.HOUSE_EVENT_KIND), Equals, HOUSE_MESSAGE)
	c.Assert(ForKind(event.FLAMETHROWER_KIND), Equals, FLAMETHROWER_MESSAGE)
	c.Assert(ForKind(event.ERROR_KIND), Equals, ERROR)
}

func (s *StoreSuite) TestTextNeverExceedsCapacity(c *C) {
	s.store.Apply(event.New(event.SYSTEM_MESSAGE_KIND, strings.Repeat("long ", 40)))
	for _, r := range s.store.Snapshot() {
		c.Assert(len(r.Text) <= event.TextCapacity, Equals, true)
	}
}

func (s *StoreSuite) TestSnapshotIsACopy(c *C) {
	s.store.Apply(event.New(event.WIND_KIND, "Wind: 3 mph"))
	snapshot := s.store.Snapshot()
	c.Assert(snapshot, HasLen, len(Names))
	c.Assert(snapshot[2].Name, Equals, "wind")
	c.Assert(snapshot[2].UpdatedAt.Hour(), Equals, 9)

	snapshot[2].Text = "changed"
	r, _ := s.store.Get(WIND)
	c.Assert(r.Text, Equals, "Wind: 3 mph")
}

type LayoutSuite struct{}

var _ = Suite(&LayoutSuite{})

var panels = []image.Rectangle{
	image.Rect(0, 0, 480, 320),
	image.Rect(0, 0, 320, 240),
	image.Rect(0, 0, 128, 64),
	image.Rect(10, 20, 138, 84),
}

var sampleTexts = map[Name]string{
	COUNTER:              "12,345",
	CLOCK:                "10:42:07 AM",
	TEMPERATURE:          "Laundry: 72.3F",
	WIND:                 "Wind: 12 mph",
	POWER:                "Power: 1500W",
	HOUSE_MESSAGE:        "Laundry Room Motion",
	FLAMETHROWER_MESSAGE: "Living Room Flamethrower On",
	SYSTEM_MESSAGE:       "Dinner is ready",
	ERROR:                "Sensor offline, check pump",
}

func inked(mask *image.Alpha) int {
	n := 0
	for _, a := range mask.Pix {
		if a != 0 {
			n++
		}
	}
	return n
}

func (s *LayoutSuite) TestReferencePanel(c *C) {
	bounds := image.Rect(0, 0, 480, 320)
	layout := NewLayout(bounds)
	c.Assert(layout.Face, Equals, canvas.Regular)
	c.Assert(layout.Regions, HasLen, len(Names))
	c.Assert(layout.Regions[COUNTER], Equals, image.Rect(0, 0, 480, 45))
	c.Assert(layout.Regions[CLOCK], Equals, image.Rect(240, 270, 480, 315))
}

func (s *LayoutSuite) TestSmallPanelUsesCompactFace(c *C) {
	layout := NewLayout(image.Rect(0, 0, 128, 64))
	c.Assert(layout.Face, Not(Equals), canvas.Regular)
	c.Assert(layout.Regions[TEMPERATURE].Dx(), Equals, 128)
	c.Assert(layout.Regions[COUNTER].Min.Y, Equals, layout.Regions[CLOCK].Min.Y)
}

func (s *LayoutSuite) TestRegionsDoNotOverlap(c *C) {
	for _, bounds := range panels {
		layout := NewLayout(bounds)
		c.Assert(layout.Regions, HasLen, len(Names), Commentf("panel %v", bounds))
		for i, a := range Names {
			c.Assert(layout.Regions[a].In(bounds), Equals, true, Commentf("panel %v region %s", bounds, a))
			for _, b := range Names[i+1:] {
				c.Assert(layout.Regions[a].Overlaps(layout.Regions[b]), Equals, false, Commentf("panel %v: %s overlaps %s", bounds, a, b))
			}
		}
	}
}

func (s *LayoutSuite) TestTextIsNeverClipped(c *C) {
	for _, bounds := range panels {
		layout := NewLayout(bounds)
		for _, name := range Names {
			r := layout.Regions[name]
			c.Assert(r.Dy() >= layout.Face.LineHeight(), Equals, true, Commentf("panel %v region %s", bounds, name))
			c.Assert(layout.Face.Fits(r.Size(), Widest[name]), Equals, true, Commentf("panel %v region %s", bounds, name))

			text := sampleTexts[name]
			full := layout.Face.Label(image.Pt(1000, 200), text)
			c.Assert(inked(layout.Label(name, text)), Equals, inked(full), Commentf("panel %v region %s", bounds, name))
		}
	}
}

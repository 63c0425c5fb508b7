// Package canvas turns text into 1-bit masks the panels can draw.
//
// Regular is the bitmap face used on roomy panels. Small panels fall back to
// Go Mono at a handful of pixel sizes, see Faces.
package canvas

import (
	"fmt"
	"image"
	"sync"

	"github.com/hajimehoshi/bitmapfont/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Margin is the blank space left of a left aligned label.
const Margin = 2

// CompactSizes are the Go Mono pixel sizes tried after Regular, largest first.
var CompactSizes = []float64{8, 7, 6, 5}

// inkSample holds every printable ASCII glyph.
var inkSample = func() string {
	b := make([]byte, 0, '~'-'!'+1)
	for c := byte('!'); c <= '~'; c++ {
		b = append(b, c)
	}
	return string(b)
}()

type Face struct {
	name    string
	face    font.Face
	ascent  int
	descent int
}

var Regular = newFace("bitmapfont", bitmapfont.Face)

// newFace measures the line box from the font metrics, widened to the glyph
// bounds when some glyphs reach outside of them.
func newFace(name string, face font.Face) *Face {
	m := face.Metrics()
	b, _ := font.BoundString(face, inkSample)
	f := &Face{name: name, face: face, ascent: m.Ascent.Ceil(), descent: m.Descent.Ceil()}
	if a := (-b.Min.Y).Ceil(); a > f.ascent {
		f.ascent = a
	}
	if d := b.Max.Y.Ceil(); d > f.descent {
		f.descent = d
	}
	return f
}

var (
	compactOnce  sync.Once
	compactFaces []*Face
)

// Faces lists every available face from the largest to the smallest.
func Faces() []*Face {
	compactOnce.Do(func() {
		f, err := opentype.Parse(gomono.TTF)
		if err != nil {
			logrus.Warnf("Unable to parse compact font: %v", err)
			return
		}
		for _, size := range CompactSizes {
			face, err := opentype.NewFace(f, &opentype.FaceOptions{
				Size:    size,
				DPI:     72,
				Hinting: font.HintingFull,
			})
			if err != nil {
				logrus.Warnf("Unable to build compact font at %vpx: %v", size, err)
				continue
			}
			compactFaces = append(compactFaces, newFace(fmt.Sprintf("gomono-%gpx", size), face))
		}
	})
	return append([]*Face{Regular}, compactFaces...)
}

// Fit returns the largest face showing every line inside size, or the
// smallest face when none does.
func Fit(size image.Point, lines ...string) *Face {
	faces := Faces()
	for _, f := range faces {
		if len(lines)*f.LineHeight() > size.Y {
			continue
		}
		fits := true
		for _, line := range lines {
			if f.TextWidth(line) > size.X {
				fits = false
				break
			}
		}
		if fits {
			return f
		}
	}
	return faces[len(faces)-1]
}

func (f *Face) String() string {
	return f.name
}

// LineHeight is the vertical space used by one line of text.
func (f *Face) LineHeight() int {
	return f.ascent + f.descent
}

// TextWidth returns the width of label in pixels, the last glyph included
// when it overhangs its advance.
func (f *Face) TextWidth(label string) int {
	b, advance := font.BoundString(f.face, label)
	if b.Max.X > advance {
		advance = b.Max.X
	}
	return advance.Ceil()
}

// Fits tells whether a left aligned label drawn in a box of the given size
// keeps all of its glyphs.
func (f *Face) Fits(size image.Point, label string) bool {
	return f.LineHeight() <= size.Y && Margin+f.TextWidth(label) <= size.X
}

// Label renders lines left aligned and vertically centred in a mask of the
// given size. Glyphs falling outside the mask are clipped.
func (f *Face) Label(size image.Point, lines ...string) *image.Alpha {
	mask := image.NewAlpha(image.Rectangle{Max: size})
	y := f.firstBaseline(size.Y, len(lines))
	for _, line := range lines {
		f.draw(mask, Margin, y, line)
		y += f.LineHeight()
	}
	return mask
}

// CenteredLabel renders lines horizontally centred.
func (f *Face) CenteredLabel(size image.Point, lines ...string) *image.Alpha {
	mask := image.NewAlpha(image.Rectangle{Max: size})
	y := f.firstBaseline(size.Y, len(lines))
	for _, line := range lines {
		x := (size.X - f.TextWidth(line)) / 2
		if x < 0 {
			x = 0
		}
		f.draw(mask, x, y, line)
		y += f.LineHeight()
	}
	return mask
}

func (f *Face) firstBaseline(height, lines int) int {
	block := lines * f.LineHeight()
	top := (height - block) / 2
	if top < 0 {
		top = 0
	}
	return top + f.ascent
}

func (f *Face) draw(mask *image.Alpha, x, y int, label string) {
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: f.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}

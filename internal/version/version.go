package version

import "strconv"

type Version struct {
	MajorNumber int64
	MinorNumber int64
	PatchNumber int64
}

// String generate a human readable Version, suffixed with the commit when
// the binary was built with one.
func (m *Version) String() string {
	v := strconv.FormatInt(m.MajorNumber, 10) + "." + strconv.FormatInt(m.MinorNumber, 10) + "." + strconv.FormatInt(m.PatchNumber, 10)
	if Commit != "" {
		v += "+" + Commit
	}
	return v
}

var (
	AppVersion = Version{
		MajorNumber: 0,
		MinorNumber: 3,
		PatchNumber: 0,
	}

	// Commit is set at link time: -ldflags "-X github.com/jypelle/homeboard/internal/version.Commit=..."
	Commit string
)

package texmap

import (
	"fmt"
	"strings"
)

// MapKind names an output map.
type MapKind uint8

const (
	MapDistance MapKind = 1 << iota
	MapDirection
	MapThickness
	MapID
	MapDepth
)

var mapNames = []struct {
	kind MapKind
	name string
}{
	{MapDistance, "distance"},
	{MapDirection, "direction"},
	{MapThickness, "thickness"},
	{MapID, "id"},
	{MapDepth, "depth"},
}

func (k MapKind) String() string {
	for _, m := range mapNames {
		if m.kind == k {
			return m.name
		}
	}
	return fmt.Sprintf("MapKind(%d)", uint8(k))
}

// MapSet is a set of map kinds.
type MapSet uint8

// MapAll selects every map.
const MapAll = MapSet(MapDistance | MapDirection | MapThickness | MapID | MapDepth)

// Has reports whether k is in the set.
func (s MapSet) Has(k MapKind) bool { return s&MapSet(k) != 0 }

// Kinds lists the set's members in a fixed order.
func (s MapSet) Kinds() []MapKind {
	var out []MapKind
	for _, m := range mapNames {
		if s.Has(m.kind) {
			out = append(out, m.kind)
		}
	}
	return out
}

// ParseMapSet parses a comma-separated list of map names; "all" selects
// every map.
func ParseMapSet(s string) (MapSet, error) {
	var set MapSet
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(strings.ToLower(f))
		if f == "" {
			continue
		}
		if f == "all" {
			return MapAll, nil
		}
		found := false
		for _, m := range mapNames {
			if m.name == f {
				set |= MapSet(m.kind)
				found = true
			}
		}
		if !found {
			return 0, fmt.Errorf("texmap: unknown map %q", f)
		}
	}
	return set, nil
}

// Settings configures one Rasterize call.
type Settings struct {
	Width  int
	Height int
	Maps   MapSet

	// MaxDistance is the pixel distance mapped to 1 in the distance map.
	// Zero means a quarter of the larger dimension.
	MaxDistance float64

	// LineScale multiplies node thickness when extruding segments.
	// Zero means 1.
	LineScale float64
}

// DefaultSettings returns square settings producing every map.
func DefaultSettings(size int) Settings {
	return Settings{Width: size, Height: size, Maps: MapAll, LineScale: 1}
}

// normalize validates s and fills defaults.
func (s Settings) normalize() (Settings, error) {
	if s.Width <= 0 || s.Height <= 0 {
		return s, fmt.Errorf("texmap: invalid resolution %dx%d", s.Width, s.Height)
	}
	if s.Maps == 0 {
		s.Maps = MapAll
	}
	if !(s.MaxDistance > 0) {
		s.MaxDistance = float64(max(s.Width, s.Height)) / 4
	}
	if !(s.LineScale > 0) {
		s.LineScale = 1
	}
	return s, nil
}

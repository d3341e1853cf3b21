// Package geometry measures printable volume from mesh files.
package geometry

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hschendel/stl"
)

// ErrUnmeasurable is returned for degenerate or implausible meshes
var ErrUnmeasurable = errors.New("mesh volume unmeasurable")

// DefaultCeiling is the largest plausible object volume in cm³
const DefaultCeiling = 50000.0

// Measurer computes mesh volume in cm³
type Measurer struct {
	ceiling float64
}

// NewMeasurer creates a measurer; ceiling <= 0 uses DefaultCeiling
func NewMeasurer(ceiling float64) *Measurer {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Measurer{ceiling: ceiling}
}

// Measure parses an STL mesh (ASCII or binary, millimetres) and returns its
// volume in cm³ rounded to 0.01. The reader must seek because the format is
// sniffed before parsing. Non-positive volumes and volumes above the
// ceiling return ErrUnmeasurable.
func (m *Measurer) Measure(r io.ReadSeeker) (float64, error) {
	solid, err := stl.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("parse stl: %w", err)
	}

	cm3 := SignedVolume(solid.Triangles) / 1000
	if math.IsNaN(cm3) || cm3 <= 0 || cm3 > m.ceiling {
		return 0, fmt.Errorf("%w: %.2f cm³", ErrUnmeasurable, cm3)
	}

	return math.Round(cm3*100) / 100, nil
}

// SignedVolume sums signed tetrahedra against the origin. Outward-facing
// closed meshes yield a positive volume in the mesh's cubic units.
func SignedVolume(triangles []stl.Triangle) float64 {
	var sum float64
	for _, t := range triangles {
		a, b, c := t.Vertices[0], t.Vertices[1], t.Vertices[2]
		ax, ay, az := float64(a[0]), float64(a[1]), float64(a[2])
		bx, by, bz := float64(b[0]), float64(b[1]), float64(b[2])
		cx, cy, cz := float64(c[0]), float64(c[1]), float64(c[2])

		// a · (b × c)
		sum += ax*(by*cz-bz*cy) + ay*(bz*cx-bx*cz) + az*(bx*cy-by*cx)
	}
	return sum / 6
}

package colonize

import (
	"fmt"

	"github.com/gogpu/arbor/graph"
)

// ThicknessMode selects how node thickness is derived after growth.
type ThicknessMode string

const (
	// ThicknessConstant gives every node BaseWidth.
	ThicknessConstant ThicknessMode = "constant"

	// ThicknessDepth tapers linearly with distance from the root.
	ThicknessDepth ThicknessMode = "depth"

	// ThicknessFlow scales with Strahler order.
	ThicknessFlow ThicknessMode = "flow"
)

// ParseThicknessMode parses a mode name. The empty string means flow.
func ParseThicknessMode(s string) (ThicknessMode, error) {
	switch m := ThicknessMode(s); m {
	case ThicknessConstant, ThicknessDepth, ThicknessFlow:
		return m, nil
	case "":
		return ThicknessFlow, nil
	}
	return "", fmt.Errorf("colonize: unknown thickness mode %q", s)
}

// Params configures a Solver.
type Params struct {
	// AttractionRadius is how far an attractor can pull a node.
	AttractionRadius float64

	// KillDistance removes an attractor once any node is this close.
	KillDistance float64

	// StepSize is the length of each new segment.
	StepSize float64

	MaxIterations int

	// Bias is a global growth direction blended into every step with
	// BiasWeight (0 disables it).
	Bias       graph.Vec2
	BiasWeight float64

	Thickness ThicknessMode
	BaseWidth float64
}

// DefaultParams returns parameters suited to a canvas a few hundred units
// across.
func DefaultParams() Params {
	return Params{
		AttractionRadius: 60,
		KillDistance:     8,
		StepSize:         4,
		MaxIterations:    300,
		Bias:             graph.Vec2{X: 0, Y: -1},
		BiasWeight:       0,
		Thickness:        ThicknessFlow,
		BaseWidth:        3,
	}
}

package colonize

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/transform"
	"github.com/ojrac/opensimplex-go"
)

// DensityMap returns a density in [0,1] for normalized coordinates
// u, v in [0,1], with v growing downward.
type DensityMap interface {
	Density(u, v float64) float64
}

// DensityFunc adapts a function to DensityMap.
type DensityFunc func(u, v float64) float64

// Density implements DensityMap.
func (f DensityFunc) Density(u, v float64) float64 { return f(u, v) }

// maxMaskSide caps the resolution kept by ImageMask.
const maxMaskSide = 512

// ImageMask samples the luminance of an image. Light pixels attract.
type ImageMask struct {
	// lum holds the grayscale conversion; every channel carries the
	// luminance, so R is sampled.
	lum    *image.RGBA
	invert bool
}

// NewImageMask converts img to grayscale, downsampling it when large and
// blurring by blurRadius pixels (0 disables blur). With invert set, dark
// pixels attract instead.
func NewImageMask(img image.Image, blurRadius float64, invert bool) *ImageMask {
	b := img.Bounds()
	if w, h := b.Dx(), b.Dy(); w > maxMaskSide || h > maxMaskSide {
		s := float64(maxMaskSide) / float64(max(w, h))
		img = transform.Resize(img, max(int(float64(w)*s), 1), max(int(float64(h)*s), 1), transform.Linear)
	}
	if blurRadius > 0 {
		img = blur.Gaussian(img, blurRadius)
	}
	return &ImageMask{lum: effect.Grayscale(img), invert: invert}
}

// Size returns the sampled resolution.
func (m *ImageMask) Size() (int, int) {
	b := m.lum.Bounds()
	return b.Dx(), b.Dy()
}

// Density implements DensityMap with nearest-pixel sampling.
func (m *ImageMask) Density(u, v float64) float64 {
	b := m.lum.Bounds()
	if b.Empty() {
		return 0
	}
	x := b.Min.X + min(max(int(u*float64(b.Dx())), 0), b.Dx()-1)
	y := b.Min.Y + min(max(int(v*float64(b.Dy())), 0), b.Dy()-1)
	d := float64(m.lum.RGBAAt(x, y).R) / 255
	if m.invert {
		d = 1 - d
	}
	return d
}

// NoiseMask is fractal OpenSimplex noise remapped to [0,1] and sharpened by
// a threshold, giving clumped foliage-like densities.
type NoiseMask struct {
	octaves   []opensimplex.Noise
	scale     float64
	threshold float64
}

// NewNoiseMask builds a mask with the given seed, base frequency in cycles
// across the unit square, and octave count. Densities below threshold
// fall to zero.
func NewNoiseMask(seed int64, scale float64, octaves int, threshold float64) *NoiseMask {
	octaves = max(octaves, 1)
	if scale <= 0 {
		scale = 4
	}
	m := &NoiseMask{scale: scale, threshold: clamp01(threshold)}
	for i := range octaves {
		m.octaves = append(m.octaves, opensimplex.New(seed+int64(i)))
	}
	return m
}

// Density implements DensityMap.
func (m *NoiseMask) Density(u, v float64) float64 {
	var sum, norm float64
	freq, amp := m.scale, 1.0
	for _, n := range m.octaves {
		sum += n.Eval2(u*freq, v*freq) * amp
		norm += amp
		freq *= 2
		amp *= 0.5
	}
	d := clamp01((sum/norm + 1) / 2)
	if d < m.threshold {
		return 0
	}
	if m.threshold >= 1 {
		return 1
	}
	return math.Min((d-m.threshold)/(1-m.threshold), 1)
}

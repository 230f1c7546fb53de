package texmap

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"golang.org/x/image/tiff"

	"github.com/gogpu/arbor/graph"
)

// Map is one baked texture read back from the device.
type Map struct {
	Kind     MapKind
	Width    int
	Height   int
	Channels int
	Data     []float32
}

// At returns the channels of texel (x, y).
func (m *Map) At(x, y int) []float32 {
	i := (y*m.Width + x) * m.Channels
	return m.Data[i : i+m.Channels]
}

func to8(v float32) uint8 {
	return uint8(math.Round(float64(min(max(v, 0), 1)) * 255))
}

// Image converts the map to 8 bits: *image.Gray for one channel,
// *image.NRGBA otherwise.
func (m *Map) Image() image.Image {
	r := image.Rect(0, 0, m.Width, m.Height)
	if m.Channels == 1 {
		img := image.NewGray(r)
		for i, v := range m.Data {
			img.Pix[i] = to8(v)
		}
		return img
	}
	img := image.NewNRGBA(r)
	for i := range m.Width * m.Height {
		px := m.Data[i*m.Channels : i*m.Channels+m.Channels]
		img.Pix[i*4+0] = to8(px[0])
		img.Pix[i*4+1] = to8(px[1])
		img.Pix[i*4+2] = to8(px[2])
		img.Pix[i*4+3] = to8(px[3])
	}
	return img
}

// Gray16 converts the first channel to 16 bits.
func (m *Map) Gray16() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, m.Width, m.Height))
	for y := range m.Height {
		for x := range m.Width {
			v := min(max(m.At(x, y)[0], 0), 1)
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(float64(v) * 65535))})
		}
	}
	return img
}

// Output holds the maps produced by one Rasterize call.
type Output struct {
	Width, Height int
	Transform     Transform
	Passes        int
	Maps          map[MapKind]*Map
}

// Map returns the map of kind k, or nil.
func (o *Output) Map(k MapKind) *Map { return o.Maps[k] }

func (o *Output) need(k MapKind) (*Map, error) {
	m := o.Maps[k]
	if m == nil {
		return nil, fmt.Errorf("texmap: %s map was not produced", k)
	}
	return m, nil
}

// WritePNG encodes map k as an 8-bit PNG.
func (o *Output) WritePNG(k MapKind, w io.Writer) error {
	m, err := o.need(k)
	if err != nil {
		return err
	}
	return imgio.PNGEncoder()(w, m.Image())
}

// WriteTIFF16 encodes the first channel of map k as a 16-bit grayscale
// TIFF, keeping precision the PNG loses.
func (o *Output) WriteTIFF16(k MapKind, w io.Writer) error {
	m, err := o.need(k)
	if err != nil {
		return err
	}
	return tiff.Encode(w, m.Gray16(), &tiff.Options{Compression: tiff.Deflate})
}

// SaveAll writes <kind>.png for every map into dir, plus distance.tif when
// the distance map exists. It returns the written paths.
func (o *Output) SaveAll(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("texmap: %w", err)
	}
	var paths []string
	for _, k := range MapAll.Kinds() {
		m := o.Maps[k]
		if m == nil {
			continue
		}
		p := filepath.Join(dir, k.String()+".png")
		if err := imgio.Save(p, m.Image(), imgio.PNGEncoder()); err != nil {
			return paths, fmt.Errorf("texmap: save %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	if o.Maps[MapDistance] != nil {
		p := filepath.Join(dir, "distance.tif")
		if err := writeFile(p, func(w io.Writer) error { return o.WriteTIFF16(MapDistance, w) }); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("texmap: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("texmap: close %s: %w", path, cerr)
		}
	}()
	if err := fn(f); err != nil {
		return fmt.Errorf("texmap: write %s: %w", path, err)
	}
	return nil
}

// SegmentAt returns the id of the segment covering pixel (x, y), or -1.
func (o *Output) SegmentAt(x, y int) graph.SegmentID {
	m := o.Maps[MapID]
	if m == nil || x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return -1
	}
	px := m.At(x, y)
	return graph.SegmentID(DecodeID(px[0], px[1], px[2]))
}

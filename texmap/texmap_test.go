package texmap

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/gogpu/arbor/graph"
	"github.com/gogpu/arbor/random"
)

// flood runs the jump flood and derive programs over explicit seed pixels
// and returns the final seed plane, distance and direction.
func flood(t *testing.T, w, h int, maxDist float32, seeds [][2]int) (seedOut, dist, dir []float32) {
	t.Helper()
	dev := NewSoftwareDevice(nil)
	defer dev.Close()

	progs := map[string]Program{}
	for _, d := range Programs() {
		p, err := dev.CreateProgram(d)
		require.NoError(t, err)
		progs[d.Name] = p
	}
	tex := func(f Format) Texture {
		tx, err := dev.CreateTexture(TextureDesc{Width: w, Height: h, Format: f})
		require.NoError(t, err)
		return tx
	}
	ping, pong := tex(FormatRGBA32F), tex(FormatRGBA32F)
	data := ping.(*softTexture).data
	for _, s := range seeds {
		i := (s[1]*w + s[0]) * 4
		data[i], data[i+1], data[i+3] = float32(s[0])+0.5, float32(s[1])+0.5, 1
	}

	bufs := [2]Texture{ping, pong}
	u := Uniforms{Width: uint32(w), Height: uint32(h), MaxDistance: maxDist}
	cur := 0
	for _, step := range JumpSteps(max(w, h)) {
		fb, err := dev.CreateFramebuffer(bufs[1-cur])
		require.NoError(t, err)
		u.Step = int32(step)
		require.NoError(t, dev.DrawFullscreen(fb, progs[ProgramNameJFA], []Texture{bufs[cur]}, u))
		cur = 1 - cur
	}
	dt, dr := tex(FormatR32F), tex(FormatRGBA32F)
	fb, err := dev.CreateFramebuffer(dt, dr)
	require.NoError(t, err)
	require.NoError(t, dev.DrawFullscreen(fb, progs[ProgramNameDerive], []Texture{bufs[cur]}, u))

	seedOut = make([]float32, w*h*4)
	dist = make([]float32, w*h)
	dir = make([]float32, w*h*4)
	require.NoError(t, dev.ReadTexture(bufs[cur], seedOut))
	require.NoError(t, dev.ReadTexture(dt, dist))
	require.NoError(t, dev.ReadTexture(dr, dir))
	return seedOut, dist, dir
}

func TestJumpSteps(t *testing.T) {
	assert.Nil(t, JumpSteps(1))
	assert.Equal(t, []int{1}, JumpSteps(2))
	assert.Equal(t, []int{2, 1}, JumpSteps(3))
	assert.Equal(t, []int{256, 128, 64, 32, 16, 8, 4, 2, 1}, JumpSteps(512))
	assert.Len(t, JumpSteps(513), 10)
	assert.Equal(t, []int{64, 32, 16, 8, 4, 2, 1}, JumpSteps(100))
}

func TestJFASingleSeedMonotonic(t *testing.T) {
	const w, h = 64, 48
	sx, sy := 20, 30
	_, dist, dir := flood(t, w, h, 64, [][2]int{{sx, sy}})

	for y := range h {
		for x := range w {
			want := math.Hypot(float64(x-sx), float64(y-sy)) / 64
			require.InDelta(t, math.Min(want, 1), dist[y*w+x], 1e-5, "(%d,%d)", x, y)
		}
	}
	// strictly increasing moving away from the seed along its row
	for x := sx + 1; x < w; x++ {
		assert.Greater(t, dist[sy*w+x], dist[sy*w+x-1])
	}
	for x := sx - 1; x >= 0; x-- {
		assert.Greater(t, dist[sy*w+x], dist[sy*w+x+1])
	}
	// left of the seed the direction points right
	i := (sy*w + sx - 5) * 4
	assert.InDelta(t, 1, dir[i], 1e-5)
	assert.InDelta(t, 0.5, dir[i+1], 1e-5)
	// on the seed it is neutral
	i = (sy*w + sx) * 4
	assert.Equal(t, []float32{0.5, 0.5, 0, 1}, dir[i:i+4])
}

func TestJFAApproximationError(t *testing.T) {
	const w, h = 96, 96
	src := random.New(21)
	var seeds [][2]int
	for range 40 {
		seeds = append(seeds, [2]int{src.IntN(w), src.IntN(h)})
	}
	_, dist, _ := flood(t, w, h, 1000, seeds)

	worst := 0.0
	for y := range h {
		for x := range w {
			exact := math.Inf(1)
			for _, s := range seeds {
				exact = math.Min(exact, math.Hypot(float64(x-s[0]), float64(y-s[1])))
			}
			worst = math.Max(worst, float64(dist[y*w+x])*1000-exact)
		}
	}
	assert.GreaterOrEqual(t, worst, -1e-3)
	assert.Less(t, worst, 2.0)
}

func TestJFANoSeeds(t *testing.T) {
	seed, dist, dir := flood(t, 8, 8, 4, nil)
	for i := range 64 {
		assert.Zero(t, seed[i*4+3])
		assert.Equal(t, float32(1), dist[i])
		assert.Equal(t, []float32{0.5, 0.5, 0, 1}, dir[i*4:i*4+4])
	}
}

func lineGraph() *graph.Graph {
	g := graph.New(graph.SourceImport)
	r := g.AddRoot(graph.V2(0, 0))
	g.AddChild(r, graph.V2(0, 100))
	g.ComputeStrahler()
	g.ApplyConstantThickness(4)
	g.NormalizeColor()
	return g
}

func TestRasterizeLine(t *testing.T) {
	p, err := NewPipeline(NewSoftwareDevice(nil))
	require.NoError(t, err)
	defer p.Close()

	out, err := p.Rasterize(context.Background(), lineGraph(), DefaultSettings(64))
	require.NoError(t, err)
	require.Len(t, out.Maps, 5)
	assert.Equal(t, 6, out.Passes)

	d := out.Map(MapDistance)
	assert.Zero(t, d.At(32, 32)[0])
	assert.Equal(t, graph.SegmentID(0), out.SegmentAt(32, 32))
	assert.Equal(t, graph.SegmentID(-1), out.SegmentAt(5, 32))
	assert.InDelta(t, 1, out.Map(MapThickness).At(32, 32)[0], 1e-6)
	assert.InDelta(t, 0.5, out.Map(MapDepth).At(32, 32)[0], 0.05)

	for x := 30; x > 0; x-- {
		assert.GreaterOrEqual(t, d.At(x-1, 32)[0], d.At(x, 32)[0])
	}
	assert.Greater(t, d.At(2, 32)[0], float32(0))

	dir := out.Map(MapDirection).At(10, 32)
	assert.InDelta(t, 1, dir[0], 1e-5)
	assert.InDelta(t, 0.5, dir[1], 1e-5)

	assert.Zero(t, p.Pool().Leased())
	assert.Positive(t, p.Pool().Free())
}

func TestRasterizeEmptyGraph(t *testing.T) {
	p, err := NewPipeline(NewSoftwareDevice(nil))
	require.NoError(t, err)
	defer p.Close()

	out, err := p.Rasterize(context.Background(), graph.New(graph.SourceImport), Settings{Width: 16, Height: 8, Maps: MapSet(MapDistance | MapID)})
	require.NoError(t, err)
	require.Len(t, out.Maps, 2)
	for _, v := range out.Map(MapDistance).Data {
		assert.Equal(t, float32(1), v)
	}
	for _, v := range out.Map(MapID).Data {
		assert.Zero(t, v)
	}
}

func TestRasterizeTreeFromColonizedShape(t *testing.T) {
	g := graph.New(graph.SourceImport)
	r := g.AddRoot(graph.V2(50, 100))
	trunk, _ := g.AddChild(r, graph.V2(50, 60))
	g.AddChild(trunk, graph.V2(20, 20))
	g.AddChild(trunk, graph.V2(80, 20))
	g.ComputeStrahler()
	g.ApplyStrahlerThickness(6)
	g.NormalizeColor()
	require.NoError(t, g.Validate())

	p, err := NewPipeline(NewSoftwareDevice(nil))
	require.NoError(t, err)
	defer p.Close()
	out, err := p.Rasterize(context.Background(), g, DefaultSettings(128))
	require.NoError(t, err)

	seen := map[graph.SegmentID]bool{}
	for y := range 128 {
		for x := range 128 {
			if id := out.SegmentAt(x, y); id >= 0 {
				seen[id] = true
			}
		}
	}
	assert.Len(t, seen, 3)
	for _, v := range out.Map(MapDistance).Data {
		require.GreaterOrEqual(t, v, float32(0))
		require.LessOrEqual(t, v, float32(1))
	}
}

func TestRasterizeReusesPool(t *testing.T) {
	dev := NewSoftwareDevice(nil)
	p, err := NewPipeline(dev)
	require.NoError(t, err)

	_, err = p.Rasterize(context.Background(), lineGraph(), DefaultSettings(32))
	require.NoError(t, err)
	live := dev.LiveTextures()
	_, err = p.Rasterize(context.Background(), lineGraph(), DefaultSettings(32))
	require.NoError(t, err)
	assert.Equal(t, live, dev.LiveTextures())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Zero(t, dev.LiveTextures())

	_, err = p.Rasterize(context.Background(), lineGraph(), DefaultSettings(32))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRasterizeCanceled(t *testing.T) {
	p, err := NewPipeline(NewSoftwareDevice(nil))
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Rasterize(ctx, lineGraph(), DefaultSettings(32))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.Pool().Leased())
}

func TestRasterizeInvalidSize(t *testing.T) {
	p, err := NewPipeline(NewSoftwareDevice(nil))
	require.NoError(t, err)
	defer p.Close()
	_, err = p.Rasterize(context.Background(), lineGraph(), Settings{Width: -1, Height: 10})
	assert.Error(t, err)
}

type failingDevice struct {
	*SoftwareDevice
	fail      string
	destroyed int
}

func (d *failingDevice) CreateProgram(desc ProgramDesc) (Program, error) {
	if desc.Name == d.fail {
		return nil, &ShaderError{Program: desc.Name, Stage: "link", Log: "boom"}
	}
	return d.SoftwareDevice.CreateProgram(desc)
}

func (d *failingDevice) DestroyProgram(Program) { d.destroyed++ }

func TestNewPipelineShaderError(t *testing.T) {
	dev := &failingDevice{SoftwareDevice: NewSoftwareDevice(nil), fail: ProgramNameDerive}
	p, err := NewPipeline(dev)
	require.Nil(t, p)
	var se *ShaderError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ProgramNameDerive, se.Program)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 2, dev.destroyed)
}

func TestCreateProgramMissingEntry(t *testing.T) {
	dev := NewSoftwareDevice(nil)
	_, err := dev.CreateProgram(ProgramDesc{Name: "jfa", Kind: ProgramFullscreen, Source: "fn other() {}", Entry: "main"})
	var se *ShaderError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "compile", se.Stage)

	_, err = dev.CreateProgram(ProgramDesc{Name: "blur", Kind: ProgramFullscreen, Source: "fn main() {}", Entry: "main"})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "link", se.Stage)
}

func TestFramebufferCompleteness(t *testing.T) {
	dev := NewSoftwareDevice(nil)
	a, err := dev.CreateTexture(TextureDesc{Width: 8, Height: 8, Format: FormatR32F})
	require.NoError(t, err)
	b, err := dev.CreateTexture(TextureDesc{Width: 4, Height: 8, Format: FormatR32F})
	require.NoError(t, err)

	_, err = dev.CreateFramebuffer(a, b)
	var fe *FramebufferError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Reason, "4x8")

	_, err = dev.CreateFramebuffer()
	require.ErrorAs(t, err, &fe)

	_, err = dev.CreateFramebuffer(a, nil)
	require.ErrorAs(t, err, &fe)

	fb, err := dev.CreateFramebuffer(a)
	require.NoError(t, err)
	assert.Len(t, fb.Attachments(), 1)
}

func TestClosedDevice(t *testing.T) {
	dev := NewSoftwareDevice(nil)
	require.NoError(t, dev.Close())
	_, err := dev.CreateTexture(TextureDesc{Width: 1, Height: 1, Format: FormatR32F})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = NewPipeline(dev)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRGBA8Quantized(t *testing.T) {
	tx := &softTexture{desc: TextureDesc{Width: 1, Height: 1, Format: FormatRGBA8}, data: []float32{0.1, 2, -1, 0.5}}
	quantize(tx)
	assert.Equal(t, []float32{26.0 / 255, 1, 0, 128.0 / 255}, tx.data)
}

func TestEncodeID(t *testing.T) {
	for _, id := range []int{0, 1, 254, 255, 256, 70000, 1<<24 - 2} {
		r, g, b := EncodeID(id)
		assert.Equal(t, id, DecodeID(r, g, b), "id %d", id)
	}
	assert.Equal(t, -1, DecodeID(0, 0, 0))
}

func TestBuildGeometry(t *testing.T) {
	g := lineGraph()
	tr := Fit(g.Bounds, 64, 64)
	m := BuildGeometry(g, tr, 1)
	assert.Equal(t, 1, m.Segments)
	assert.Equal(t, 2, m.Triangles())
	v := m.Vertices
	assert.Equal(t, float32(0), v[attrSegment])
	assert.Equal(t, float32(0), v[attrAlong])
	assert.Equal(t, float32(1), v[2*VertexStride+attrAlong])
	assert.Equal(t, float32(1), v[attrThickness])

	// quad is as wide as the scaled thickness
	w := math.Abs(float64(v[attrX] - v[VertexStride+attrX]))
	assert.InDelta(t, 4*tr.Scale, w, 1e-4)

	zero := graph.New(graph.SourceImport)
	r := zero.AddRoot(graph.V2(1, 1))
	zero.AddChild(r, graph.V2(1, 1))
	assert.Zero(t, BuildGeometry(zero, tr, 1).Triangles())
}

func TestFitCentres(t *testing.T) {
	g := lineGraph()
	tr := Fit(g.Bounds, 100, 200)
	top, bottom := tr.Apply(graph.V2(0, 0)), tr.Apply(graph.V2(0, 100))
	assert.InDelta(t, 50, top.X, 1e-9)
	assert.InDelta(t, 10, top.Y, 1e-9)
	assert.InDelta(t, 190, bottom.Y, 1e-9)
}

func TestParseMapSet(t *testing.T) {
	s, err := ParseMapSet("distance, id")
	require.NoError(t, err)
	assert.Equal(t, []MapKind{MapDistance, MapID}, s.Kinds())
	s, err = ParseMapSet("all")
	require.NoError(t, err)
	assert.Equal(t, MapAll, s)
	_, err = ParseMapSet("normal")
	assert.Error(t, err)
	assert.Equal(t, "direction", MapDirection.String())
}

func TestOutputEncoding(t *testing.T) {
	p, err := NewPipeline(NewSoftwareDevice(nil))
	require.NoError(t, err)
	defer p.Close()
	out, err := p.Rasterize(context.Background(), lineGraph(), DefaultSettings(32))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, out.WritePNG(MapDirection, &buf))
	img, _, err := image.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())

	buf.Reset()
	require.NoError(t, out.WriteTIFF16(MapDistance, &buf))
	timg, err := tiff.Decode(&buf)
	require.NoError(t, err)
	_, ok := timg.(*image.Gray16)
	assert.True(t, ok)

	gray := out.Map(MapDistance).Image()
	_, ok = gray.(*image.Gray)
	assert.True(t, ok)

	dir := t.TempDir()
	paths, err := out.SaveAll(dir)
	require.NoError(t, err)
	assert.Len(t, paths, 6)
	for _, p := range paths {
		st, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, st.Size())
	}
	assert.FileExists(t, filepath.Join(dir, "distance.tif"))

	partial := &Output{Maps: map[MapKind]*Map{}}
	assert.Error(t, partial.WritePNG(MapID, &buf))
}

func TestDefaultDeviceRegistry(t *testing.T) {
	assert.Equal(t, "software", DefaultDevice().Name())
	assert.Error(t, RegisterDevice(nil))
	assert.NoError(t, SetDeviceProvider(struct{}{}))
}

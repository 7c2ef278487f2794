package immediate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

func TestContextDirtyFlag(t *testing.T) {
	c, dev := newTestContext(t, testSettings(), flatShader())
	cmd := &fakeRecorder{}
	if err := c.Begin(0); err != nil {
		t.Fatal(err)
	}

	c.Draw(cmd, triangle()).Draw(cmd, triangle())
	if len(cmd.pipelines) != 1 {
		t.Errorf("two draws without state change bound %d pipelines", len(cmd.pipelines))
	}

	c.SetPolyMode(metadata.PolygonModeLine).Draw(cmd, triangle())
	c.SetPolyMode(metadata.PolygonModeFill).Draw(cmd, triangle())
	if err := c.End(); err != nil {
		t.Fatal(err)
	}

	st := c.Stats()
	if len(cmd.pipelines) != 3 || st.PipelinesCompiled != 2 || st.PipelineCacheHits != 1 {
		t.Errorf("binds=%d compiled=%d hits=%d, want 3/2/1", len(cmd.pipelines), st.PipelinesCompiled, st.PipelineCacheHits)
	}
	if cmd.pipelines[0] != cmd.pipelines[2] {
		t.Error("returning to fill mode should rebind the first pipeline")
	}
	if dev.setsAllocated != 1 {
		t.Errorf("polygon mode changes re-allocated descriptor sets: %d", dev.setsAllocated)
	}
	if len(cmd.draws) != 4 {
		t.Errorf("draws: have %d want 4", len(cmd.draws))
	}
}

func TestContextUniformStackReusesOffsets(t *testing.T) {
	c, _ := newTestContext(t, testSettings(), flatShader())
	cmd := &fakeRecorder{}
	c.Begin(0)

	red := mgl32.Vec4{1, 0, 0, 1}
	c.SetUniform("globalColor", red).Draw(cmd, triangle())
	first := cmd.lastOffsets()
	if len(first) != 2 {
		t.Fatalf("dynamic offsets: have %d want 2", len(first))
	}

	c.PushBuffer("Style").SetUniform("Style.globalColor", mgl32.Vec4{0, 0, 1, 1}).Draw(cmd, triangle())
	second := cmd.lastOffsets()
	if second[1] == first[1] {
		t.Error("changed block was not uploaded to a new offset")
	}
	if second[0] != first[0] {
		t.Error("untouched block was uploaded again")
	}

	c.PopBuffer("Style").Draw(cmd, triangle())
	third := cmd.lastOffsets()
	if third[1] != first[1] {
		t.Errorf("restored block offset: have %d want %d", third[1], first[1])
	}
	got, _ := c.Uniform("globalColor")
	want, _ := encodeUniform(red)
	if !bytes.Equal(got, want) {
		t.Errorf("restored color: have %v want %v", got, want)
	}
	if st := c.Stats(); st.UniformUploads != 3 {
		t.Errorf("uniform uploads: have %d want 3", st.UniformUploads)
	}
	if err := c.End(); err != nil {
		t.Fatal(err)
	}
}

func TestContextMatrixStack(t *testing.T) {
	c, _ := newTestContext(t, testSettings(), flatShader())
	cmd := &fakeRecorder{}
	c.Begin(0)

	c.Draw(cmd, triangle())
	base := cmd.lastOffsets()[0]

	c.PushMatrix().Translate(mgl32.Vec3{1, 2, 3}).Draw(cmd, triangle())
	if cmd.lastOffsets()[0] == base {
		t.Error("translated matrices were not uploaded")
	}
	if !c.ModelMatrix().ApproxEqual(mgl32.Translate3D(1, 2, 3)) {
		t.Errorf("model matrix after translate: %v", c.ModelMatrix())
	}

	c.PopMatrix().Draw(cmd, triangle())
	if cmd.lastOffsets()[0] != base {
		t.Errorf("popped matrices offset: have %d want %d", cmd.lastOffsets()[0], base)
	}
	if !c.ModelMatrix().ApproxEqual(mgl32.Ident4()) {
		t.Errorf("model matrix after pop: %v", c.ModelMatrix())
	}
}

func TestContextTransformsCompose(t *testing.T) {
	c, _ := newTestContext(t, testSettings(), flatShader())
	z := mgl32.Vec3{0, 0, 1}
	c.Translate(mgl32.Vec3{1, 0, 0}).Rotate(90, z).Scale(mgl32.Vec3{2, 2, 2})

	want := mgl32.Translate3D(1, 0, 0).Mul4(mgl32.HomogRotate3D(math.Pi/2, z)).Mul4(mgl32.Scale3D(2, 2, 2))
	if !c.ModelMatrix().ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("model matrix: have %v want %v", c.ModelMatrix(), want)
	}
	c.RotateRad(1, mgl32.Vec3{})
	if !c.ModelMatrix().ApproxEqualThreshold(want, 1e-5) {
		t.Error("rotation around a zero axis changed the matrix")
	}
	c.SetViewMatrix(mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})).
		SetProjectionMatrix(mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100))
	if c.Err() != nil {
		t.Errorf("setting matrices: %v", c.Err())
	}
}

func TestContextDescriptorReuseAcrossShaderSwitch(t *testing.T) {
	flat, lit := flatShader(), litShader()
	c, dev := newTestContext(t, testSettings(), flat, lit)
	cmd := &fakeRecorder{}
	c.Begin(0)

	c.SetShader(flat).Draw(cmd, triangle())
	c.SetShader(lit).Draw(cmd, quad())
	c.SetShader(flat).Draw(cmd, triangle())
	if err := c.End(); err != nil {
		t.Fatal(err)
	}
	if dev.setsAllocated != 3 {
		t.Errorf("sets allocated: have %d want 3", dev.setsAllocated)
	}
	if len(cmd.sets) != 3 || cmd.sets[0].sets[0] != cmd.sets[2].sets[0] {
		t.Error("switching back to flat should bind the cached set")
	}
	if st := c.Stats(); st.DescriptorSetsReused != 1 {
		t.Errorf("reused: have %d want 1", st.DescriptorSetsReused)
	}
}

func TestContextTextureRebind(t *testing.T) {
	textured := texturedShader()
	c, dev := newTestContext(t, testSettings(), textured)
	cmd := &fakeRecorder{}
	a := &metadata.Texture{Name: "a", Sampler: 11, View: 12}
	b := &metadata.Texture{Name: "b", Sampler: 21, View: 22}

	c.SetTexture("tex0", a)
	c.Begin(0)
	c.Draw(cmd, quad()).Draw(cmd, quad())
	if dev.setsAllocated != 2 {
		t.Fatalf("sets allocated: have %d want 2", dev.setsAllocated)
	}

	c.SetTexture("tex0", b).Draw(cmd, quad())
	if dev.setsAllocated != 3 {
		t.Errorf("texture rebind should allocate exactly one set, total %d", dev.setsAllocated)
	}
	last := dev.writes[len(dev.writes)-1]
	if last.View != b.View || last.Sampler != b.Sampler {
		t.Errorf("last image write %+v does not reference texture b", last)
	}
	if err := c.End(); err != nil {
		t.Fatal(err)
	}

	// position at binding 0, normal and texcoord as one run starting at 2
	if len(cmd.vertex) < 2 || cmd.vertex[0].first != 0 || cmd.vertex[1].first != 2 || len(cmd.vertex[1].offsets) != 2 {
		t.Errorf("vertex binds: %+v", cmd.vertex[:2])
	}
	if len(cmd.drawIndexed) != 3 || cmd.drawIndexed[0] != 6 || cmd.indexBinds != 3 {
		t.Errorf("indexed draws: %v binds=%d", cmd.drawIndexed, cmd.indexBinds)
	}
}

func TestContextMissingTexture(t *testing.T) {
	c, _ := newTestContext(t, testSettings(), texturedShader())
	cmd := &fakeRecorder{}
	c.Begin(0)
	c.Draw(cmd, quad())
	if !errors.Is(c.Err(), core.ErrMissingTexture) {
		t.Errorf("expected ErrMissingTexture, got %v", c.Err())
	}
	if len(cmd.drawIndexed) != 0 {
		t.Error("draw recorded despite the missing texture")
	}

	settings := testSettings()
	settings.DefaultTexture = &metadata.Texture{Name: metadata.DEFAULT_TEXTURE_NAME, Sampler: 1, View: 1}
	c2, _ := newTestContext(t, settings, texturedShader())
	c2.Begin(0)
	if err := c2.DrawMesh(cmd, quad()); err != nil {
		t.Errorf("default texture should be used: %v", err)
	}
}

func TestContextEndToEnd(t *testing.T) {
	flat, lit := flatShader(), litShader()
	settings := testSettings()
	c, dev := newTestContext(t, settings, flat, lit)

	for frame := 0; frame < 6; frame++ {
		slot := frame % settings.VirtualFrames
		cmd := &fakeRecorder{}
		if err := c.Begin(slot); err != nil {
			t.Fatal(err)
		}
		c.SetShader(flat).
			SetUniform("globalColor", mgl32.Vec4{1, 0, 0, 1}).
			Draw(cmd, triangle())
		c.SetShader(lit).
			SetUniform("Light.direction", mgl32.Vec4{0, -1, 0, 0}).
			PushMatrix().Translate(mgl32.Vec3{0, 0, -float32(frame)}).
			Draw(cmd, quad()).
			PopMatrix()
		c.SetShader(flat).
			SetUniform("globalColor", mgl32.Vec4{0, 1, 0, 1}).
			Draw(cmd, triangle())
		if err := c.End(); err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}

		lo := uint32(uint64(slot) * settings.FrameSize)
		hi := lo + uint32(settings.FrameSize)
		for _, call := range cmd.sets {
			for _, off := range call.offsets {
				if off < lo || off >= hi {
					t.Errorf("frame %d: uniform offset %d outside slot [%d,%d)", frame, off, lo, hi)
				}
			}
		}
		for _, call := range cmd.vertex {
			for _, off := range call.offsets {
				if off < uint64(lo) || off >= uint64(hi) {
					t.Errorf("frame %d: vertex offset %d outside slot", frame, off)
				}
			}
		}
		if len(cmd.draws) != 2 || len(cmd.drawIndexed) != 1 {
			t.Errorf("frame %d: draws=%d indexed=%d", frame, len(cmd.draws), len(cmd.drawIndexed))
		}
		// lit reads position and normal only
		if len(cmd.vertex) != 4 {
			t.Errorf("frame %d: vertex binds have %d want 4", frame, len(cmd.vertex))
		}
		if cmd.sets[0].offsets[1] == cmd.sets[2].offsets[1] {
			t.Errorf("frame %d: different colors share an offset", frame)
		}
		if frame == 0 {
			checkMeshRanges(t, cmd)
		}
	}

	st := c.Stats()
	if st.PipelinesCompiled != 2 || dev.pipelinesCreated != 2 {
		t.Errorf("pipelines compiled: have %d want 2", st.PipelinesCompiled)
	}
	if st.Frames != 6 || st.Draws != 18 || st.DrawsFailed != 0 {
		t.Errorf("stats: %s", st)
	}
}

type byteRange struct {
	name       string
	start, end uint64
}

// checkMeshRanges expects the recording of one TestContextEndToEnd frame: a flat
// triangle, an indexed lit quad and another flat triangle.
func checkMeshRanges(t *testing.T, cmd *fakeRecorder) {
	t.Helper()
	if len(cmd.vertex) != 4 || len(cmd.indexOffset) != 1 {
		t.Fatalf("vertex binds=%d index binds=%d", len(cmd.vertex), len(cmd.indexOffset))
	}
	verts := []uint64{3, 4, 4, 3}
	var ranges []byteRange
	var prev uint64
	for i, call := range cmd.vertex {
		for j, off := range call.offsets {
			a := metadata.VertexAttribute(call.first + uint32(j))
			if len(ranges) > 0 && off <= prev {
				t.Errorf("vertex offset %d of %s does not follow %d", off, a, prev)
			}
			prev = off
			ranges = append(ranges, byteRange{a.String(), off, off + verts[i]*uint64(a.Stride())})
		}
	}
	idx := cmd.indexOffset[0]
	ranges = append(ranges, byteRange{"indices", idx, idx + uint64(len(quad().Indices))*4})

	for i := range ranges {
		for j := i + 1; j < len(ranges); j++ {
			a, b := ranges[i], ranges[j]
			if a.start < b.end && b.start < a.end {
				t.Errorf("%s [%d,%d) overlaps %s [%d,%d)", a.name, a.start, a.end, b.name, b.start, b.end)
			}
		}
	}
	// indices are uploaded after the quad attributes and before the last triangle
	if quadEnd := ranges[3].end; idx < quadEnd || idx >= cmd.vertex[3].offsets[0] {
		t.Errorf("index offset %d outside [%d,%d)", idx, quadEnd, cmd.vertex[3].offsets[0])
	}
}

func TestContextOutOfBufferSpace(t *testing.T) {
	settings := testSettings()
	settings.FrameSize = 512
	c, _ := newTestContext(t, settings, flatShader())
	cmd := &fakeRecorder{}
	c.Begin(0)

	c.Draw(cmd, triangle())
	if c.Err() != nil {
		t.Fatalf("first draw: %v", c.Err())
	}
	c.SetUniform("globalColor", mgl32.Vec4{1, 1, 1, 1}).Draw(cmd, triangle())
	if !errors.Is(c.End(), core.ErrOutOfBufferSpace) {
		t.Fatalf("expected ErrOutOfBufferSpace, got %v", c.Err())
	}
	if len(cmd.draws) != 1 {
		t.Errorf("failed draw was recorded: %d draws", len(cmd.draws))
	}

	if err := c.Begin(0); err != nil {
		t.Fatal(err)
	}
	if err := c.DrawMesh(cmd, triangle()); err != nil {
		t.Errorf("draw after reset: %v", err)
	}
}

func TestContextPipelineFailureIsCached(t *testing.T) {
	dev := newFakeDevice()
	attempts := 0
	dev.failPipeline = func(*PipelineDesc) error {
		attempts++
		return errors.New("driver said no")
	}
	c, err := NewContext(dev, testSettings())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Destroy()
	c.AddShader(flatShader())
	cmd := &fakeRecorder{}
	c.Begin(0)

	if err := c.DrawMesh(cmd, triangle()); !errors.Is(err, core.ErrPipelineCompilation) {
		t.Fatalf("first draw: %v", err)
	}
	if err := c.DrawMesh(cmd, triangle()); !errors.Is(err, core.ErrPipelineUnavailable) {
		t.Fatalf("second draw: %v", err)
	}
	if attempts != 1 || len(cmd.pipelines) != 0 {
		t.Errorf("attempts=%d binds=%d", attempts, len(cmd.pipelines))
	}
}

func TestContextLifecycle(t *testing.T) {
	dev := newFakeDevice()
	c, err := NewContext(dev, testSettings())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Destroy()

	if err := c.Begin(0); !errors.Is(err, core.ErrNoShader) {
		t.Errorf("begin without shaders: %v", err)
	}
	if err := c.AddShader(flatShader()); err != nil {
		t.Fatal(err)
	}
	cmd := &fakeRecorder{}
	c.Draw(cmd, triangle())
	if !errors.Is(c.Err(), core.ErrContextNotRecording) {
		t.Errorf("draw before begin: %v", c.Err())
	}
	if _, err := c.Uniform("globalColor"); !errors.Is(err, core.ErrContextNotFinalized) {
		t.Errorf("uniform before finalize: %v", err)
	}

	if err := c.Begin(0); err != nil {
		t.Fatalf("begin finalizes implicitly: %v", err)
	}
	if !c.Finalized() || c.Err() != nil {
		t.Errorf("finalized=%v err=%v", c.Finalized(), c.Err())
	}
	if err := c.AddShader(litShader()); !errors.Is(err, core.ErrContextFinalized) {
		t.Errorf("add after finalize: %v", err)
	}
	if len(c.Shaders()) != 1 {
		t.Errorf("late shader was registered")
	}
	if err := c.Begin(3); !errors.Is(err, core.ErrInvalidFrameIndex) {
		t.Errorf("begin(3): %v", err)
	}

	c.SetUniform("nope", float32(1))
	if !errors.Is(c.Err(), core.ErrUnknownUniform) {
		t.Errorf("unknown uniform: %v", c.Err())
	}
	c.Begin(1)
	c.SetUniform("globalColor", "red")
	if !errors.Is(c.Err(), core.ErrUnsupportedValue) {
		t.Errorf("string uniform: %v", c.Err())
	}
	c.Begin(1)
	c.SetShader(litShader())
	if !errors.Is(c.Err(), core.ErrNoShader) {
		t.Errorf("unregistered shader: %v", c.Err())
	}

	c.Destroy()
	if len(dev.buffers) != 0 || len(dev.pools) != 0 || len(dev.setLayouts) != 0 || dev.layoutsAlive != 0 || len(dev.caches) != 0 {
		t.Errorf("leaked objects: buffers=%d pools=%d layouts=%d pipeline layouts=%d caches=%d",
			len(dev.buffers), len(dev.pools), len(dev.setLayouts), dev.layoutsAlive, len(dev.caches))
	}
}

func TestContextSharedShader(t *testing.T) {
	flat, lit := flatShader(), litShader()
	c1, _ := newTestContext(t, testSettings(), flat, lit)
	c2, _ := newTestContext(t, testSettings(), lit, flat)

	for i, c := range []*Context{c1, c2} {
		cmd := &fakeRecorder{}
		if err := c.Begin(0); err != nil {
			t.Fatal(err)
		}
		c.SetShader(lit).Draw(cmd, quad())
		c.SetShader(flat).Draw(cmd, triangle())
		if err := c.End(); err != nil {
			t.Fatalf("context %d: %v", i, err)
		}
		if len(cmd.pipelines) != 2 {
			t.Errorf("context %d: pipeline binds have %d want 2", i, len(cmd.pipelines))
		}
	}
	if have := c1.pipelineState.Key().ShaderID; have != 1 {
		t.Errorf("flat in c1: have id %d want 1", have)
	}
	if have := c2.pipelineState.Key().ShaderID; have != 2 {
		t.Errorf("flat in c2: have id %d want 2", have)
	}

	// a shader registered by a later context only is still unknown here
	c3, _ := newTestContext(t, testSettings(), flat)
	newTestContext(t, testSettings(), lit, texturedShader(), flat)
	cmd := &fakeRecorder{}
	c3.Begin(0)
	if err := c3.DrawMesh(cmd, triangle()); err != nil {
		t.Fatalf("draw with the only shader: %v", err)
	}
	c3.SetShader(lit)
	if !errors.Is(c3.Err(), core.ErrNoShader) {
		t.Errorf("shader of another context: %v", c3.Err())
	}
}

func TestContextAddShaderTwice(t *testing.T) {
	flat := flatShader()
	c, _ := newTestContext(t, testSettings(), flat, flat)
	if len(c.Shaders()) != 1 {
		t.Errorf("shaders: have %d want 1", len(c.Shaders()))
	}
}

func TestContextFinalizeFailureReleasesObjects(t *testing.T) {
	dev := newFakeDevice()
	c, err := NewContext(dev, testSettings())
	if err != nil {
		t.Fatal(err)
	}
	c.AddShader(flatShader())
	c.AddShader(litShader())

	calls := 0
	dev.failPipelineLayout = func() error {
		calls++
		if calls == 2 {
			return errors.New("out of host memory")
		}
		return nil
	}
	if err := c.Begin(0); err == nil {
		t.Fatal("begin should report the pipeline layout failure")
	}
	if c.Finalized() {
		t.Error("context finalized after a failure")
	}
	if len(dev.setLayouts) != 0 || len(dev.pools) != 0 || dev.layoutsAlive != 0 {
		t.Errorf("after failure: set layouts=%d pools=%d pipeline layouts=%d",
			len(dev.setLayouts), len(dev.pools), dev.layoutsAlive)
	}

	dev.failPipelineLayout = nil
	if err := c.Begin(0); err != nil {
		t.Fatalf("retry: %v", err)
	}
	c.Destroy()
	if len(dev.setLayouts) != 0 || len(dev.pools) != 0 || dev.layoutsAlive != 0 {
		t.Errorf("after destroy: set layouts=%d pools=%d pipeline layouts=%d",
			len(dev.setLayouts), len(dev.pools), dev.layoutsAlive)
	}
}

func TestContextAmbiguousUniformName(t *testing.T) {
	c, _ := newTestContext(t, testSettings(), flatShader(), litShader())
	c.SetUniform("intensity", float32(2))

	light, _ := c.Uniform("Light.intensity")
	style, _ := c.Uniform("Style.intensity")
	if binary.LittleEndian.Uint32(light) != math.Float32bits(2) {
		t.Errorf("plain name should write the last declared block, Light.intensity=%v", light)
	}
	if !bytes.Equal(style, make([]byte, 4)) {
		t.Errorf("Style.intensity changed: %v", style)
	}
}

func TestContextPipelineCachePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), core.DefaultPipelineCachePath)
	settings := testSettings()
	settings.PipelineCachePath = path

	dev := newFakeDevice()
	c, err := NewContext(dev, settings)
	if err != nil {
		t.Fatal(err)
	}
	c.AddShader(flatShader())
	c.Begin(0)
	c.Draw(&fakeRecorder{}, triangle())
	c.Destroy()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("pipeline cache not written: %v", err)
	}
	if err := ValidatePipelineCacheData(data, dev.ident); err != nil {
		t.Fatalf("written cache is invalid: %v", err)
	}

	initialBlob := func(d *fakeDevice) []byte {
		for _, b := range d.caches {
			return b
		}
		return nil
	}

	same := newFakeDevice()
	c2, err := NewContext(same, settings)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(initialBlob(same), data) {
		t.Error("cache blob was not handed to the driver")
	}
	c2.Destroy()

	picky := newFakeDevice()
	picky.rejectCacheBlob = true
	c3, err := NewContext(picky, settings)
	if err != nil {
		t.Fatalf("rejected blob must fall back to an empty cache: %v", err)
	}
	if len(picky.caches) != 1 || initialBlob(picky) != nil {
		t.Error("fallback cache should start empty")
	}
	c3.Destroy()

	foreign := newFakeDevice()
	foreign.ident.PipelineCacheUUID[0] ^= 0xff
	c4, err := NewContext(foreign, settings)
	if err != nil {
		t.Fatal(err)
	}
	if initialBlob(foreign) != nil {
		t.Error("blob from another driver was loaded")
	}
	c4.Destroy()
}

func TestValidatePipelineCacheData(t *testing.T) {
	ident := newFakeDevice().ident
	good := EncodePipelineCacheHeader(ident, []byte("payload"))
	other := ident
	other.DeviceID++

	cases := []struct {
		name string
		data []byte
		ok   bool
	}{
		{"valid", good, true},
		{"truncated", good[:20], false},
		{"other device", EncodePipelineCacheHeader(other, nil), false},
		{"bad version", func() []byte {
			b := bytes.Clone(good)
			binary.LittleEndian.PutUint32(b[4:8], 2)
			return b
		}(), false},
		{"bad length", func() []byte {
			b := bytes.Clone(good)
			binary.LittleEndian.PutUint32(b[0:4], 4096)
			return b
		}(), false},
	}
	for _, c := range cases {
		err := ValidatePipelineCacheData(c.data, ident)
		if c.ok && err != nil {
			t.Errorf("%s: unexpected error %v", c.name, err)
		}
		if !c.ok && !errors.Is(err, core.ErrInvalidPipelineCache) {
			t.Errorf("%s: expected ErrInvalidPipelineCache, got %v", c.name, err)
		}
	}
	if LoadPipelineCacheData(filepath.Join(t.TempDir(), "missing.bin"), ident) != nil {
		t.Error("missing file should load as nil")
	}
}

func TestInspectPipelineCache(t *testing.T) {
	ident := newFakeDevice().ident
	path := filepath.Join(t.TempDir(), "cache.bin")
	if err := SavePipelineCacheData(path, EncodePipelineCacheHeader(ident, []byte("0123456789"))); err != nil {
		t.Fatal(err)
	}
	info, err := InspectPipelineCache(path)
	if err != nil {
		t.Fatalf("InspectPipelineCache: %v", err)
	}
	if info.Identity != ident || info.PayloadSize != 10 {
		t.Errorf("info = %+v, want identity %+v and 10 bytes", info, ident)
	}

	if err := os.WriteFile(path, []byte("short"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := InspectPipelineCache(path); !errors.Is(err, core.ErrInvalidPipelineCache) {
		t.Errorf("truncated file: err = %v", err)
	}
}

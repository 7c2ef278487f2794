package immediate

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

type staticSource struct {
	buf      metadata.BufferHandle
	textures map[string]*metadata.Texture
}

func (s staticSource) uniformBuffer() metadata.BufferHandle { return s.buf }

func (s staticSource) boundTexture(name string) *metadata.Texture { return s.textures[name] }

func TestDescriptorSetCacheReuse(t *testing.T) {
	dev := newFakeDevice()
	flat := flatShader()
	var stats core.RenderStats
	cache, err := NewDescriptorSetCache(dev, flat.SetLayouts, 2, 1, 4, &stats)
	if err != nil {
		t.Fatal(err)
	}
	src := staticSource{buf: 9}

	e1, writes, err := cache.Resolve(0, flat.SetLayouts[0], src, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(writes) != 2 {
		t.Fatalf("writes: have %d want 2", len(writes))
	}
	for _, w := range writes {
		if w.Buffer != 9 || w.Offset != 0 || w.Range == 0 {
			t.Errorf("dynamic uniform write %+v should cover the block at offset 0", w)
		}
	}
	e2, writes, _ := cache.Resolve(0, flat.SetLayouts[0], src, nil)
	if e1 != e2 || len(writes) != 0 {
		t.Errorf("second resolve should hit the cache without writes (writes=%d)", len(writes))
	}
	if dev.setsAllocated != 1 || stats.DescriptorSetsReused != 1 {
		t.Errorf("allocated=%d reused=%d", dev.setsAllocated, stats.DescriptorSetsReused)
	}

	// another frame has its own cache
	if e3, _, _ := cache.Resolve(1, flat.SetLayouts[0], src, nil); e3 == e1 {
		t.Error("frames share descriptor sets")
	}

	if err := cache.BeginFrame(0); err != nil {
		t.Fatal(err)
	}
	if e4, _, _ := cache.Resolve(0, flat.SetLayouts[0], src, nil); e4 == e1 {
		t.Error("cache survived the frame reset")
	}
}

func TestDescriptorSetCacheNeverReusesImageSets(t *testing.T) {
	dev := newFakeDevice()
	textured := texturedShader()
	cache, err := NewDescriptorSetCache(dev, textured.SetLayouts, 1, 1, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	src := staticSource{textures: map[string]*metadata.Texture{"tex0": {Name: "a", Sampler: 1, View: 2}}}

	e1, writes, err := cache.Resolve(0, textured.SetLayouts[1], src, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(writes) != 1 || writes[0].View != 2 || writes[0].Sampler != 1 {
		t.Errorf("image write: %+v", writes)
	}
	e2, _, _ := cache.Resolve(0, textured.SetLayouts[1], src, nil)
	if e1 == e2 || e1.set == e2.set {
		t.Error("image set was reused")
	}

	if _, _, err := cache.Resolve(0, textured.SetLayouts[1], staticSource{}, nil); !errors.Is(err, core.ErrMissingTexture) {
		t.Errorf("missing texture: got %v", err)
	}
}

func TestDescriptorSetCachePoolGrowth(t *testing.T) {
	dev := newFakeDevice()
	textured := texturedShader()
	var stats core.RenderStats
	// 2 layouts x 1 set per pool, up to 2 pools
	cache, err := NewDescriptorSetCache(dev, textured.SetLayouts, 1, 2, 1, &stats)
	if err != nil {
		t.Fatal(err)
	}
	src := staticSource{textures: map[string]*metadata.Texture{"tex0": {Sampler: 1, View: 2}}}
	for i := 0; i < 4; i++ {
		if _, _, err := cache.Resolve(0, textured.SetLayouts[1], src, nil); err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}
	}
	if cache.PoolCount(0) != 2 || stats.DescriptorPoolGrowths != 1 {
		t.Errorf("pools=%d growths=%d, want 2/1", cache.PoolCount(0), stats.DescriptorPoolGrowths)
	}
	if _, _, err := cache.Resolve(0, textured.SetLayouts[1], src, nil); !errors.Is(err, core.ErrDescriptorPoolExhausted) {
		t.Fatalf("expected ErrDescriptorPoolExhausted, got %v", err)
	}

	// a new frame starts again from the first pool and keeps the grown bank
	if err := cache.BeginFrame(0); err != nil {
		t.Fatal(err)
	}
	if _, _, err := cache.Resolve(0, textured.SetLayouts[1], src, nil); err != nil {
		t.Errorf("after reset: %v", err)
	}
	if cache.PoolCount(0) != 2 {
		t.Errorf("pool bank shrank to %d", cache.PoolCount(0))
	}
}

func TestDescriptorPoolSizing(t *testing.T) {
	dev := newFakeDevice()
	flat, textured, lit := flatShader(), texturedShader(), litShader()
	var layouts []*metadata.DescriptorSetLayout
	for _, s := range []*metadata.Shader{flat, textured, lit} {
		layouts = append(layouts, s.SetLayouts...)
	}
	cache, err := NewDescriptorSetCache(dev, layouts, 1, 1, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	// distinct layouts: flat/textured set 0, textured set 1, lit set 0, lit set 1
	maxSets, sizes := cache.PoolSizes()
	if maxSets != 8 {
		t.Errorf("max sets: have %d want 8", maxSets)
	}
	got := map[metadata.DescriptorType]uint32{}
	for _, s := range sizes {
		got[s.Type] = s.Count
	}
	if got[metadata.DescriptorTypeUniformBufferDynamic] != 8 || got[metadata.DescriptorTypeCombinedImageSampler] != 2 {
		t.Errorf("pool sizes: %v", got)
	}
	if len(dev.setLayouts) != 4 {
		t.Errorf("native set layouts: have %d want 4", len(dev.setLayouts))
	}
	cache.Destroy()
	if len(dev.setLayouts) != 0 || len(dev.pools) != 0 {
		t.Errorf("leaked %d layouts and %d pools", len(dev.setLayouts), len(dev.pools))
	}
}

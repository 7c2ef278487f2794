package immediate

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

// fakeDevice hands out sequential handles and records what the context asked for.
type fakeDevice struct {
	next   uint64
	limits DeviceLimits
	ident  DeviceIdentity

	buffers      map[metadata.BufferHandle][]byte
	setLayouts   map[metadata.DescriptorSetLayoutHandle]*metadata.DescriptorSetLayout
	pools        map[metadata.DescriptorPoolHandle]*fakePool
	pipelines    map[metadata.PipelineHandle]PipelineDesc
	caches       map[metadata.PipelineCacheHandle][]byte
	layoutsAlive int

	pipelinesCreated int
	setsAllocated    int
	updateCalls      int
	writes           []DescriptorWrite
	poolsCreated     int

	failPipeline       func(desc *PipelineDesc) error
	failPipelineLayout func() error
	rejectCacheBlob    bool
}

type fakePool struct {
	maxSets uint32
	used    uint32
	resets  int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		limits: DeviceLimits{MinUniformBufferOffsetAlignment: 256, VertexAlignment: 4},
		ident: DeviceIdentity{
			VendorID:          0x10de,
			DeviceID:          0x2684,
			PipelineCacheUUID: [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		},
		buffers:    map[metadata.BufferHandle][]byte{},
		setLayouts: map[metadata.DescriptorSetLayoutHandle]*metadata.DescriptorSetLayout{},
		pools:      map[metadata.DescriptorPoolHandle]*fakePool{},
		pipelines:  map[metadata.PipelineHandle]PipelineDesc{},
		caches:     map[metadata.PipelineCacheHandle][]byte{},
	}
}

func (d *fakeDevice) id() uint64 {
	d.next++
	return d.next
}

func (d *fakeDevice) Limits() DeviceLimits     { return d.limits }
func (d *fakeDevice) Identity() DeviceIdentity { return d.ident }

func (d *fakeDevice) CreateHostBuffer(size uint64) (HostBuffer, error) {
	h := metadata.BufferHandle(d.id())
	mem := make([]byte, size)
	d.buffers[h] = mem
	return HostBuffer{Handle: h, Memory: mem}, nil
}

func (d *fakeDevice) DestroyBuffer(b metadata.BufferHandle) { delete(d.buffers, b) }

func (d *fakeDevice) CreateDescriptorSetLayout(l *metadata.DescriptorSetLayout) (metadata.DescriptorSetLayoutHandle, error) {
	h := metadata.DescriptorSetLayoutHandle(d.id())
	d.setLayouts[h] = l
	return h, nil
}

func (d *fakeDevice) DestroyDescriptorSetLayout(h metadata.DescriptorSetLayoutHandle) {
	delete(d.setLayouts, h)
}

func (d *fakeDevice) CreatePipelineLayout(sets []metadata.DescriptorSetLayoutHandle) (metadata.PipelineLayoutHandle, error) {
	if d.failPipelineLayout != nil {
		if err := d.failPipelineLayout(); err != nil {
			return 0, err
		}
	}
	for _, s := range sets {
		if _, ok := d.setLayouts[s]; !ok {
			return 0, fmt.Errorf("unknown set layout %d", s)
		}
	}
	d.layoutsAlive++
	return metadata.PipelineLayoutHandle(d.id()), nil
}

func (d *fakeDevice) DestroyPipelineLayout(metadata.PipelineLayoutHandle) { d.layoutsAlive-- }

func (d *fakeDevice) CreateDescriptorPool(maxSets uint32, sizes []DescriptorPoolSize) (metadata.DescriptorPoolHandle, error) {
	h := metadata.DescriptorPoolHandle(d.id())
	d.pools[h] = &fakePool{maxSets: maxSets}
	d.poolsCreated++
	return h, nil
}

func (d *fakeDevice) ResetDescriptorPool(p metadata.DescriptorPoolHandle) error {
	pool, ok := d.pools[p]
	if !ok {
		return errors.New("unknown pool")
	}
	pool.used = 0
	pool.resets++
	return nil
}

func (d *fakeDevice) DestroyDescriptorPool(p metadata.DescriptorPoolHandle) { delete(d.pools, p) }

func (d *fakeDevice) AllocateDescriptorSet(p metadata.DescriptorPoolHandle, l metadata.DescriptorSetLayoutHandle) (metadata.DescriptorSetHandle, error) {
	pool, ok := d.pools[p]
	if !ok {
		return 0, errors.New("unknown pool")
	}
	if pool.used >= pool.maxSets {
		return 0, fmt.Errorf("fake pool %d: %w", p, core.ErrDescriptorPoolExhausted)
	}
	pool.used++
	d.setsAllocated++
	return metadata.DescriptorSetHandle(d.id()), nil
}

func (d *fakeDevice) UpdateDescriptorSets(writes []DescriptorWrite) {
	d.updateCalls++
	d.writes = append(d.writes, writes...)
}

func (d *fakeDevice) CreatePipelineCache(initial []byte) (metadata.PipelineCacheHandle, error) {
	if initial != nil && d.rejectCacheBlob {
		return 0, errors.New("blob rejected")
	}
	h := metadata.PipelineCacheHandle(d.id())
	d.caches[h] = initial
	return h, nil
}

func (d *fakeDevice) PipelineCacheData(h metadata.PipelineCacheHandle) ([]byte, error) {
	if _, ok := d.caches[h]; !ok {
		return nil, errors.New("unknown pipeline cache")
	}
	return EncodePipelineCacheHeader(d.ident, []byte(fmt.Sprintf("pipelines=%d", d.pipelinesCreated))), nil
}

func (d *fakeDevice) DestroyPipelineCache(h metadata.PipelineCacheHandle) { delete(d.caches, h) }

func (d *fakeDevice) CreateGraphicsPipeline(cache metadata.PipelineCacheHandle, desc *PipelineDesc) (metadata.PipelineHandle, error) {
	if d.failPipeline != nil {
		if err := d.failPipeline(desc); err != nil {
			return 0, err
		}
	}
	h := metadata.PipelineHandle(d.id())
	d.pipelines[h] = *desc
	d.pipelinesCreated++
	return h, nil
}

func (d *fakeDevice) DestroyPipeline(h metadata.PipelineHandle) { delete(d.pipelines, h) }

type setsCall struct {
	layout  metadata.PipelineLayoutHandle
	sets    []metadata.DescriptorSetHandle
	offsets []uint32
}

type vertexCall struct {
	first   uint32
	offsets []uint64
}

// fakeRecorder keeps every recorded command.
type fakeRecorder struct {
	pipelines   []metadata.PipelineHandle
	sets        []setsCall
	vertex      []vertexCall
	indexBinds  int
	indexOffset []uint64
	draws       []uint32
	drawIndexed []uint32
}

func (r *fakeRecorder) BindPipeline(p metadata.PipelineHandle) { r.pipelines = append(r.pipelines, p) }

func (r *fakeRecorder) BindDescriptorSets(l metadata.PipelineLayoutHandle, first uint32, sets []metadata.DescriptorSetHandle, offsets []uint32) {
	r.sets = append(r.sets, setsCall{
		layout:  l,
		sets:    append([]metadata.DescriptorSetHandle(nil), sets...),
		offsets: append([]uint32(nil), offsets...),
	})
}

func (r *fakeRecorder) BindVertexBuffers(first uint32, buffers []metadata.BufferHandle, offsets []uint64) {
	r.vertex = append(r.vertex, vertexCall{first: first, offsets: append([]uint64(nil), offsets...)})
}

func (r *fakeRecorder) BindIndexBuffer(_ metadata.BufferHandle, offset uint64) {
	r.indexBinds++
	r.indexOffset = append(r.indexOffset, offset)
}

func (r *fakeRecorder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	r.draws = append(r.draws, vertexCount)
}

func (r *fakeRecorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	r.drawIndexed = append(r.drawIndexed, indexCount)
}

func (r *fakeRecorder) lastOffsets() []uint32 {
	if len(r.sets) == 0 {
		return nil
	}
	return r.sets[len(r.sets)-1].offsets
}

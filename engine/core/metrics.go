package core

import "fmt"

/** @brief Counters collected by a rendering context. Values are cumulative unless reset. */
type RenderStats struct {
	Frames uint64
	Draws  uint64
	// Draws skipped because of an error.
	DrawsFailed uint64

	PipelinesCompiled     uint64
	PipelineCacheHits     uint64
	PipelineCompileErrors uint64
	PipelineBinds         uint64

	DescriptorSetsAllocated uint64
	DescriptorSetsReused    uint64
	DescriptorWrites        uint64
	DescriptorPoolGrowths   uint64

	UniformUploads     uint64
	UniformReuses      uint64
	MeshUploads        uint64
	BytesAllocated     uint64
	AllocationFailures uint64
}

/** @brief Zeroes every counter except the pipeline compilation ones. */
func (s *RenderStats) Reset() {
	*s = RenderStats{
		PipelinesCompiled:     s.PipelinesCompiled,
		PipelineCompileErrors: s.PipelineCompileErrors,
	}
}

func (s RenderStats) String() string {
	return fmt.Sprintf("frames=%d draws=%d failed=%d pipelines=%d hits=%d sets=%d reused=%d uploads=%d bytes=%d",
		s.Frames, s.Draws, s.DrawsFailed, s.PipelinesCompiled, s.PipelineCacheHits,
		s.DescriptorSetsAllocated, s.DescriptorSetsReused, s.UniformUploads+s.MeshUploads, s.BytesAllocated)
}

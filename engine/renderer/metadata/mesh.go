package metadata

import "github.com/go-gl/mathgl/mgl32"

/** @brief Vertex attributes understood by the renderer. The value is also the vertex binding and location. */
type VertexAttribute uint32

const (
	VertexAttributePosition VertexAttribute = iota
	VertexAttributeColor
	VertexAttributeNormal
	VertexAttributeTexCoord
	VertexAttributeCount
)

/** @brief Size in bytes of one element of the attribute. */
func (a VertexAttribute) Stride() uint32 {
	switch a {
	case VertexAttributePosition, VertexAttributeNormal:
		return 12
	case VertexAttributeColor:
		return 16
	case VertexAttributeTexCoord:
		return 8
	}
	return 0
}

func (a VertexAttribute) String() string {
	switch a {
	case VertexAttributePosition:
		return "position"
	case VertexAttributeColor:
		return "color"
	case VertexAttributeNormal:
		return "normal"
	case VertexAttributeTexCoord:
		return "texcoord"
	}
	return "unknown"
}

type VertexAttributeMask uint32

const VertexAttributeMaskAll VertexAttributeMask = 1<<VertexAttributeCount - 1

func (m VertexAttributeMask) Has(a VertexAttribute) bool {
	return m&(1<<a) != 0
}

func (m VertexAttributeMask) With(a VertexAttribute) VertexAttributeMask {
	return m | 1<<a
}

/**
 * @brief Flat attribute arrays of a mesh. Empty slices are absent attributes.
 */
type Mesh struct {
	Positions []mgl32.Vec3
	Colors    []mgl32.Vec4
	Normals   []mgl32.Vec3
	TexCoords []mgl32.Vec2
	Indices   []uint32
}

/** @brief Element count of an attribute. */
func (m *Mesh) Count(a VertexAttribute) int {
	switch a {
	case VertexAttributePosition:
		return len(m.Positions)
	case VertexAttributeColor:
		return len(m.Colors)
	case VertexAttributeNormal:
		return len(m.Normals)
	case VertexAttributeTexCoord:
		return len(m.TexCoords)
	}
	return 0
}

func (m *Mesh) Attributes() VertexAttributeMask {
	var mask VertexAttributeMask
	for a := VertexAttributePosition; a < VertexAttributeCount; a++ {
		if m.Count(a) > 0 {
			mask = mask.With(a)
		}
	}
	return mask
}

/** @brief Number of vertices a non-indexed draw would emit. */
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

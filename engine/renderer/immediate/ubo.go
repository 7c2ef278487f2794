package immediate

import (
	"encoding/binary"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/immediate/engine/containers"
	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

// dirtyStackID marks a block whose bytes have not been uploaded in the current frame.
const dirtyStackID int64 = -1

type uboSnapshot struct {
	data    []byte
	stackID int64
	offset  uint64
}

/**
 * @brief CPU side storage for one uniform block. Every change of the bytes marks the
 * block dirty; the next flush uploads it into the current frame and assigns a new
 * stack id.
 */
type UboState struct {
	Name string

	data    []byte
	members map[string]metadata.UniformMember

	lastSavedStackID int64
	stackID          int64
	/** @brief Absolute offset of the last upload, valid while stackID is not dirty. */
	offset uint64

	stack containers.Stack[uboSnapshot]
}

func newUboState(binding *metadata.DescriptorBinding) *UboState {
	u := &UboState{
		Name:    binding.Name,
		data:    make([]byte, binding.Size),
		members: make(map[string]metadata.UniformMember, len(binding.Members)),
		stackID: dirtyStackID,
	}
	for _, m := range binding.Members {
		u.members[m.Name] = m
	}
	return u
}

func (u *UboState) Size() int {
	return len(u.data)
}

func (u *UboState) Dirty() bool {
	return u.stackID == dirtyStackID
}

func (u *UboState) StackID() int64 {
	return u.stackID
}

func (u *UboState) markDirty() {
	u.stackID = dirtyStackID
}

// reset drops every snapshot and forces an upload on next use. The bytes are kept.
func (u *UboState) reset() {
	u.markDirty()
	u.offset = 0
	u.stack.Clear()
}

/** @brief Writes value into the member range. Shorter values write a prefix. */
func (u *UboState) setMember(member string, value []byte) error {
	m, ok := u.members[member]
	if !ok {
		return fmt.Errorf("%w: %s.%s", core.ErrUnknownUniform, u.Name, member)
	}
	if uint32(len(value)) > m.Range {
		return fmt.Errorf("%w: %s.%s takes %d bytes, got %d", core.ErrUniformTooLarge, u.Name, member, m.Range, len(value))
	}
	end := int(m.Offset) + len(value)
	if end > len(u.data) {
		return fmt.Errorf("%w: %s.%s overruns block of %d bytes", core.ErrUniformTooLarge, u.Name, member, len(u.data))
	}
	copy(u.data[m.Offset:end], value)
	u.markDirty()
	return nil
}

func (u *UboState) member(member string) ([]byte, bool) {
	m, ok := u.members[member]
	if !ok {
		return nil, false
	}
	end := min(int(m.Offset+m.Range), len(u.data))
	return u.data[m.Offset:end], true
}

func (u *UboState) push() {
	u.stack.Push(uboSnapshot{
		data:    append([]byte(nil), u.data...),
		stackID: u.stackID,
		offset:  u.offset,
	})
}

/**
 * @brief Restores the latest snapshot. A snapshot taken after an upload keeps its
 * stack id and offset, so restoring it needs no new upload this frame.
 */
func (u *UboState) pop() error {
	s, ok := u.stack.Pop()
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrEmptyStack, u.Name)
	}
	copy(u.data, s.data)
	u.stackID = s.stackID
	u.offset = s.offset
	return nil
}

/** @brief Uploads the block when dirty and returns the offset it lives at. */
func (u *UboState) flush(alloc *FrameAllocator, frameIndex int) (uint64, bool, error) {
	if !u.Dirty() {
		return u.offset, false, nil
	}
	mem, offset, err := alloc.Allocate(uint64(len(u.data)), UsageUniform, frameIndex)
	if err != nil {
		return 0, false, fmt.Errorf("uniform block %s: %w", u.Name, err)
	}
	copy(mem, u.data)
	u.offset = offset
	u.lastSavedStackID++
	u.stackID = u.lastSavedStackID
	return offset, true, nil
}

/**
 * @brief Serializes a uniform value the way the GPU expects it: little endian and
 * tightly packed. Go ints and bools are narrowed to 32 bits.
 */
func encodeUniform(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case int:
		value = int32(v)
	case uint:
		value = uint32(v)
	case bool:
		if v {
			value = uint32(1)
		} else {
			value = uint32(0)
		}
	}
	out, err := binary.Append(nil, binary.LittleEndian, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %T", core.ErrUnsupportedValue, value)
	}
	return out, nil
}

func decodeMat4(data []byte) (mgl32.Mat4, error) {
	var m mgl32.Mat4
	if _, err := binary.Decode(data, binary.LittleEndian, &m); err != nil {
		return mgl32.Ident4(), err
	}
	return m, nil
}

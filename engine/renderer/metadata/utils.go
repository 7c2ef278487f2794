package metadata

import (
	"encoding/binary"
	"hash"
	"hash/fnv"

	"golang.org/x/exp/constraints"
)

/** @brief Rounds operand up to the next multiple of granularity. Granularity must be a power of two; 0 and 1 leave the operand untouched. */
func GetAligned[T constraints.Unsigned](operand, granularity T) T {
	if granularity <= 1 {
		return operand
	}
	val := (operand + (granularity - 1)) &^ (granularity - 1)
	return val
}

func IsPowerOfTwo[T constraints.Unsigned](v T) bool {
	return v != 0 && v&(v-1) == 0
}

/** @brief Incremental FNV-1a 64 hasher for building cache keys out of fixed-width fields. */
type Hasher struct {
	h   hash.Hash64
	buf [8]byte
}

func NewHasher() *Hasher {
	return &Hasher{h: fnv.New64a()}
}

func (h *Hasher) Uint32(v uint32) *Hasher {
	binary.LittleEndian.PutUint32(h.buf[:4], v)
	_, _ = h.h.Write(h.buf[:4]) // fnv.Write never returns an error
	return h
}

func (h *Hasher) Uint64(v uint64) *Hasher {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	_, _ = h.h.Write(h.buf[:])
	return h
}

func (h *Hasher) Bool(v bool) *Hasher {
	if v {
		return h.Uint32(1)
	}
	return h.Uint32(0)
}

// String writes the length first so that adjacent strings cannot collide.
func (h *Hasher) String(s string) *Hasher {
	h.Uint32(uint32(len(s)))
	_, _ = h.h.Write([]byte(s))
	return h
}

func (h *Hasher) Sum() uint64 {
	return h.h.Sum64()
}

package core

import "fmt"

/**
 * @brief Hands out small integer identifiers for native objects that cannot
 * cross an API boundary as-is. Released slots are recycled. Id 0 is never used
 * so that the zero value of a handle means "none".
 */
type Registry[T any] struct {
	owners []*T
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		owners: make([]*T, 1, 100),
	}
}

func (r *Registry[T]) Acquire(owner T) uint64 {
	length := uint64(len(r.owners))
	for i := uint64(1); i < length; i++ {
		// Existing free spot. Take it.
		if r.owners[i] == nil {
			r.owners[i] = &owner
			return i
		}
	}
	r.owners = append(r.owners, &owner)
	return uint64(len(r.owners)) - 1
}

func (r *Registry[T]) Get(id uint64) (T, bool) {
	var zero T
	if id == 0 || id >= uint64(len(r.owners)) || r.owners[id] == nil {
		return zero, false
	}
	return *r.owners[id], true
}

func (r *Registry[T]) Release(id uint64) error {
	length := uint64(len(r.owners))
	if id == 0 || id >= length {
		return fmt.Errorf("registry release: id '%d' out of range (max=%d). Nothing was done", id, length)
	}
	r.owners[id] = nil
	return nil
}

/** @brief Calls fn for every live entry. */
func (r *Registry[T]) Each(fn func(id uint64, owner T)) {
	for i := 1; i < len(r.owners); i++ {
		if r.owners[i] != nil {
			fn(uint64(i), *r.owners[i])
		}
	}
}

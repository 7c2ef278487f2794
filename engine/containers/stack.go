package containers

/** @brief A LIFO of values. The zero value is an empty stack ready to use. */
type Stack[T any] struct {
	data []T
}

// Push adds an element to the top of the stack
func (s *Stack[T]) Push(value T) {
	s.data = append(s.data, value)
}

// Pop removes and returns the top element of the stack
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if len(s.data) == 0 {
		return zero, false
	}
	last := len(s.data) - 1
	value := s.data[last]
	s.data[last] = zero
	s.data = s.data[:last]
	return value, true
}

// Peek returns the top element without removing it
func (s *Stack[T]) Peek() (T, bool) {
	if len(s.data) == 0 {
		var zero T
		return zero, false
	}
	return s.data[len(s.data)-1], true
}

func (s *Stack[T]) Len() int {
	return len(s.data)
}

// IsEmpty checks if the stack is empty
func (s *Stack[T]) IsEmpty() bool {
	return len(s.data) == 0
}

// Clear drops every element but keeps the backing storage
func (s *Stack[T]) Clear() {
	clear(s.data)
	s.data = s.data[:0]
}

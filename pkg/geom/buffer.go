package geom

// Buffer is an array that is either owned by its holder or borrowed from
// somebody else. Free releases owned storage and is a no-op for views, so
// the holder never has to track who allocated what.
type Buffer[T any] interface {
	Data() []T
	Owned() bool
	Free()
}

// Owned is a buffer whose storage belongs to the holder.
type Owned[T any] struct {
	data []T
}

// Own wraps s as an owned buffer.
func Own[T any](s []T) *Owned[T] {
	return &Owned[T]{data: s}
}

// OwnCopy makes an owned deep copy of s.
func OwnCopy[T any](s []T) *Owned[T] {
	if s == nil {
		return &Owned[T]{}
	}
	c := make([]T, len(s))
	copy(c, s)
	return &Owned[T]{data: c}
}

func (b *Owned[T]) Data() []T   { return b.data }
func (b *Owned[T]) Owned() bool { return true }
func (b *Owned[T]) Free()       { b.data = nil }

// Borrowed is a read-only view of somebody else's storage.
type Borrowed[T any] struct {
	data []T
}

// Borrow wraps s as a view. Holders must not write through it.
func Borrow[T any](s []T) Borrowed[T] {
	return Borrowed[T]{data: s}
}

func (b Borrowed[T]) Data() []T   { return b.data }
func (b Borrowed[T]) Owned() bool { return false }
func (b Borrowed[T]) Free()       {}

// Len is a nil-safe length for a buffer.
func Len[T any](b Buffer[T]) int {
	if b == nil {
		return 0
	}
	return len(b.Data())
}

// Writable returns b unchanged if it is owned, or an owned copy of its
// contents if it is a view.
func Writable[T any](b Buffer[T]) *Owned[T] {
	if o, ok := b.(*Owned[T]); ok {
		return o
	}
	if b == nil {
		return Own[T](nil)
	}
	return OwnCopy(b.Data())
}

package renderer

import (
	"github.com/sirupsen/logrus"
)

// Owned holds a driver handle that may be absent. Taking the handle out
// leaves the holder empty, so a release can only happen once.
type Owned[T any] struct {
	value T
	set   bool
}

func Own[T any](value T) Owned[T] {
	return Owned[T]{value: value, set: true}
}

func (o *Owned[T]) Get() (T, bool) {
	return o.value, o.set
}

// Take moves the handle out of o.
func (o *Owned[T]) Take() (T, bool) {
	value, ok := o.value, o.set
	var zero T
	o.value, o.set = zero, false
	return value, ok
}

// Release calls destroy with the handle if one is held and leaves o empty.
func (o *Owned[T]) Release(destroy func(T)) {
	if value, ok := o.Take(); ok {
		destroy(value)
	}
}

type teardownStep struct {
	name    string
	release func()
}

// teardown releases resources in the reverse of the order they were pushed.
// Each stage pushes its own release right after it succeeds, so a failure at
// any point unwinds exactly what exists.
type teardown struct {
	log   logrus.FieldLogger
	steps []teardownStep
}

func (t *teardown) push(name string, release func()) {
	t.steps = append(t.steps, teardownStep{name: name, release: release})
}

func (t *teardown) len() int {
	return len(t.steps)
}

func (t *teardown) run() {
	for i := len(t.steps) - 1; i >= 0; i-- {
		step := t.steps[i]
		if t.log != nil {
			t.log.WithField("resource", step.name).Debug("Destroying")
		}
		step.release()
	}
	t.steps = nil
}

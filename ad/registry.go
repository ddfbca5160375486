package ad

// The active-tape registry. Exactly one recording of a given scalar
// type T may be in progress per goroutine (C4); MTSafeOn's effect is
// already the default here because the registry is keyed by
// goroutine id (C10) rather than by a single process-wide slot, the
// same trade CppAD's single global tape makes safe for a
// single-threaded host and which the teacher's ad/gls.go opts into
// explicitly for multi-threaded hosts via github.com/modern-go/gls.

import (
	"fmt"
	"sync"

	"github.com/modern-go/gls"
)

type registryKey struct {
	goroutine int64
	scalar    string
}

var (
	registryMu sync.Mutex
	registry   = map[registryKey]interface{}{}
)

// MTSafeOn is the engine's one runtime knob (SPEC_FULL.md §10): CppAD
// hosts call AD<Base>::mt_setup() or thread_alloc's equivalent before
// using a tape from more than one thread. This engine's registry is
// already keyed per goroutine unconditionally (see the package-level
// comment above), so there is nothing left to switch on; MTSafeOn is
// kept as a no-op call for hosts porting code that calls it, so the
// call site doesn't need an #ifdef-style removal.
func MTSafeOn() {}

func typeTag[T any]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

func currentKey[T any]() registryKey {
	return registryKey{goroutine: gls.GoID(), scalar: typeTag[T]()}
}

// activeTape returns the tape currently recording for T on this
// goroutine, or nil if none.
func activeTape[T any]() *Tape[T] {
	registryMu.Lock()
	defer registryMu.Unlock()
	v, ok := registry[currentKey[T]()]
	if !ok {
		return nil
	}
	return v.(*Tape[T])
}

func setActiveTape[T any](t *Tape[T]) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[currentKey[T]()] = t
}

func clearActiveTape[T any]() {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, currentKey[T]())
}

// Recording is the handle returned by Independent. It owns the tape
// being built until a Function is constructed from it (consuming the
// recording) or DropTape discards it. Dropping the handle alone does
// not discard the tape: it stays the active tape for T on this
// goroutine, and a later Independent for T fails until DropTape is
// called.
type Recording[T any] struct {
	tape   *Tape[T]
	field  Field[T]
	indvar []int
}

// Independent starts a recording, declaring each element of x as an
// independent variable in registration order (I-indep-first). x is
// rebound in place to variables on the new tape.
func Independent[T any](field Field[T], x []Value[T]) *Recording[T] {
	if len(x) == 0 {
		usageError("Independent: independent sequence must not be empty")
	}
	if activeTape[T]() != nil {
		usageError("Independent: a recording is already in progress")
	}

	tape := newTape(field)
	fptr := tape.Field()
	indvar := make([]int, len(x))
	for i := range x {
		v := tape.PutOp(InvOp)
		x[i] = Value[T]{v: x[i].v, tape: tape, idx: v, field: fptr}
		indvar[i] = v
	}
	setActiveTape(tape)

	return &Recording[T]{tape: tape, field: field, indvar: indvar}
}

// DropTape discards the active recording for T without building a
// Function, freeing the registry slot.
func DropTape[T any]() { clearActiveTape[T]() }

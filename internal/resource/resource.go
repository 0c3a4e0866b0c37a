// Package resource implements the LIFO destructor stack and latched-error
// protocol. The pipeline registers its buffer mappings here; worker
// goroutines and the seed file are not registered and are released by
// their own code paths.
//
// A Context is per-goroutine. The first call to Raise on a Context wins:
// its message is latched and every later Raise on the same Context is a
// pure cleanup pass that never overwrites it.
package resource

import "fmt"

// Marker is an opaque stack-depth token returned by Push and consumed by
// ReleaseTo.
type Marker int

// LatchedError wraps the first error message raised on a Context.
type LatchedError struct {
	Message string
}

func (e *LatchedError) Error() string {
	return e.Message
}

// Context is a per-goroutine resource context: a rollback flag, the first
// latched error message, and a LIFO stack of destructors.
type Context struct {
	rollback bool
	message  string
	stack    []func()
}

// New returns an empty resource context.
func New() *Context {
	return &Context{}
}

// Mark returns a Marker for the context's current depth, without pushing
// any destructor. A later ReleaseTo(m) unwinds everything pushed since.
func (c *Context) Mark() Marker {
	return Marker(len(c.stack))
}

// Push registers a destructor on top of the stack and returns a Marker
// identifying the stack depth with the new destructor included, so that a
// later ReleaseTo(m) unwinds everything pushed after it while leaving this
// one in place.
func (c *Context) Push(dtor func()) Marker {
	c.stack = append(c.stack, dtor)
	return Marker(len(c.stack))
}

// ReleaseAll pops and calls destructors, most recently pushed first, until
// the stack is empty. Destructors are popped before they run, so a
// destructor that itself calls Raise never re-enters its own unlinking.
func (c *Context) ReleaseAll() {
	for len(c.stack) > 0 {
		n := len(c.stack) - 1
		dtor := c.stack[n]
		c.stack = c.stack[:n]
		dtor()
	}
}

// ReleaseTo unwinds the stack back to the depth recorded by m, without
// releasing resources pushed before m.
func (c *Context) ReleaseTo(m Marker) {
	for len(c.stack) > int(m) {
		n := len(c.stack) - 1
		dtor := c.stack[n]
		c.stack = c.stack[:n]
		dtor()
	}
}

// Raise latches msg as the context's error message if no error has been
// latched yet, sets rollback, releases every registered resource, and
// returns a *LatchedError carrying the (possibly earlier) latched message.
func (c *Context) Raise(msg string) error {
	if !c.rollback {
		c.message = msg
		c.rollback = true
	}
	c.ReleaseAll()
	return &LatchedError{Message: c.message}
}

// Raisef is Raise with fmt.Sprintf-style formatting.
func (c *Context) Raisef(format string, args ...any) error {
	return c.Raise(fmt.Sprintf(format, args...))
}

// Rollback reports whether an error has been latched on this context.
func (c *Context) Rollback() bool {
	return c.rollback
}

// Message returns the latched error message, or "" if none has latched.
func (c *Context) Message() string {
	return c.message
}

package client

// Kind classifies a user-visible signal.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Surface is the text-editing view the session drives. Apply replaces the
// whole document; the surface must not re-raise a local-change notification
// for text applied through it.
type Surface interface {
	Apply(code string)
}

// Notifier receives user-visible join/leave/error signals (toasts, terminal
// lines, whatever the view renders them as).
type Notifier interface {
	Signal(kind Kind, message string)
}

// SurfaceFunc adapts a function to the Surface interface.
type SurfaceFunc func(code string)

// Apply implements Surface.
func (f SurfaceFunc) Apply(code string) { f(code) }

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(kind Kind, message string)

// Signal implements Notifier.
func (f NotifierFunc) Signal(kind Kind, message string) { f(kind, message) }

// Package dispatch defines the contract between the command pipeline and the
// domain handlers that execute commands (navigation, valuation, workflows,
// coding assistance). The pipeline never inspects handler internals; it only
// interprets the tagged Error kinds a handler may return.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"parcelvoice/internal/models"
)

// ErrorKind discriminates handler failures into the recovery paths the
// pipeline understands. Anything else is treated as KindOther.
type ErrorKind string

const (
	KindPermission       ErrorKind = "permission"
	KindRateLimit        ErrorKind = "rate_limit"
	KindInvalidParameter ErrorKind = "invalid_parameter"
	KindOther            ErrorKind = "other"
)

// Error is a tagged handler failure.
type Error struct {
	Kind        ErrorKind
	Message     string
	Permission  string   // KindPermission: the permission the caller lacks
	Param       string   // KindInvalidParameter: the offending parameter
	Value       string   // KindInvalidParameter: the offending value
	ValidValues []string // KindInvalidParameter: accepted values, when known
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("handler error (%s)", e.Kind)
}

// Request is the uniform input every domain handler receives.
type Request struct {
	Command     string
	CommandType models.CommandType
	Intent      string
	Parameters  map[string]string
	Context     models.CommandContext
}

// Response is the uniform output of a handler invocation. Success false with
// a nil error is a declined command: the pipeline reports it as failed using
// Message, without a tagged error kind.
type Response struct {
	Success     bool        `json:"success"`
	Result      interface{} `json:"result,omitempty"`
	Message     string      `json:"message,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

// Handler executes one command type.
type Handler interface {
	Handle(ctx context.Context, req Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req Request) (*Response, error)

func (f HandlerFunc) Handle(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Registry maps command types to their handlers. Handlers are injected at
// startup; a command type with no registered handler is reported as
// not recognized by the pipeline.
type Registry struct {
	mu       sync.RWMutex
	handlers map[models.CommandType]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[models.CommandType]Handler)}
}

// Register attaches a handler for a command type, replacing any previous one.
func (r *Registry) Register(ct models.CommandType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[ct] = h
}

// Resolve returns the handler for a command type, if one is registered.
func (r *Registry) Resolve(ct models.CommandType) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[ct]
	return h, ok
}

// Noop returns the stub handler wired in when a real domain handler is not
// available in this deployment. It fails every request with a KindOther error
// so callers get recovery guidance instead of a silent fake success.
func Noop() Handler {
	return HandlerFunc(func(ctx context.Context, req Request) (*Response, error) {
		return nil, &Error{
			Kind:    KindOther,
			Message: fmt.Sprintf("no %s handler is available in this deployment", req.CommandType),
		}
	})
}

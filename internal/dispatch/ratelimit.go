package dispatch

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimited wraps a handler with a per-user token bucket. When a user
// exceeds the limit the wrapped handler is not invoked and a KindRateLimit
// error is returned; the pipeline advises the caller to retry later and
// performs no automatic retry itself.
func RateLimited(h Handler, perSecond float64, burst int) Handler {
	if burst < 1 {
		burst = 1
	}
	rl := &rateLimitedHandler{
		inner:     h,
		perSecond: perSecond,
		burst:     burst,
	}
	return rl
}

type rateLimitedHandler struct {
	inner     Handler
	perSecond float64
	burst     int
	limiters  sync.Map // user id (string) -> *rate.Limiter
}

func (h *rateLimitedHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	limiter := h.limiterFor(strconv.Itoa(req.Context.UserID))
	if !limiter.Allow() {
		return nil, &Error{
			Kind:    KindRateLimit,
			Message: "too many commands, please wait a moment and try again",
		}
	}
	return h.inner.Handle(ctx, req)
}

func (h *rateLimitedHandler) limiterFor(key string) *rate.Limiter {
	if v, ok := h.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rate.Limit(h.perSecond), h.burst)
	actual, _ := h.limiters.LoadOrStore(key, limiter)
	return actual.(*rate.Limiter)
}

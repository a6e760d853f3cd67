package reasoning

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// HandlerFunc represents a function that processes one reasoning request.
type HandlerFunc func(ctx context.Context, req Request) (*Response, error)

// Middleware wraps a HandlerFunc with additional functionality.
// Middleware are applied in order: Chain(m1, m2, m3) results in m1(m2(m3(handler))).
type Middleware func(HandlerFunc) HandlerFunc

// Chain composes multiple middleware into a single HandlerFunc.
func Chain(handler HandlerFunc, middlewares ...Middleware) HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

func engineHandlerFunc(e Engine) HandlerFunc {
	return func(ctx context.Context, req Request) (*Response, error) {
		return e.Complete(ctx, req)
	}
}

// EngineWithMiddleware wraps an Engine with a middleware chain.
type EngineWithMiddleware struct {
	handler HandlerFunc
}

// NewEngineWithMiddleware creates a new engine with middleware support.
func NewEngineWithMiddleware(e Engine, middlewares ...Middleware) *EngineWithMiddleware {
	return &EngineWithMiddleware{
		handler: Chain(engineHandlerFunc(e), middlewares...),
	}
}

func (e *EngineWithMiddleware) Complete(ctx context.Context, req Request) (*Response, error) {
	return e.handler(ctx, req)
}

// NewTimeoutMiddleware bounds every call with a deadline. A timed-out call
// surfaces context.DeadlineExceeded, which IsTransient reports as retryable,
// so a stalled backend goes back through the retry policy instead of hanging
// the caller. A non-positive duration disables the deadline.
func NewTimeoutMiddleware(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (*Response, error) {
			if d <= 0 {
				return next(ctx, req)
			}
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}

// NewLoggingMiddleware logs request and response details around each call.
func NewLoggingMiddleware(logger zerolog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (*Response, error) {
			lg := logger.With().
				Str("session_id", SessionIDFromContext(ctx)).
				Str("model", req.Model).
				Int("prompt_len", len(req.Prompt)).
				Logger()

			lg.Debug().Msg("reasoning: starting call")

			resp, err := next(ctx, req)
			if err != nil {
				lg.Error().Err(err).Bool("transient", IsTransient(err)).Msg("reasoning: call failed")
				return resp, err
			}

			lg.Debug().
				Int("response_len", len(resp.Text)).
				Int("input_tokens", resp.Usage.InputTokens).
				Int("output_tokens", resp.Usage.OutputTokens).
				Msg("reasoning: call completed")
			return resp, nil
		}
	}
}

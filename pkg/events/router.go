package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Router wires an in-process gochannel pub/sub with a watermill message
// router. The orchestrator publishes to it; progress displays subscribe.
type Router struct {
	logger     watermill.LoggerAdapter
	Publisher  message.Publisher
	Subscriber message.Subscriber
	router     *message.Router
}

type RouterOption func(*Router)

func WithLogger(logger watermill.LoggerAdapter) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

func WithZerolog(logger zerolog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = &watermillZerologAdapter{logger: logger}
	}
}

func NewRouter(options ...RouterOption) (*Router, error) {
	ret := &Router{
		logger: watermill.NopLogger{},
	}
	for _, o := range options {
		o(ret)
	}

	goPubSub := gochannel.NewGoChannel(gochannel.Config{}, ret.logger)
	ret.Publisher = goPubSub
	ret.Subscriber = goPubSub

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, err
	}
	ret.router = router

	return ret, nil
}

// AddStageHandler registers a handler invoked for every StageEvent.
func (r *Router) AddStageHandler(name string, f func(ctx context.Context, ev *StageEvent) error) {
	r.router.AddNoPublisherHandler(name, StageTopic, r.Subscriber, func(msg *message.Message) error {
		ev, err := ParseStageEvent(msg)
		if err != nil {
			// malformed events are dropped, not redelivered forever
			log.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping unparseable stage event")
			return nil
		}
		return f(msg.Context(), ev)
	})
}

// Run starts the router and blocks until ctx is cancelled.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel closed once the router is running and handlers
// are receiving.
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

func (r *Router) Close() error {
	if err := r.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close publisher")
	}
	return r.router.Close()
}

// watermillZerologAdapter forwards watermill's internal logging to zerolog.
type watermillZerologAdapter struct {
	logger zerolog.Logger
}

func (w *watermillZerologAdapter) Error(msg string, err error, fields watermill.LogFields) {
	w.logger.Error().Fields(map[string]interface{}(fields)).Err(err).Msg(msg)
}

func (w *watermillZerologAdapter) Info(msg string, fields watermill.LogFields) {
	// map INFO to DEBUG because watermill is chatty
	w.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w *watermillZerologAdapter) Debug(msg string, fields watermill.LogFields) {
	w.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w *watermillZerologAdapter) Trace(msg string, fields watermill.LogFields) {
	w.logger.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w *watermillZerologAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	l := w.logger.With().Fields(map[string]interface{}(fields)).Logger()
	return &watermillZerologAdapter{logger: l}
}

package consumer

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type.
type Option func(interface{})

// ApplyOpts takes a pointer to an options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		o(opts)
	}
}

// consumerOptions is the set of available options for NewConsumer.
type consumerOptions struct {
	withLogger      hclog.Logger
	withNow         func() time.Time
	withTokenClient TokenClient
	withPersister   RequestPersister
}

func consumerDefaults() consumerOptions {
	return consumerOptions{
		withLogger: hclog.NewNullLogger(),
		withNow:    time.Now,
	}
}

func getConsumerOpts(opt ...Option) consumerOptions {
	opts := consumerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger for the consumer. When none is
// provided a no-op logger is used.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*consumerOptions); ok {
			o.withLogger = l
		}
	}
}

// WithNow provides an optional time source, used when deriving session
// identifiers. Mostly useful for testing.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*consumerOptions); ok {
			o.withNow = now
		}
	}
}

// WithTokenClient provides an optional token/grant client capability. When
// none is provided the consumer uses a GrantClient built from its config.
func WithTokenClient(tc TokenClient) Option {
	return func(o interface{}) {
		if o, ok := o.(*consumerOptions); ok {
			o.withTokenClient = tc
		}
	}
}

// WithRequestPersister provides an optional persister for by-reference
// request delivery. When none is provided and the config selects file
// delivery, a FileRequestPersister is built from the config.
func WithRequestPersister(p RequestPersister) Option {
	return func(o interface{}) {
		if o, ok := o.(*consumerOptions); ok {
			o.withPersister = p
		}
	}
}

// beginOptions is the set of available options for Begin.
type beginOptions struct {
	withScopes       []string
	withResponseType string
}

func beginDefaults() beginOptions {
	return beginOptions{}
}

func getBeginOpts(opt ...Option) beginOptions {
	opts := beginDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScopes overrides the configured scopes for a single Begin call.
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*beginOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithResponseType overrides the configured response type for a single
// Begin call.
func WithResponseType(responseType string) Option {
	return func(o interface{}) {
		if o, ok := o.(*beginOptions); ok {
			o.withResponseType = responseType
		}
	}
}

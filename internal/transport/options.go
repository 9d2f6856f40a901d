package transport

import (
	"time"

	"go.uber.org/zap"

	"github.com/storekit/thermalprint/internal/escpos"
	"github.com/storekit/thermalprint/internal/registry"
)

type options struct {
	logger      *zap.Logger
	encoder     *escpos.Encoder
	registry    *registry.Registry
	httpTimeout time.Duration
}

// Option configures a driver
type Option func(*options)

// WithLogger sets the driver logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEncoder replaces the default 80 mm UTF-8 encoder
func WithEncoder(enc *escpos.Encoder) Option {
	return func(o *options) {
		if enc != nil {
			o.encoder = enc
		}
	}
}

// WithRegistry remembers connected devices so they can be restored without prompting
func WithRegistry(reg *registry.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithHTTPTimeout bounds each request made by the network driver
func WithHTTPTimeout(d time.Duration) Option {
	return func(o *options) {
		o.httpTimeout = d
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:      zap.NewNop(),
		encoder:     escpos.NewEncoder(),
		httpTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

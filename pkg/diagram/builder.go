package diagram

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// IDFunc generates cell and threat ids.
type IDFunc func() string

// Builder runs the per-diagram stages. A Builder has no mutable state after
// construction and may be shared between goroutines as long as its IDFunc
// and logger are safe for concurrent use (the defaults are).
type Builder struct {
	newID  IDFunc
	logger *log.Logger
	layout LayoutOptions
}

// Option configures a Builder.
type Option func(*Builder)

// WithIDFunc replaces the default UUID v4 generator.
func WithIDFunc(f IDFunc) Option {
	return func(b *Builder) {
		if f != nil {
			b.newID = f
		}
	}
}

// WithLogger sets the logger used for lookup misses.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithLayoutOptions overrides the layout constants.
func WithLayoutOptions(opts LayoutOptions) Option {
	return func(b *Builder) { b.layout = opts.withDefaults() }
}

// NewBuilder returns a Builder with UUID ids, a discarding logger and
// [DefaultLayoutOptions].
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		newID:  uuid.NewString,
		logger: log.New(io.Discard),
		layout: DefaultLayoutOptions(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// LayoutOptions returns the layout constants in effect.
func (b *Builder) LayoutOptions() LayoutOptions { return b.layout }

package treadwell

import (
	"io"

	"dario.cat/mergo"

	"github.com/kixxauth/treadwell/internal/logging"
	"github.com/kixxauth/treadwell/internal/merge"
)

// Logger is the leveled logger handed to every run.
type Logger = logging.Logger

// Options configure a Runner. Base options are given to Create; Run layers
// its own options on top of them for a single run.
type Options struct {
	Logging logging.Config
	// Values seed the result container before the root task starts.
	Values map[string]any
}

// Option mutates Options.
type Option func(*Options)

// WithLogLevel sets the minimum level logged (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(o *Options) { o.Logging.Level = level }
}

// WithLogFormat selects console or json output.
func WithLogFormat(format string) Option {
	return func(o *Options) { o.Logging.Format = format }
}

// WithLogOutput redirects log output.
func WithLogOutput(w io.Writer) Option {
	return func(o *Options) { o.Logging.Output = w }
}

// WithLoggerName names the run logger.
func WithLoggerName(name string) Option {
	return func(o *Options) { o.Logging.Name = name }
}

// WithValue seeds key in the result container of each run.
func WithValue(key string, value any) Option {
	return func(o *Options) {
		if o.Values == nil {
			o.Values = map[string]any{}
		}
		o.Values[key] = value
	}
}

// WithOptions replaces the options wholesale.
func WithOptions(opts Options) Option {
	return func(o *Options) { *o = opts.clone() }
}

func buildOptions(opts []Option) Options {
	var out Options
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}
	return out
}

func (o Options) clone() Options {
	out := o
	if o.Values != nil {
		out.Values = make(map[string]any, len(o.Values))
		for key, value := range o.Values {
			out.Values[key] = value
		}
	}
	return out
}

// layerOptions merges override onto base without touching either. Non-empty
// logging fields of override win; Values deep-merge key by key.
func layerOptions(base, override Options) (Options, error) {
	logs := base.Logging
	logs.Output = nil
	top := override.Logging
	top.Output = nil
	if err := mergo.Merge(&logs, top, mergo.WithOverride); err != nil {
		return Options{}, err
	}
	logs.Output = base.Logging.Output
	if override.Logging.Output != nil {
		logs.Output = override.Logging.Output
	}
	out := Options{Logging: logs}
	if len(base.Values) > 0 || len(override.Values) > 0 {
		out.Values = merge.Into(merge.Into(nil, base.Values), override.Values)
	}
	return out, nil
}

package auth

import "github.com/keys-pub/keys/tsutil"

// Options for DB.
type Options struct {
	Clock tsutil.Clock
	KDF   KDF
}

// Option for DB.
type Option func(*Options)

func newOptions(opts ...Option) *Options {
	options := &Options{
		Clock: tsutil.NewClock(),
		KDF:   DefaultKDF,
	}
	for _, o := range opts {
		o(options)
	}
	return options
}

// WithClock ...
func WithClock(clock tsutil.Clock) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}

// WithKDF sets the Argon2id cost for new password slots.
func WithKDF(kdf KDF) Option {
	return func(o *Options) {
		o.KDF = kdf
	}
}

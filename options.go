package diary

import (
	"github.com/keys-pub/diary/auth"
	"github.com/keys-pub/diary/backup"
	"github.com/keys-pub/diary/migrate"
	"github.com/keys-pub/keys/tsutil"
)

// Options for Diary.
type Options struct {
	Clock      tsutil.Clock
	KDF        auth.KDF
	Migrator   *migrate.Migrator
	BackupsDir string
	MaxBackups int
}

// Option for Diary.
type Option func(*Options)

func newOptions(opts ...Option) *Options {
	options := &Options{
		Clock:      tsutil.NewClock(),
		KDF:        auth.DefaultKDF,
		MaxBackups: backup.DefaultMax,
	}
	for _, o := range opts {
		o(options)
	}
	if options.Migrator == nil {
		options.Migrator = migrate.Default()
	}
	return options
}

// WithClock ...
func WithClock(clock tsutil.Clock) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}

// WithKDF sets Argon2id cost for new password slots.
func WithKDF(kdf auth.KDF) Option {
	return func(o *Options) {
		o.KDF = kdf
	}
}

// WithMigrator overrides the schema migrations run on unlock.
func WithMigrator(m *migrate.Migrator) Option {
	return func(o *Options) {
		o.Migrator = m
	}
}

// WithBackups enables backups into dir, keeping at most max.
// Backups are taken after each unlock and before legacy migrations.
func WithBackups(dir string, max int) Option {
	return func(o *Options) {
		o.BackupsDir = dir
		if max > 0 {
			o.MaxBackups = max
		}
	}
}

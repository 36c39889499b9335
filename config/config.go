// Package config is the TOML configuration for the diary CLI.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/keys-pub/diary/auth"
	"github.com/keys-pub/diary/backup"
	"github.com/pkg/errors"
)

// Config for diaries.
type Config struct {
	LogLevel   string    `toml:"log_level"`
	BackupsDir string    `toml:"backups_dir"`
	MaxBackups int       `toml:"max_backups"`
	KDF        KDF       `toml:"kdf"`
	Active     string    `toml:"active_journal"`
	Journals   []Journal `toml:"journals"`
}

// KDF cost for new password slots.
type KDF struct {
	MemoryKiB   uint32 `toml:"memory_kib"`
	Iterations  uint32 `toml:"iterations"`
	Parallelism uint8  `toml:"parallelism"`
}

// Journal is a named diary file.
type Journal struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// ErrJournalNotFound if no journal has the id.
var ErrJournalNotFound = errors.New("journal not found")

// Default config.
func Default() *Config {
	return &Config{
		LogLevel:   "warn",
		MaxBackups: backup.DefaultMax,
		KDF: KDF{
			MemoryKiB:   auth.DefaultKDF.Memory,
			Iterations:  auth.DefaultKDF.Iterations,
			Parallelism: auth.DefaultKDF.Parallelism,
		},
		Journals: []Journal{},
	}
}

// Load config from path.
// A missing file returns Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save config to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.Wrapf(err, "failed to save config")
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to save config")
	}
	return f.Close()
}

// Validate config.
func (c *Config) Validate() error {
	if err := c.AuthKDF().Validate(); err != nil {
		return err
	}
	if c.MaxBackups < 0 {
		return errors.Errorf("invalid max_backups %d", c.MaxBackups)
	}
	if c.Active != "" {
		if _, err := c.Journal(c.Active); err != nil {
			return errors.Errorf("active journal %s not found", c.Active)
		}
	}
	return nil
}

// AuthKDF returns the KDF cost.
func (c *Config) AuthKDF() auth.KDF {
	return auth.KDF{
		Memory:      c.KDF.MemoryKiB,
		Iterations:  c.KDF.Iterations,
		Parallelism: c.KDF.Parallelism,
	}
}

// Journal by id.
func (c *Config) Journal(id string) (*Journal, error) {
	for i := range c.Journals {
		if c.Journals[i].ID == id {
			return &c.Journals[i], nil
		}
	}
	return nil, ErrJournalNotFound
}

// ActiveJournal returns the active journal, or nil if none.
func (c *Config) ActiveJournal() *Journal {
	if c.Active == "" {
		return nil
	}
	j, err := c.Journal(c.Active)
	if err != nil {
		return nil
	}
	return j
}

// AddJournal adds a journal and makes it active if it is the only one.
func (c *Config) AddJournal(name string, path string) (*Journal, error) {
	if name == "" {
		return nil, errors.Errorf("empty journal name")
	}
	if path == "" {
		return nil, errors.Errorf("empty journal path")
	}
	for _, j := range c.Journals {
		if j.Path == path {
			return nil, errors.Errorf("journal already exists for %s", path)
		}
	}
	j := Journal{ID: uuid.New().String(), Name: name, Path: path}
	c.Journals = append(c.Journals, j)
	if c.Active == "" {
		c.Active = j.ID
	}
	return &j, nil
}

// RemoveJournal removes a journal from the list (the diary file is kept).
// Removing the last journal is allowed.
func (c *Config) RemoveJournal(id string) error {
	for i, j := range c.Journals {
		if j.ID != id {
			continue
		}
		c.Journals = append(c.Journals[:i], c.Journals[i+1:]...)
		if c.Active == id {
			c.Active = ""
			if len(c.Journals) > 0 {
				c.Active = c.Journals[0].ID
			}
		}
		return nil
	}
	return ErrJournalNotFound
}

// RenameJournal changes a journal name.
func (c *Config) RenameJournal(id string, name string) error {
	if name == "" {
		return errors.Errorf("empty journal name")
	}
	j, err := c.Journal(id)
	if err != nil {
		return err
	}
	j.Name = name
	return nil
}

// MoveJournal updates the path of journals at from to to, after the diary
// file has moved. Returns the number of journals updated.
func (c *Config) MoveJournal(from string, to string) int {
	n := 0
	for i := range c.Journals {
		if c.Journals[i].Path == from {
			c.Journals[i].Path = to
			n++
		}
	}
	return n
}

// SetActive journal.
func (c *Config) SetActive(id string) error {
	if _, err := c.Journal(id); err != nil {
		return err
	}
	c.Active = id
	return nil
}

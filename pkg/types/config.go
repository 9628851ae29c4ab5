package types

import (
	"errors"
	"strings"
)

// Config holds backend selection and parameters for Registry.Attach.
type Config struct {
	Backend     string `json:"backend" yaml:"backend"`
	DataDir     string `json:"data_dir" yaml:"data_dir"`
	FileName    string `json:"file_name" yaml:"file_name"`
	InMemory    bool   `json:"in_memory" yaml:"in_memory"`
	BusyTimeout int    `json:"busy_timeout" yaml:"busy_timeout"` // milliseconds
	JournalMode string `json:"journal_mode" yaml:"journal_mode"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultFileName is the store file created inside DataDir when FileName is empty.
const DefaultFileName = "store.db"

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrJournalModeUnknown = errors.New("unknown journal mode")
	ErrBusyTimeoutInvalid = errors.New("busy timeout must not be negative")
	ErrFileNameInvalid    = errors.New("file name must not contain a path separator")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// knownJournalModes lists the SQLite journal modes Validate accepts.
var knownJournalModes = map[string]bool{
	"delete":   true,
	"truncate": true,
	"persist":  true,
	"memory":   true,
	"wal":      true,
	"off":      true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.JournalMode != "" && !knownJournalModes[strings.ToLower(c.JournalMode)] {
		return ErrJournalModeUnknown
	}
	if c.BusyTimeout < 0 {
		return ErrBusyTimeoutInvalid
	}
	if strings.ContainsAny(c.FileName, `/\`) {
		return ErrFileNameInvalid
	}
	return nil
}

// StoreFile returns the store file name, falling back to DefaultFileName.
func (c Config) StoreFile() string {
	if c.FileName == "" {
		return DefaultFileName
	}
	return c.FileName
}

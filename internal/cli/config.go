package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/typedsql/internal/paths"
	"github.com/mesh-intelligence/typedsql/internal/schemafile"
	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/sqlite"
	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// Config keys in config.yaml.
const (
	cfgKeyBackend     = "backend"
	cfgKeyDataDir     = "data_dir"
	cfgKeyFileName    = "file_name"
	cfgKeySchema      = "schema"
	cfgKeyBusyTimeout = "busy_timeout"
	cfgKeyJournalMode = "journal_mode"

	envSchema = "TYPEDSQL_SCHEMA"
)

var errNoSchema = errors.New("no schema file: pass --schema or set schema in config.yaml")

// settings is the resolved content of config.yaml.
type settings struct {
	configDir   string
	backend     string
	dataDir     string
	fileName    string
	schema      string
	busyTimeout int
	journalMode string
}

// configFile is the document written by init.
type configFile struct {
	Backend     string `yaml:"backend"`
	DataDir     string `yaml:"data_dir,omitempty"`
	Schema      string `yaml:"schema,omitempty"`
	BusyTimeout int    `yaml:"busy_timeout"`
	JournalMode string `yaml:"journal_mode"`
}

// loadSettings reads config.yaml from the resolved config directory. A
// missing file yields the defaults.
func loadSettings(configDirFlag string) (settings, error) {
	dir, err := paths.ResolveConfigDir(configDirFlag)
	if err != nil {
		return settings{}, fmt.Errorf("resolve config dir: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyBusyTimeout, 5000)
	v.SetDefault(cfgKeyJournalMode, "wal")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.BindEnv(cfgKeySchema, envSchema); err != nil {
		return settings{}, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	s := settings{
		configDir:   dir,
		backend:     v.GetString(cfgKeyBackend),
		dataDir:     v.GetString(cfgKeyDataDir),
		fileName:    v.GetString(cfgKeyFileName),
		schema:      v.GetString(cfgKeySchema),
		busyTimeout: v.GetInt(cfgKeyBusyTimeout),
		journalMode: v.GetString(cfgKeyJournalMode),
	}
	// A relative schema path in config.yaml is relative to the file itself.
	if s.schema != "" && !filepath.IsAbs(s.schema) && v.ConfigFileUsed() != "" {
		s.schema = filepath.Join(dir, s.schema)
	}
	return s, nil
}

// writeConfigIfMissing creates config.yaml from cfg. An existing file is left
// untouched.
func writeConfigIfMissing(path string, cfg configFile) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// storeConfig builds the Attach configuration from flags and settings.
func (a *app) storeConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.config.dataDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := types.Config{
		Backend:     a.config.backend,
		DataDir:     dataDir,
		FileName:    a.config.fileName,
		BusyTimeout: a.config.busyTimeout,
		JournalMode: a.config.journalMode,
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("config.yaml: %w", err)
	}
	return cfg, nil
}

// schemaPath returns the schema file named by flag or config, or "".
func (a *app) schemaPath() string {
	if a.flags.schemaPath != "" {
		return a.flags.schemaPath
	}
	return a.config.schema
}

// loadSchema reads the schema file. It fails with errNoSchema when none is
// configured.
func (a *app) loadSchema() (schema.Schema, error) {
	path := a.schemaPath()
	if path == "" {
		return schema.Schema{}, errNoSchema
	}
	return schemafile.Load(path)
}

// attach loads the schema and returns an attached registry. The caller must
// Detach it.
func (a *app) attach() (*sqlite.Registry, error) {
	s, err := a.loadSchema()
	if err != nil {
		return nil, err
	}
	return a.attachSchema(s)
}

func (a *app) attachSchema(s schema.Schema) (*sqlite.Registry, error) {
	cfg, err := a.storeConfig()
	if err != nil {
		return nil, err
	}
	reg, err := sqlite.NewRegistry(s, sqlite.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	if err := reg.Attach(cfg); err != nil {
		return nil, sysError(err)
	}
	return reg, nil
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/typedsql/internal/paths"
	"github.com/mesh-intelligence/typedsql/pkg/schema"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write config.yaml and create the store",
		Long: "Create the configuration directory with a default config.yaml, then attach\n" +
			"the store once so its file and declared tables exist. Without a schema file\n" +
			"only the empty store is created.",
		Args: cobra.NoArgs,
		RunE: a.runInit,
	}
}

type initReport struct {
	ConfigFile    string   `json:"config_file"`
	ConfigWritten bool     `json:"config_written"`
	Store         string   `json:"store"`
	Tables        []string `json:"tables"`
}

func (a *app) runInit(cmd *cobra.Command, args []string) error {
	dir := a.config.configDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sysError(fmt.Errorf("create config directory: %w", err))
	}

	schemaFile := a.schemaPath()
	if schemaFile != "" {
		abs, err := filepath.Abs(schemaFile)
		if err != nil {
			return err
		}
		schemaFile = abs
	}
	configPath := paths.ConfigFile(dir)
	written, err := writeConfigIfMissing(configPath, configFile{
		Backend:     a.config.backend,
		DataDir:     a.flags.dataDir,
		Schema:      schemaFile,
		BusyTimeout: a.config.busyTimeout,
		JournalMode: a.config.journalMode,
	})
	if err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}

	s, err := a.loadSchema()
	if errors.Is(err, errNoSchema) {
		s, err = schema.Schema{}, nil
	}
	if err != nil {
		return err
	}
	reg, err := a.attachSchema(s)
	if err != nil {
		return err
	}
	cfg := reg.Config()
	if err := reg.Detach(); err != nil {
		return sysError(fmt.Errorf("finalize store: %w", err))
	}

	report := initReport{
		ConfigFile:    configPath,
		ConfigWritten: written,
		Store:         filepath.Join(cfg.DataDir, cfg.StoreFile()),
		Tables:        tableNames(s),
	}
	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return json.NewEncoder(out).Encode(report)
	}
	fmt.Fprintln(out, "typedsql initialized")
	fmt.Fprintln(out, "  config:", report.ConfigFile)
	fmt.Fprintln(out, "  store: ", report.Store)
	fmt.Fprintln(out, "  tables:", len(report.Tables))
	return nil
}

func tableNames(s schema.Schema) []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name())
	}
	return names
}

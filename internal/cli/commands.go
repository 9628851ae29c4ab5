package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/typedsql/pkg/expr"
	"github.com/mesh-intelligence/typedsql/pkg/query"
	"github.com/mesh-intelligence/typedsql/pkg/schema"
	"github.com/mesh-intelligence/typedsql/pkg/sqlite"
)

func (a *app) newDDLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ddl",
		Short: "Print the CREATE statements of the schema file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSchema()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return json.NewEncoder(out).Encode(s.DDL())
			}
			for _, stmt := range s.DDL() {
				fmt.Fprintln(out, stmt+";")
			}
			return nil
		},
	}
}

type tableInfo struct {
	Name       string       `json:"name"`
	Columns    []columnInfo `json:"columns"`
	PrimaryKey []string     `json:"primary_key,omitempty"`
}

type columnInfo struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	NotNull bool   `json:"not_null,omitempty"`
	Unique  bool   `json:"unique,omitempty"`
}

func describeTable(t *schema.Table) tableInfo {
	info := tableInfo{Name: t.Name()}
	for _, c := range t.Columns() {
		info.Columns = append(info.Columns, columnInfo{
			Name:    c.Name(),
			Kind:    c.Kind().String(),
			NotNull: c.IsNotNull(),
			Unique:  c.IsUnique(),
		})
	}
	for _, c := range t.PrimaryKey() {
		info.PrimaryKey = append(info.PrimaryKey, c.Name())
	}
	return info
}

func (a *app) newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the declared tables and their columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSchema()
			if err != nil {
				return err
			}
			infos := make([]tableInfo, 0, len(s.Tables))
			for _, t := range s.Tables {
				infos = append(infos, describeTable(t))
			}

			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			for _, info := range infos {
				cols := make([]string, 0, len(info.Columns))
				for _, c := range info.Columns {
					cols = append(cols, c.Name+" "+c.Kind)
				}
				fmt.Fprintf(out, "%s(%s)\n", info.Name, strings.Join(cols, ", "))
			}
			return nil
		},
	}
}

// withTable attaches the store and resolves the named table for fn.
func (a *app) withTable(name string, fn func(*sqlite.Registry, *schema.Table) error) error {
	reg, err := a.attach()
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.Detach(); err != nil {
			a.logger.Warn("detach failed", "error", err)
		}
	}()

	t, err := reg.Table(name)
	if err != nil {
		return fmt.Errorf("%w (declared: %s)", err, strings.Join(tableNames(reg.Schema()), ", "))
	}
	return fn(reg, t)
}

func (a *app) newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count <table>",
		Short: "Print the number of rows in a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTable(args[0], func(reg *sqlite.Registry, t *schema.Table) error {
				row, err := reg.QueryRow(cmd.Context(), query.Select(expr.CountAll()).From(t))
				if err != nil {
					return sysError(err)
				}
				out := cmd.OutOrStdout()
				if a.flags.jsonMode {
					return json.NewEncoder(out).Encode(map[string]any{"table": t.Name(), "rows": row[0].Int()})
				}
				fmt.Fprintln(out, row[0].Int())
				return nil
			})
		},
	}
}

func (a *app) newDumpCmd() *cobra.Command {
	var (
		limit  int64
		output string
	)
	cmd := &cobra.Command{
		Use:   "dump <table>",
		Short: "Write the rows of a table as JSON lines",
		Long: "Dump writes one JSON object per row, keyed by column name and ordered by\n" +
			"the primary key when the table declares one. Blobs are base64 strings.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			return a.withTable(args[0], func(reg *sqlite.Registry, t *schema.Table) error {
				sel := dumpQuery(t, limit)
				var (
					n   int64
					err error
				)
				if output != "" {
					n, err = reg.ExportJSONLFile(cmd.Context(), output, sel)
				} else {
					n, err = reg.ExportJSONL(cmd.Context(), cmd.OutOrStdout(), sel)
				}
				if err != nil {
					return sysError(err)
				}
				a.logger.Info("dumped", "table", t.Name(), "rows", n)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&limit, "limit", 0, "maximum number of rows (0 for all)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func dumpQuery(t *schema.Table, limit int64) query.SelectStmt {
	cols := make([]any, 0, len(t.Columns()))
	for _, c := range t.Columns() {
		cols = append(cols, c)
	}
	sel := query.Select(cols...).From(t)
	if pk := t.PrimaryKey(); len(pk) > 0 {
		order := make([]expr.Order, 0, len(pk))
		for _, c := range pk {
			order = append(order, expr.Asc(c))
		}
		sel = sel.OrderBy(order...)
	}
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	return sel
}

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <table> <file.jsonl>",
		Short: "Insert JSON lines into a table in one transaction",
		Long: "Import reads one JSON object per line and inserts the rows atomically.\n" +
			"Keys name columns case-insensitively and a missing key takes the column\n" +
			"default. Unknown keys, blank lines and lines that are not objects are\n" +
			"skipped. Use - to read stdin.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return a.withTable(args[0], func(reg *sqlite.Registry, t *schema.Table) error {
				n, err := reg.ImportJSONL(cmd.Context(), t, in)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if a.flags.jsonMode {
					return json.NewEncoder(out).Encode(map[string]any{"table": t.Name(), "imported": n})
				}
				fmt.Fprintf(out, "imported %d rows into %s\n", n, t.Name())
				return nil
			})
		},
	}
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/virtualrow/internal/catalog"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	Catalog string
}

// TableSummary describes one catalog table.
type TableSummary struct {
	Name         string               `json:"name"`
	PrimaryKey   string               `json:"primary_key"`
	Columns      []string             `json:"columns"`
	Associations []AssociationSummary `json:"associations,omitempty"`
}

// AssociationSummary describes one association.
type AssociationSummary struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Table      string `json:"table"`
	ForeignKey string `json:"foreign_key"`
	Alias      string `json:"alias,omitempty"`
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show the tables, columns and associations of a catalog",
		Long: `Load a catalog and print what virtual rows can resolve against it.

The file kind is chosen by extension: .cue, .yaml/.yml, or a SQLite
database (.db, .sqlite, .sqlite3) whose foreign keys become associations.

Example:
  vrow catalog --catalog blog.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Catalog, "catalog", "c", "", "catalog file (required)")
	_ = cmd.MarkFlagRequired("catalog")
	return cmd
}

func runCatalog(opts *CatalogOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	schema, err := loadCatalog(cmd.Context(), opts.Catalog)
	if err != nil {
		return reportError(formatter, err)
	}

	summaries := summarize(schema)
	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	fmt.Fprintf(formatter.Writer, "✓ Loaded %d table(s)\n\n", len(summaries))
	for _, t := range summaries {
		fmt.Fprintf(formatter.Writer, "%s (primary key %s)\n", t.Name, t.PrimaryKey)
		fmt.Fprintf(formatter.Writer, "  columns: %s\n", strings.Join(t.Columns, ", "))
		for _, a := range t.Associations {
			target := a.Table
			if a.Alias != "" {
				target += " as " + a.Alias
			}
			fmt.Fprintf(formatter.Writer, "  %s %s → %s (%s)\n", a.Kind, a.Name, target, a.ForeignKey)
		}
	}
	return nil
}

func summarize(schema *catalog.Schema) []TableSummary {
	tables := schema.Tables()
	out := make([]TableSummary, 0, len(tables))
	for _, t := range tables {
		summary := TableSummary{
			Name:       t.Name,
			PrimaryKey: t.PrimaryKey,
			Columns:    make([]string, 0, len(t.Columns)),
		}
		for _, c := range t.Columns {
			summary.Columns = append(summary.Columns, c.Name)
		}
		for _, a := range t.Associations {
			summary.Associations = append(summary.Associations, AssociationSummary{
				Name:       a.Name,
				Kind:       string(a.Kind),
				Table:      a.Table,
				ForeignKey: a.ForeignKey,
				Alias:      a.Alias,
			})
		}
		out = append(out, summary)
	}
	return out
}

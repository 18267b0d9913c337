package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// QueryOptions holds flags for commands that evaluate a query document.
type QueryOptions struct {
	*RootOptions
	Catalog string // catalog file (.cue, .yaml, .yml, .db, .sqlite, .sqlite3)
	Query   string // query document (.yaml)
}

// RefsResult lists the tables a query references.
type RefsResult struct {
	Table      string   `json:"table"`
	References []string `json:"references"` // visit order, duplicates kept
	Tables     []string `json:"tables"`     // first occurrence of each name
}

// NewRefsCommand creates the refs command.
func NewRefsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "refs",
		Short: "List the tables a query references",
		Long: `Evaluate a query document against a catalog and list every table or
alias its clauses reference, in clause order (select, where, group,
having, order). Function arguments are not inspected.

Example:
  vrow refs --catalog blog.cue --query recent_posts.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefs(opts, cmd)
		},
	}

	addQueryFlags(cmd, opts)
	return cmd
}

func addQueryFlags(cmd *cobra.Command, opts *QueryOptions) {
	cmd.Flags().StringVarP(&opts.Catalog, "catalog", "c", "", "catalog file (required)")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "query document (required)")
	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("query")
}

func runRefs(opts *QueryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	schema, err := loadCatalog(cmd.Context(), opts.Catalog)
	if err != nil {
		return reportError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d table(s) from %s", len(schema.Tables()), opts.Catalog)

	rel, err := loadRelation(schema, opts.Query)
	if err != nil {
		return reportError(formatter, err)
	}

	refs, err := rel.References()
	if err != nil {
		return reportError(formatter, &LoadError{Code: ErrCodeMalformed, Message: err.Error(), Err: err})
	}

	result := RefsResult{
		Table:      rel.Table().Name,
		References: refs,
		Tables:     refs.Unique(),
	}
	if result.References == nil {
		result.References = []string{}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "Table: %s\n", result.Table)
	fmt.Fprintf(formatter.Writer, "References (%d): %s\n", len(result.References), strings.Join(result.References, ", "))
	fmt.Fprintf(formatter.Writer, "Tables (%d): %s\n", len(result.Tables), strings.Join(result.Tables, ", "))
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/virtualrow/internal/querysql"
)

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	QueryOptions
	StableOrder bool
}

// SQLResult is a rendered statement and its bind parameters.
type SQLResult struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Render a query as parameterized SQL",
		Long: `Evaluate a query document against a catalog and render it as a SQLite
SELECT statement. Referenced tables are joined along catalog associations.

Example:
  vrow sql --catalog blog.db --query recent_posts.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, cmd)
		},
	}

	addQueryFlags(cmd, &opts.QueryOptions)
	cmd.Flags().BoolVar(&opts.StableOrder, "stable-order", true, "order by the primary key as a final tiebreaker")
	return cmd
}

func runSQL(opts *SQLOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	schema, err := loadCatalog(cmd.Context(), opts.Catalog)
	if err != nil {
		return reportError(formatter, err)
	}

	rel, err := loadRelation(schema, opts.Query)
	if err != nil {
		return reportError(formatter, err)
	}

	compiler := querysql.NewSQLCompiler()
	compiler.StableOrder = opts.StableOrder
	sql, params, err := compiler.Compile(rel)
	if err != nil {
		return reportError(formatter, &LoadError{Code: ErrCodeCompile, Message: err.Error(), Err: err})
	}
	formatter.VerboseLog("Rendered %d parameter(s)", len(params))

	result := SQLResult{SQL: sql, Params: params}
	if result.Params == nil {
		result.Params = []any{}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, result.SQL)
	for i, p := range result.Params {
		fmt.Fprintf(formatter.Writer, "-- $%d = %#v\n", i+1, p)
	}
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/roach88/virtualrow/internal/catalog"
	"github.com/roach88/virtualrow/internal/relation"
	"github.com/roach88/virtualrow/internal/tablerefs"
	"github.com/roach88/virtualrow/internal/virtualrow"
)

// Error codes for CLI output.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeCatalog    = "E002" // Catalog failed to load
	ErrCodeQuery      = "E003" // Query document failed to load or build
	ErrCodeUnresolved = "E004" // Identifier is neither a column nor an association
	ErrCodeNotFound   = "E005" // Path not found
	ErrCodeMalformed  = "E006" // Malformed expression tree
	ErrCodeCompile    = "E007" // SQL rendering or join planning failed
)

// LoadError represents an error that occurred while loading command inputs.
type LoadError struct {
	Code    string
	Message string
	Details any
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ExitCode maps the error to a process exit code: input problems are
// command errors, queries that do not resolve are failures.
func (e *LoadError) ExitCode() int {
	switch e.Code {
	case ErrCodeUnresolved, ErrCodeMalformed, ErrCodeCompile:
		return ExitFailure
	default:
		return ExitCommandError
	}
}

// loadCatalog reads the catalog at path.
func loadCatalog(ctx context.Context, path string) (*catalog.Schema, error) {
	if err := checkPath(path, "catalog"); err != nil {
		return nil, err
	}

	slog.Debug("loading catalog", "path", path)
	schema, err := catalog.Load(ctx, path)
	if err != nil {
		return nil, &LoadError{
			Code:    ErrCodeCatalog,
			Message: err.Error(),
			Details: errorDetails(err),
			Err:     err,
		}
	}
	slog.Debug("catalog loaded", "tables", len(schema.Tables()))
	return schema, nil
}

// loadRelation reads the query document at path and builds it against
// schema.
func loadRelation(schema *catalog.Schema, path string) (*relation.Relation, error) {
	if err := checkPath(path, "query"); err != nil {
		return nil, err
	}

	q, err := relation.LoadQuery(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeQuery, Message: err.Error(), Err: err}
	}

	slog.Debug("building query", "path", path, "table", q.Table)
	rel, err := q.Build(schema)
	if err != nil {
		return nil, &LoadError{
			Code:    classifyQueryError(err),
			Message: err.Error(),
			Details: errorDetails(err),
			Err:     err,
		}
	}
	return rel, nil
}

func checkPath(path, what string) error {
	if path == "" {
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s file is required", what)}
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s file not found: %s", what, path), Err: err}
		}
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s file: %v", what, err), Err: err}
	}
	return nil
}

// classifyQueryError picks the error code for a failed query build.
func classifyQueryError(err error) string {
	var clauseErr *relation.ClauseError
	switch {
	case virtualrow.IsUnresolvedIdentifier(err):
		return ErrCodeUnresolved
	case tablerefs.IsMalformedTree(err):
		return ErrCodeMalformed
	case errors.As(err, &clauseErr) && len(clauseErr.Warnings) > 0:
		return ErrCodeMalformed
	default:
		return ErrCodeQuery
	}
}

// errorDetails extracts structured context for JSON output.
func errorDetails(err error) any {
	var catalogErr *catalog.LoadError
	if errors.As(err, &catalogErr) && catalogErr.Pos.IsValid() {
		return map[string]any{
			"file":   catalogErr.Pos.Filename(),
			"line":   catalogErr.Pos.Line(),
			"column": catalogErr.Pos.Column(),
		}
	}

	var schemaErr *catalog.SchemaError
	if errors.As(err, &schemaErr) {
		return map[string]any{"table": schemaErr.Table, "field": schemaErr.Field}
	}

	var resolveErr *virtualrow.ResolveError
	if errors.As(err, &resolveErr) {
		return map[string]any{"identifier": resolveErr.Identifier, "table": resolveErr.Table}
	}

	var clauseErr *relation.ClauseError
	if errors.As(err, &clauseErr) && len(clauseErr.Warnings) > 0 {
		return map[string]any{"clause": clauseErr.Clause, "warnings": clauseErr.Warnings}
	}

	return nil
}

// reportError writes err through formatter and returns the matching
// ExitError.
func reportError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Err: err}
	}
	_ = formatter.Error(loadErr.Code, loadErr.Message, loadErr.Details)
	exitErr := WrapExitError(loadErr.ExitCode(), fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message), nil)
	exitErr.Reported = true
	return exitErr
}

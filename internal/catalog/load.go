package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Load reads a schema, choosing the source from the file extension:
// .cue for CUE, .yaml or .yml for YAML, and .db, .sqlite or .sqlite3 for
// a SQLite database.
func Load(ctx context.Context, path string) (*Schema, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return LoadCUE(path)
	case ".yaml", ".yml":
		return LoadYAML(path)
	case ".db", ".sqlite", ".sqlite3":
		return Introspect(ctx, path)
	default:
		return nil, fmt.Errorf("unsupported schema file %q: expected .cue, .yaml, .yml, .db, .sqlite or .sqlite3", path)
	}
}

// Package cache memoizes Orchestrator.Transform results in a sqlite
// database keyed on module name, module version, file path, and a
// content hash of the source bytes. A build tool wrapping weaver can skip
// re-parsing and re-instrumenting any file it has already transformed
// once. The key does not include the instrumentation catalog: an entry
// stored under one catalog is returned unchanged under another.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/orchestrion-go/weaver/internal/errors"
	"github.com/orchestrion-go/weaver/internal/orchestrator"
)

const schema = `
CREATE TABLE IF NOT EXISTS transform_results (
	module_name    TEXT NOT NULL,
	module_version TEXT NOT NULL,
	file_path      TEXT NOT NULL,
	source_hash    TEXT NOT NULL,
	output         BLOB,
	failures       TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (module_name, module_version, file_path, source_hash)
);
`

// Cache wraps a sqlite-backed transform_results table.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if necessary) a sqlite database at path — pass
// ":memory:" for a process-local, non-persistent cache — and ensures the
// results table exists.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

func hashSource(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// cachedFailure mirrors errors.InjectionMatchFailure for JSON storage.
type cachedFailure struct {
	ModuleName  string `json:"module_name"`
	ChannelName string `json:"channel_name"`
	FilePath    string `json:"file_path"`
	QueryName   string `json:"query_name"`
	QueryIndex  int    `json:"query_index"`
}

// Lookup returns a previously Store'd Result for this exact identity, or
// ok=false on a miss.
func (c *Cache) Lookup(moduleName, moduleVersion, filePath string, source []byte) (result orchestrator.Result, ok bool, err error) {
	row := c.db.QueryRow(
		`SELECT output, failures FROM transform_results
		 WHERE module_name = ? AND module_version = ? AND file_path = ? AND source_hash = ?`,
		moduleName, moduleVersion, filePath, hashSource(source),
	)
	var output []byte
	var failuresJSON string
	if scanErr := row.Scan(&output, &failuresJSON); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return orchestrator.Result{}, false, nil
		}
		return orchestrator.Result{}, false, scanErr
	}

	var cached []cachedFailure
	if err := json.Unmarshal([]byte(failuresJSON), &cached); err != nil {
		return orchestrator.Result{}, false, fmt.Errorf("decode cached failures: %w", err)
	}
	result = orchestrator.Result{Output: output}
	for _, f := range cached {
		result.Failures = append(result.Failures, errors.NewInjectionMatchFailure(
			f.ModuleName, f.ChannelName, f.FilePath, f.QueryName, f.QueryIndex,
		))
	}
	return result, true, nil
}

// Store memoizes result under this identity, replacing any prior entry
// for the same key.
func (c *Cache) Store(moduleName, moduleVersion, filePath string, source []byte, result orchestrator.Result) error {
	cached := make([]cachedFailure, 0, len(result.Failures))
	for _, f := range result.Failures {
		cached = append(cached, cachedFailure{
			ModuleName: f.ModuleName, ChannelName: f.ChannelName,
			FilePath: f.FilePath, QueryName: f.QueryName, QueryIndex: f.QueryIndex,
		})
	}
	failuresJSON, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("encode failures: %w", err)
	}

	_, err = c.db.Exec(
		`INSERT INTO transform_results (module_name, module_version, file_path, source_hash, output, failures)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(module_name, module_version, file_path, source_hash)
		 DO UPDATE SET output = excluded.output, failures = excluded.failures`,
		moduleName, moduleVersion, filePath, hashSource(source), result.Output, string(failuresJSON),
	)
	return err
}

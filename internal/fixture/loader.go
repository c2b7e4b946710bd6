package fixture

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/tailscale/hujson"
	"golang.org/x/sync/singleflight"
)

// File is the decoded body of one operator fixture.
type File struct {
	Tests []Case `json:"tests"`
}

// FileName maps an operator name to its fixture file: every capital letter
// becomes an underscore followed by its lower-case form.
func FileName(op string) string {
	var b strings.Builder

	for _, r := range op {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
			b.WriteRune(unicode.ToLower(r))

			continue
		}

		b.WriteRune(r)
	}

	b.WriteString(".json")

	return b.String()
}

// Parse decodes fixture text. Comments and trailing commas are accepted.
func Parse(data []byte) ([]Case, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("fixture: standardize: %w", err)
	}

	var f File
	if err := json.Unmarshal(std, &f); err != nil {
		return nil, fmt.Errorf("fixture: decode: %w", err)
	}

	return f.Tests, nil
}

// Loader reads fixtures from a file system and keeps every successfully
// decoded file for its lifetime. Entries are never invalidated.
type Loader struct {
	fsys   fs.FS
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string][]Case
	group singleflight.Group
}

// NewLoader reads fixtures from fsys. A nil logger uses slog.Default.
func NewLoader(fsys fs.FS, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}

	return &Loader{
		fsys:   fsys,
		logger: logger,
		cache:  make(map[string][]Case),
	}
}

// NewDirLoader reads fixtures from a directory on disk.
func NewDirLoader(dir string, logger *slog.Logger) *Loader {
	return NewLoader(os.DirFS(dir), logger)
}

// Load returns the cases for op. Concurrent loads of the same operator
// share one read. Failures are returned to every waiter and not cached.
func (l *Loader) Load(op string) ([]Case, error) {
	l.mu.RLock()
	cases, ok := l.cache[op]
	l.mu.RUnlock()

	if ok {
		return cases, nil
	}

	v, err, _ := l.group.Do(op, func() (any, error) {
		l.mu.RLock()
		cached, ok := l.cache[op]
		l.mu.RUnlock()

		if ok {
			return cached, nil
		}

		name := FileName(op)

		data, err := fs.ReadFile(l.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("fixture: load %s: %w", name, err)
		}

		cases, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("fixture: load %s: %w", name, err)
		}

		l.mu.Lock()
		l.cache[op] = cases
		l.mu.Unlock()

		l.logger.Debug("loaded fixture", "operator", op, "file", name, "cases", len(cases))

		return cases, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]Case), nil
}

// Cached reports whether op has been loaded.
func (l *Loader) Cached(op string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.cache[op]

	return ok
}

// Available reports whether a fixture file exists for op.
func (l *Loader) Available(op string) bool {
	_, err := fs.Stat(l.fsys, FileName(op))

	return err == nil
}

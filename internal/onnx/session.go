package onnx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tailscale/hujson"
)

// NodeInfo declares one graph input or output. Shape entries are integers
// or symbolic dimension names.
type NodeInfo struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
	Shape []any  `json:"shape"`
}

// Session describes one exported single-operator graph.
type Session struct {
	Name    string     `json:"name"`
	Path    string     `json:"filename"`
	Inputs  []NodeInfo `json:"inputs"`
	Outputs []NodeInfo `json:"outputs"`
}

// InputNames returns the graph's declared input names.
func (s Session) InputNames() []string { return namesOf(s.Inputs) }

func (s Session) clone() Session {
	s.Inputs = slices.Clone(s.Inputs)
	s.Outputs = slices.Clone(s.Outputs)

	return s
}

// SessionManager indexes the graphs of a manifest by name. Graph names are
// either an operator name or "<operator>/<case name>". The index is
// read-only once built.
type SessionManager struct {
	byName map[string]int
	graphs []Session
}

// NewSessionManager loads a manifest. The manifest is HuJSON, so comments
// and trailing commas are allowed. Relative filenames resolve against the
// manifest's directory and every graph file must exist.
func NewSessionManager(manifestPath string, logger *slog.Logger) (*SessionManager, error) {
	if manifestPath == "" {
		return nil, errors.New("onnx: manifest path is required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	graphs, err := readManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	sm := &SessionManager{byName: make(map[string]int, len(graphs))}
	dir := filepath.Dir(manifestPath)

	for _, g := range graphs {
		if err := sm.add(dir, g); err != nil {
			return nil, fmt.Errorf("onnx: manifest %s: %w", manifestPath, err)
		}

		logger.Debug("graph indexed", "name", g.Name, "inputs", strings.Join(namesOf(g.Inputs), ","),
			"outputs", strings.Join(namesOf(g.Outputs), ","))
	}

	return sm, nil
}

func readManifest(path string) ([]Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("onnx: read manifest: %w", err)
	}

	if raw, err = hujson.Standardize(raw); err != nil {
		return nil, fmt.Errorf("onnx: manifest %s: %w", path, err)
	}

	var doc struct {
		Graphs []Session `json:"graphs"`
	}

	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("onnx: manifest %s: %w", path, err)
	}

	if len(doc.Graphs) == 0 {
		return nil, fmt.Errorf("onnx: manifest %s lists no graphs", path)
	}

	return doc.Graphs, nil
}

func (m *SessionManager) add(dir string, g Session) error {
	switch {
	case g.Name == "":
		return errors.New("graph with empty name")
	case g.Path == "":
		return fmt.Errorf("graph %q has no filename", g.Name)
	}

	if _, dup := m.byName[g.Name]; dup {
		return fmt.Errorf("graph %q listed twice", g.Name)
	}

	if !filepath.IsAbs(g.Path) {
		g.Path = filepath.Join(dir, g.Path)
	}

	g.Path = filepath.Clean(g.Path)
	if _, err := os.Stat(g.Path); err != nil {
		return fmt.Errorf("graph %q: %w", g.Name, err)
	}

	m.byName[g.Name] = len(m.graphs)
	m.graphs = append(m.graphs, g)

	return nil
}

// Session returns the graph registered under name.
func (m *SessionManager) Session(name string) (Session, bool) {
	i, ok := m.byName[name]
	if !ok {
		return Session{}, false
	}

	return m.graphs[i].clone(), true
}

// Lookup finds the graph for one case: "<operator>/<case>" wins over the
// operator-wide "<operator>" graph.
func (m *SessionManager) Lookup(operator, caseName string) (Session, bool) {
	if caseName != "" {
		if s, ok := m.Session(operator + "/" + caseName); ok {
			return s, true
		}
	}

	return m.Session(operator)
}

// Sessions lists every graph in manifest order.
func (m *SessionManager) Sessions() []Session {
	out := make([]Session, len(m.graphs))
	for i, g := range m.graphs {
		out[i] = g.clone()
	}

	return out
}

func namesOf(nodes []NodeInfo) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}

	return names
}

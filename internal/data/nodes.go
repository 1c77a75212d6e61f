package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Node is a CAISO pricing node known to the scraper.
type Node struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"` // e.g. "DLAP", "SLAP", "TH", "PNODE"
}

// NodeList represents a collection of nodes.
type NodeList struct {
	UpdatedAt string `json:"updated_at"` // ISO 8601 timestamp
	Nodes     []Node `json:"nodes"`
}

var defaultNodes = []Node{
	{ID: "SLAP_PGEB-APND", Description: "PG&E Bay Area sub-LAP"},
	{ID: "DLAP_SCE-APND", Description: "Southern California Edison default LAP"},
	{ID: "TH_SP15_GEN-APND", Description: "SP15 generation trading hub"},
	{ID: "TH_SP15_GEN_ONPEAK-APND", Description: "SP15 generation trading hub, on-peak"},
	{ID: "PGEB-APND", Description: "PG&E Bay Area aggregated node"},
}

// DefaultNodes returns the built-in catalog.
func DefaultNodes() *NodeList {
	list := &NodeList{}
	for _, n := range defaultNodes {
		n.Type = NodeType(n.ID)
		list.Nodes = append(list.Nodes, n)
	}
	return list
}

// NodeType derives the node class from the ID prefix.
func NodeType(id string) string {
	prefix, _, ok := strings.Cut(id, "_")
	if ok {
		switch prefix {
		case "DLAP", "SLAP", "TH":
			return prefix
		}
	}
	return "PNODE"
}

// Find returns the node with the given ID.
func (l *NodeList) Find(id string) (Node, bool) {
	for _, n := range l.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Add inserts or replaces n, keeping the list sorted by ID.
func (l *NodeList) Add(n Node) error {
	n.ID = strings.TrimSpace(n.ID)
	if n.ID == "" {
		return errors.New("node id is required")
	}
	if n.Type == "" {
		n.Type = NodeType(n.ID)
	}
	replaced := false
	for i := range l.Nodes {
		if l.Nodes[i].ID == n.ID {
			l.Nodes[i] = n
			replaced = true
		}
	}
	if !replaced {
		l.Nodes = append(l.Nodes, n)
	}
	sort.Slice(l.Nodes, func(i, j int) bool { return l.Nodes[i].ID < l.Nodes[j].ID })
	return nil
}

// LoadNodes loads nodes from a JSON file
func LoadNodes(filePath string) (*NodeList, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read nodes file: %w", err)
	}

	var list NodeList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse nodes file: %w", err)
	}
	for i := range list.Nodes {
		if list.Nodes[i].Type == "" {
			list.Nodes[i].Type = NodeType(list.Nodes[i].ID)
		}
	}

	return &list, nil
}

// LoadNodesOrDefault falls back to the built-in catalog when filePath is
// empty or does not exist. Other read errors are returned.
func LoadNodesOrDefault(filePath string) (*NodeList, error) {
	if filePath == "" {
		return DefaultNodes(), nil
	}
	list, err := LoadNodes(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultNodes(), nil
	}
	return list, err
}

// SaveNodes saves nodes to a JSON file, stamping UpdatedAt.
func SaveNodes(list *NodeList, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	list.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}

	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write nodes file: %w", err)
	}

	return nil
}

// GetDefaultNodesPath returns the default path for the nodes file
func GetDefaultNodesPath() string {
	if path := os.Getenv("NODES_FILE"); path != "" {
		return path
	}
	return "./data/nodes.json"
}

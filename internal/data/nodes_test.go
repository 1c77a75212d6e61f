package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultNodes(t *testing.T) {
	list := DefaultNodes()
	require.Len(t, list.Nodes, 5)

	n, ok := list.Find("DLAP_SCE-APND")
	require.True(t, ok)
	assert.Equal(t, "DLAP", n.Type)

	n, ok = list.Find("PGEB-APND")
	require.True(t, ok)
	assert.Equal(t, "PNODE", n.Type)

	_, ok = list.Find("NOPE")
	assert.False(t, ok)
}

func TestNodeType(t *testing.T) {
	assert.Equal(t, "TH", NodeType("TH_SP15_GEN_ONPEAK-APND"))
	assert.Equal(t, "SLAP", NodeType("SLAP_PGEB-APND"))
	assert.Equal(t, "PNODE", NodeType("ALAMIT_7_B1"))
}

func TestAddReplacesAndSorts(t *testing.T) {
	list := &NodeList{}
	require.NoError(t, list.Add(Node{ID: "TH_NP15_GEN-APND"}))
	require.NoError(t, list.Add(Node{ID: " DLAP_PGE-APND "}))
	require.NoError(t, list.Add(Node{ID: "TH_NP15_GEN-APND", Description: "NP15"}))

	require.Len(t, list.Nodes, 2)
	assert.Equal(t, "DLAP_PGE-APND", list.Nodes[0].ID)
	assert.Equal(t, "NP15", list.Nodes[1].Description)
	assert.Equal(t, "TH", list.Nodes[1].Type)

	assert.Error(t, list.Add(Node{ID: "  "}))
}

func TestSaveAndLoadNodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "nodes.json")
	list := DefaultNodes()
	require.NoError(t, SaveNodes(list, path))
	assert.NotEmpty(t, list.UpdatedAt)

	loaded, err := LoadNodes(path)
	require.NoError(t, err)
	assert.Equal(t, list, loaded)
}

func TestLoadNodesOrDefault(t *testing.T) {
	list, err := LoadNodesOrDefault("")
	require.NoError(t, err)
	assert.Len(t, list.Nodes, 5)

	list, err = LoadNodesOrDefault(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Len(t, list.Nodes, 5)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadNodesOrDefault(bad)
	assert.Error(t, err)
}

func TestGetDefaultNodesPath(t *testing.T) {
	t.Setenv("NODES_FILE", "/etc/lmp/nodes.json")
	assert.Equal(t, "/etc/lmp/nodes.json", GetDefaultNodesPath())
	t.Setenv("NODES_FILE", "")
	assert.Equal(t, "./data/nodes.json", GetDefaultNodesPath())
}

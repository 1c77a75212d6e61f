package handlers

import (
	"fmt"
	"net/http"

	"lmp-scraper/internal/api/models"
	"lmp-scraper/internal/data"

	"github.com/gin-gonic/gin"
)

// NodeHandler serves the node catalog
type NodeHandler struct {
	path string
}

// NewNodeHandler reads the catalog from path on every request, so edits to
// the file show up without a restart. An empty path serves the built-in list.
func NewNodeHandler(path string) *NodeHandler {
	return &NodeHandler{path: path}
}

// ListNodes handles GET /api/v1/nodes
func (h *NodeHandler) ListNodes(c *gin.Context) {
	list, err := data.LoadNodesOrDefault(h.path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "NODES_LOAD_ERROR",
				Message: fmt.Sprintf("Failed to load nodes: %v", err),
			},
		})
		return
	}

	typ := c.Query("type")
	nodes := make([]models.NodeInfo, 0, len(list.Nodes))
	for _, n := range list.Nodes {
		if typ != "" && n.Type != typ {
			continue
		}
		nodes = append(nodes, models.NodeInfo{ID: n.ID, Description: n.Description, Type: n.Type})
	}

	c.JSON(http.StatusOK, gin.H{
		"nodes":      nodes,
		"updated_at": list.UpdatedAt,
		"count":      len(nodes),
	})
}

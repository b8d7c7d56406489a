package engine

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"donation-nodes/pkg/state"
)

// ErrUnknownNodeType is returned when no handler is registered for a node type.
var ErrUnknownNodeType = errors.New("unknown node type")

// Node is one configured instance of a node type inside a workflow.
type Node struct {
	ID         string
	Workflow   string
	Type       string
	Parameters map[string]any
}

// StateKey addresses the node's persisted cursor.
func (n *Node) StateKey() state.Key {
	return state.Key{Workflow: n.Workflow, Node: n.ID}
}

// Parameter looks up a dotted path such as "requestOptions.qs".
// Returns nil when any segment is missing.
func (n *Node) Parameter(path string) any {
	var cur any = n.Parameters
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = lookupKey(m, part)
	}
	return cur
}

// lookupKey prefers an exact match and falls back to a case-insensitive one,
// since config loaders may lower-case keys.
func lookupKey(m map[string]any, key string) any {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

// StringParameter returns a trimmed string parameter, or "" if absent.
func (n *Node) StringParameter(path string) string {
	s, _ := n.Parameter(path).(string)
	return strings.TrimSpace(s)
}

// BoolParameter returns a boolean parameter, or false if absent.
func (n *Node) BoolParameter(path string) bool {
	b, _ := n.Parameter(path).(bool)
	return b
}

// Item is one record emitted downstream.
type Item struct {
	JSON map[string]any `json:"json"`
}

// NodeHandler defines the interface for a node type.
// Implementations should be stateless; per-instance state lives in the
// ExecutionContext's Store.
type NodeHandler interface {
	// NodeType returns the type name the host registers the handler under
	NodeType() string

	// Description returns the declarative schema shown to workflow authors
	Description() NodeDescription

	// Execute runs one invocation. Polling nodes return a nil slice to signal
	// "nothing new"; pipeline nodes return a non-nil, possibly empty slice.
	Execute(ec *ExecutionContext, node *Node) ([]Item, error)
}

// Registry maps node types to their handlers.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]NodeHandler
}

// NewRegistry creates a new empty handler registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]NodeHandler),
	}
}

// Register adds a handler for a specific node type.
// If a handler for this type already exists, it will be replaced.
func (r *Registry) Register(handler NodeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[handler.NodeType()] = handler
}

// Get returns the handler for a given node type
func (r *Registry) Get(nodeType string) (NodeHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[nodeType]
	return h, ok
}

// NodeTypes returns all registered node types, sorted
func (r *Registry) NodeTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Descriptions returns the schema of every registered node, sorted by type
func (r *Registry) Descriptions() []NodeDescription {
	types := r.NodeTypes()
	out := make([]NodeDescription, 0, len(types))
	for _, t := range types {
		if h, ok := r.Get(t); ok {
			out = append(out, h.Description())
		}
	}
	return out
}

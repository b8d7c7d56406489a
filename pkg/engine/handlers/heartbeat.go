package handlers

import (
	"donation-nodes/pkg/engine"
)

// HeartbeatHandler is a polling trigger that emits a single item on every
// invocation. It is useful for checking that the poller is alive.
type HeartbeatHandler struct{}

// NewHeartbeatHandler creates a new HeartbeatHandler
func NewHeartbeatHandler() *HeartbeatHandler {
	return &HeartbeatHandler{}
}

func (h *HeartbeatHandler) NodeType() string { return TypeHelloPollTrigger }

func (h *HeartbeatHandler) Description() engine.NodeDescription {
	return engine.NodeDescription{
		DisplayName: "Hello Poll Trigger",
		Name:        TypeHelloPollTrigger,
		Group:       []string{engine.GroupTrigger},
		Version:     1,
		Description: "Emits a heartbeat item on every poll",
		Defaults:    map[string]string{"name": "Hello Poll Trigger"},
		Inputs:      []string{},
		Outputs:     []string{engine.ConnectionMain},
		Polling:     true,
		Properties:  []engine.Property{},
	}
}

func (h *HeartbeatHandler) Execute(ec *engine.ExecutionContext, node *engine.Node) ([]engine.Item, error) {
	return []engine.Item{
		{JSON: map[string]any{"ok": true, "ts": ec.Time().UnixMilli()}},
	}, nil
}

package engine

import "fmt"

// OperationError is a fatal error for one node invocation. The host reports
// it for that invocation only; the node stays registered and will be invoked
// again.
type OperationError struct {
	NodeType string
	Message  string
	Err      error
}

// NewOperationError wraps err with a node-level message.
func NewOperationError(nodeType, message string, err error) *OperationError {
	return &OperationError{NodeType: nodeType, Message: message, Err: err}
}

func (e *OperationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.NodeType, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.NodeType, e.Message, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

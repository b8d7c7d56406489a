package engine

// Connection kinds for node inputs and outputs.
const (
	ConnectionMain = "main"
)

// Node groups.
const (
	GroupTrigger   = "trigger"
	GroupTransform = "transform"
)

// CredentialRequirement names a credential type a node uses.
type CredentialRequirement struct {
	Name     string `json:"name" yaml:"name"`
	Required bool   `json:"required" yaml:"required"`
}

// Property is one configurable option on a node.
type Property struct {
	DisplayName string     `json:"displayName" yaml:"displayName"`
	Name        string     `json:"name" yaml:"name"`
	Type        string     `json:"type" yaml:"type"`
	Default     any        `json:"default" yaml:"default"`
	Placeholder string     `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Options     []Property `json:"options,omitempty" yaml:"options,omitempty"`
}

// NodeDescription is the declarative schema of a node type.
type NodeDescription struct {
	DisplayName string                  `json:"displayName" yaml:"displayName"`
	Name        string                  `json:"name" yaml:"name"`
	Group       []string                `json:"group" yaml:"group"`
	Version     int                     `json:"version" yaml:"version"`
	Description string                  `json:"description" yaml:"description"`
	Defaults    map[string]string       `json:"defaults" yaml:"defaults"`
	Inputs      []string                `json:"inputs" yaml:"inputs"`
	Outputs     []string                `json:"outputs" yaml:"outputs"`
	Polling     bool                    `json:"polling,omitempty" yaml:"polling,omitempty"`
	Credentials []CredentialRequirement `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	Properties  []Property              `json:"properties" yaml:"properties"`
}

package models

// IVRFlow is the wire and storage shape of one IVR call-routing document.
// The editor always works on the whole document; PUT replaces it wholesale.
type IVRFlow struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	IsActive  bool      `json:"isActive" yaml:"isActive"`
	Nodes     []IVRNode `json:"nodes" yaml:"nodes"`
	Version   int64     `json:"version,omitempty" yaml:"version,omitempty"`
	TenantID  string    `json:"-" yaml:"-"`
	CreatedAt int64     `json:"createdAt,omitempty" yaml:"-"` // unix millis
	UpdatedAt int64     `json:"updatedAt,omitempty" yaml:"-"` // unix millis
}

// IVRNode is one step of a flow. Pointers reference other nodes by id.
// Branches and DefaultNext are only meaningful on conditional types (hours, menu).
type IVRNode struct {
	ID          string                 `json:"id" yaml:"id"`
	Type        string                 `json:"type" yaml:"type"`
	Config      map[string]interface{} `json:"config" yaml:"config"`
	Next        *string                `json:"next,omitempty" yaml:"next,omitempty"`
	Branches    map[string]string      `json:"branches,omitempty" yaml:"branches,omitempty"`
	DefaultNext *string                `json:"defaultNext,omitempty" yaml:"defaultNext,omitempty"`
}

// IVRFlowSummary is the list view of a flow
type IVRFlowSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"isActive"`
	NodeCount int    `json:"nodeCount"`
	Version   int64  `json:"version"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Summary builds the list view of f
func (f *IVRFlow) Summary() IVRFlowSummary {
	return IVRFlowSummary{
		ID:        f.ID,
		Name:      f.Name,
		IsActive:  f.IsActive,
		NodeCount: len(f.Nodes),
		Version:   f.Version,
		UpdatedAt: f.UpdatedAt,
	}
}

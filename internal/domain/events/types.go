package events

import (
	"github.com/nexora/backend/internal/domain/models"
	"github.com/nexora/backend/pkg/constants"
)

// EventType defines the type of event in the system
type EventType string

const (
	// IVR flow events
	IVRFlowSaved   EventType = constants.EventFlowSaved
	IVRFlowDeleted EventType = constants.EventFlowDeleted
)

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}

// IVRFlowEvent is the payload of IVR flow events
type IVRFlowEvent struct {
	TenantID string `json:"tenant_id"`
	FlowID   string `json:"flow_id"`
	Version  int64  `json:"version"`
	UserID   string `json:"user_id,omitempty"`

	// Flow is the stored document after a save; nil for deletes
	Flow *models.IVRFlow `json:"-"`
}

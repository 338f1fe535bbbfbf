package ivr

import (
	"github.com/nexora/backend/internal/domain/models"
	"github.com/nexora/backend/pkg/constants"
	"github.com/nexora/backend/pkg/utils"
)

// SampleFlow is the seed document new tenants start from:
// greeting-1 -> hours-1 -> (open) menu-1 -> queue-sales | queue-support |
// transfer-operator, with voicemail-1 on the closed branch and as the menu default.
func SampleFlow() *models.IVRFlow {
	return &models.IVRFlow{
		ID:       constants.SampleFlowID,
		Name:     constants.SampleFlowName,
		IsActive: true,
		Nodes: []models.IVRNode{
			{
				ID:   "greeting-1",
				Type: string(TypeGreeting),
				Config: map[string]interface{}{
					"message": "Thank you for calling Nexora. Your call may be recorded for quality purposes.",
				},
				Next: utils.StringPtr("hours-1"),
			},
			{
				ID:   "hours-1",
				Type: string(TypeHours),
				Config: map[string]interface{}{
					"timezone": "America/New_York",
					"schedule": map[string]interface{}{
						"monday":    map[string]interface{}{"start": "09:00", "end": "17:00"},
						"tuesday":   map[string]interface{}{"start": "09:00", "end": "17:00"},
						"wednesday": map[string]interface{}{"start": "09:00", "end": "17:00"},
						"thursday":  map[string]interface{}{"start": "09:00", "end": "17:00"},
						"friday":    map[string]interface{}{"start": "09:00", "end": "17:00"},
					},
				},
				Branches: map[string]string{
					BranchOpen:   "menu-1",
					BranchClosed: "voicemail-1",
				},
			},
			{
				ID:   "menu-1",
				Type: string(TypeMenu),
				Config: map[string]interface{}{
					"message": "Press 1 for sales, 2 for support, or 0 to speak with an operator.",
					"options": []interface{}{
						map[string]interface{}{"digit": "1", "label": "Sales", "next": "queue-sales"},
						map[string]interface{}{"digit": "2", "label": "Support", "next": "queue-support"},
						map[string]interface{}{"digit": "0", "label": "Operator", "next": "transfer-operator"},
					},
					"timeout":    10,
					"maxRetries": 3,
				},
				DefaultNext: utils.StringPtr("voicemail-1"),
			},
			{
				ID:   "queue-sales",
				Type: string(TypeQueue),
				Config: map[string]interface{}{
					"queueName":   "sales",
					"message":     "Connecting you to the next available sales representative.",
					"maxWaitTime": 300,
				},
			},
			{
				ID:   "queue-support",
				Type: string(TypeQueue),
				Config: map[string]interface{}{
					"queueName":   "support",
					"message":     "Please hold while we connect you to support.",
					"maxWaitTime": 600,
				},
			},
			{
				ID:   "transfer-operator",
				Type: string(TypeTransfer),
				Config: map[string]interface{}{
					"phoneNumber": "+14155550100",
					"message":     "Transferring you to an operator.",
				},
			},
			{
				ID:   "voicemail-1",
				Type: string(TypeVoicemail),
				Config: map[string]interface{}{
					"message":     "We are closed right now. Please leave a message after the tone.",
					"email":       "support@example.com",
					"maxDuration": 120,
				},
			},
		},
	}
}

// SampleDocument is SampleFlow as an editable Document
func SampleDocument() *Document {
	doc, err := FromModel(SampleFlow())
	if err != nil {
		panic(err)
	}
	return doc
}

package ivr

// NodeType is the tag that selects a node's config variant
type NodeType string

const (
	TypeGreeting  NodeType = "greeting"
	TypeMenu      NodeType = "menu"
	TypeQueue     NodeType = "queue"
	TypeTransfer  NodeType = "transfer"
	TypeVoicemail NodeType = "voicemail"
	TypeHours     NodeType = "hours"
	TypeMessage   NodeType = "message"
)

// Metadata is the presentation and shape information for one node type
type Metadata struct {
	Type        NodeType `json:"type"`
	Label       string   `json:"label"`
	Icon        string   `json:"icon"`
	Color       string   `json:"color"`
	Description string   `json:"description"`
	Fields      []string `json:"fields"`
	// Conditional types route through branches/options instead of next
	Conditional bool `json:"conditional"`
	// Terminal types hand the call off; the IVR ends there
	Terminal bool `json:"terminal"`
	Known    bool `json:"known"`
}

var typeOrder = []NodeType{
	TypeGreeting,
	TypeMenu,
	TypeQueue,
	TypeTransfer,
	TypeVoicemail,
	TypeHours,
	TypeMessage,
}

var registry = map[NodeType]Metadata{
	TypeGreeting: {
		Type: TypeGreeting, Label: "Greeting", Icon: "volume-2", Color: "blue",
		Description: "Play a welcome message",
		Fields:      []string{"message", "voice", "language"},
	},
	TypeMenu: {
		Type: TypeMenu, Label: "Menu", Icon: "list", Color: "purple",
		Description: "Let the caller choose with keypad digits",
		Fields:      []string{"message", "options", "timeout", "maxRetries"},
		Conditional: true,
	},
	TypeQueue: {
		Type: TypeQueue, Label: "Queue", Icon: "users", Color: "green",
		Description: "Place the caller in an agent queue",
		Fields:      []string{"queueName", "message", "maxWaitTime", "holdMusic"},
		Terminal:    true,
	},
	TypeTransfer: {
		Type: TypeTransfer, Label: "Transfer", Icon: "phone-forwarded", Color: "orange",
		Description: "Forward the call to a phone number",
		Fields:      []string{"phoneNumber", "message", "transferType"},
		Terminal:    true,
	},
	TypeVoicemail: {
		Type: TypeVoicemail, Label: "Voicemail", Icon: "voicemail", Color: "red",
		Description: "Record a message from the caller",
		Fields:      []string{"message", "email", "maxDuration", "transcribe"},
		Terminal:    true,
	},
	TypeHours: {
		Type: TypeHours, Label: "Business Hours", Icon: "clock", Color: "yellow",
		Description: "Route by opening hours",
		Fields:      []string{"timezone", "schedule", "condition"},
		Conditional: true,
	},
	TypeMessage: {
		Type: TypeMessage, Label: "Message", Icon: "message-square", Color: "gray",
		Description: "Play an announcement",
		Fields:      []string{"message"},
	},
}

func init() {
	for t, md := range registry {
		md.Known = true
		registry[t] = md
	}
}

// Lookup returns the metadata for a node type tag
func Lookup(t NodeType) (Metadata, bool) {
	md, ok := registry[t]
	return md, ok
}

// IsKnown reports whether t is a registered node type
func IsKnown(t NodeType) bool {
	_, ok := registry[t]
	return ok
}

// Types returns the metadata of every registered type in palette order
func Types() []Metadata {
	out := make([]Metadata, 0, len(typeOrder))
	for _, t := range typeOrder {
		out = append(out, registry[t])
	}
	return out
}

// UnknownMetadata is the placeholder shown for a tag missing from the registry
func UnknownMetadata(t NodeType) Metadata {
	return Metadata{
		Type:        t,
		Label:       "Unknown node type",
		Icon:        "help-circle",
		Color:       "red",
		Description: "No node type named \"" + string(t) + "\" is registered",
	}
}

// MetadataFor returns the registered metadata or the unknown placeholder
func MetadataFor(t NodeType) Metadata {
	if md, ok := registry[t]; ok {
		return md
	}
	return UnknownMetadata(t)
}

package ivr

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// NodeConfig is the typed config of one node variant.
// ToMap produces the wire form; keys the variant does not model are kept in
// Extra and written back unchanged.
type NodeConfig interface {
	NodeType() NodeType
	ToMap() map[string]interface{}
}

// GreetingConfig plays a welcome prompt
type GreetingConfig struct {
	Message  string                 `mapstructure:"message" validate:"required"`
	Voice    string                 `mapstructure:"voice"`
	Language string                 `mapstructure:"language"`
	Extra    map[string]interface{} `mapstructure:",remain"`

	present keySet
}

// MenuOption maps one DTMF digit to a successor node
type MenuOption struct {
	Digit string                 `mapstructure:"digit" validate:"required,dtmf"`
	Label string                 `mapstructure:"label" validate:"required"`
	Next  string                 `mapstructure:"next"`
	Extra map[string]interface{} `mapstructure:",remain"`

	present keySet
}

// MenuConfig asks the caller to press a digit
type MenuConfig struct {
	Message        string                 `mapstructure:"message" validate:"required"`
	Options        []MenuOption           `mapstructure:"options" validate:"min=1,dive"`
	TimeoutSeconds int                    `mapstructure:"timeout" validate:"gte=0"`
	MaxRetries     int                    `mapstructure:"maxRetries" validate:"gte=0"`
	Extra          map[string]interface{} `mapstructure:",remain"`

	present keySet
}

// QueueConfig places the caller in an agent queue
type QueueConfig struct {
	QueueName      string                 `mapstructure:"queueName" validate:"required"`
	Message        string                 `mapstructure:"message"`
	MaxWaitSeconds int                    `mapstructure:"maxWaitTime" validate:"gte=0"`
	HoldMusic      string                 `mapstructure:"holdMusic"`
	Extra          map[string]interface{} `mapstructure:",remain"`

	present keySet
}

// TransferConfig forwards the call
type TransferConfig struct {
	PhoneNumber  string                 `mapstructure:"phoneNumber" validate:"required,e164"`
	Message      string                 `mapstructure:"message"`
	TransferType string                 `mapstructure:"transferType" validate:"omitempty,oneof=blind warm"`
	Extra        map[string]interface{} `mapstructure:",remain"`

	present keySet
}

// VoicemailConfig records a message
type VoicemailConfig struct {
	Message            string                 `mapstructure:"message" validate:"required"`
	Email              string                 `mapstructure:"email" validate:"omitempty,email"`
	MaxDurationSeconds int                    `mapstructure:"maxDuration" validate:"gte=0"`
	Transcribe         bool                   `mapstructure:"transcribe"`
	Extra              map[string]interface{} `mapstructure:",remain"`

	present keySet
}

// DayHours is an opening window on one weekday, "HH:MM" to "HH:MM".
// End may be "24:00" to stay open until midnight.
type DayHours struct {
	Start string                 `mapstructure:"start"`
	End   string                 `mapstructure:"end"`
	Extra map[string]interface{} `mapstructure:",remain"`
}

// HoursConfig routes by a weekly schedule.
// A weekday missing from Schedule is closed all day.
type HoursConfig struct {
	Timezone  string                 `mapstructure:"timezone"`
	Schedule  map[string]DayHours    `mapstructure:"schedule"`
	Condition string                 `mapstructure:"condition"`
	Extra     map[string]interface{} `mapstructure:",remain"`

	present keySet
}

// MessageConfig plays an announcement
type MessageConfig struct {
	Message string                 `mapstructure:"message" validate:"required"`
	Extra   map[string]interface{} `mapstructure:",remain"`

	present keySet
}

// UnknownConfig holds the raw config of a tag missing from the registry
type UnknownConfig struct {
	Type   NodeType
	Values map[string]interface{}
}

// keySet holds the keys a wire config carried. A field named here is written
// back even when it holds its zero value.
type keySet map[string]bool

func keysOf(v interface{}) keySet {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) == 0 {
		return nil
	}
	ks := make(keySet, len(m))
	for k := range m {
		ks[k] = true
	}
	return ks
}

// tracker is implemented by the variants that remember their wire keys
type tracker interface {
	track(raw map[string]interface{})
}

func (c *GreetingConfig) track(raw map[string]interface{})  { c.present = keysOf(raw) }
func (c *QueueConfig) track(raw map[string]interface{})     { c.present = keysOf(raw) }
func (c *TransferConfig) track(raw map[string]interface{})  { c.present = keysOf(raw) }
func (c *VoicemailConfig) track(raw map[string]interface{}) { c.present = keysOf(raw) }
func (c *HoursConfig) track(raw map[string]interface{})     { c.present = keysOf(raw) }
func (c *MessageConfig) track(raw map[string]interface{})   { c.present = keysOf(raw) }

func (c *MenuConfig) track(raw map[string]interface{}) {
	c.present = keysOf(raw)
	switch list := raw["options"].(type) {
	case []interface{}:
		for i := range c.Options {
			if i < len(list) {
				c.Options[i].present = keysOf(list[i])
			}
		}
	case []map[string]interface{}:
		for i := range c.Options {
			if i < len(list) {
				c.Options[i].present = keysOf(list[i])
			}
		}
	}
}

func (c *GreetingConfig) NodeType() NodeType  { return TypeGreeting }
func (c *MenuConfig) NodeType() NodeType      { return TypeMenu }
func (c *QueueConfig) NodeType() NodeType     { return TypeQueue }
func (c *TransferConfig) NodeType() NodeType  { return TypeTransfer }
func (c *VoicemailConfig) NodeType() NodeType { return TypeVoicemail }
func (c *HoursConfig) NodeType() NodeType     { return TypeHours }
func (c *MessageConfig) NodeType() NodeType   { return TypeMessage }
func (c *UnknownConfig) NodeType() NodeType   { return c.Type }

func (c *GreetingConfig) ToMap() map[string]interface{} {
	m := withExtra(c.Extra)
	putString(m, c.present, "message", c.Message)
	putString(m, c.present, "voice", c.Voice)
	putString(m, c.present, "language", c.Language)
	return m
}

func (c *MenuConfig) ToMap() map[string]interface{} {
	m := withExtra(c.Extra)
	putString(m, c.present, "message", c.Message)
	if c.Options != nil {
		opts := make([]interface{}, 0, len(c.Options))
		for _, o := range c.Options {
			om := withExtra(o.Extra)
			om["digit"] = o.Digit
			om["label"] = o.Label
			putString(om, o.present, "next", o.Next)
			opts = append(opts, om)
		}
		m["options"] = opts
	}
	putInt(m, c.present, "timeout", c.TimeoutSeconds)
	putInt(m, c.present, "maxRetries", c.MaxRetries)
	return m
}

func (c *QueueConfig) ToMap() map[string]interface{} {
	m := withExtra(c.Extra)
	putString(m, c.present, "queueName", c.QueueName)
	putString(m, c.present, "message", c.Message)
	putInt(m, c.present, "maxWaitTime", c.MaxWaitSeconds)
	putString(m, c.present, "holdMusic", c.HoldMusic)
	return m
}

func (c *TransferConfig) ToMap() map[string]interface{} {
	m := withExtra(c.Extra)
	putString(m, c.present, "phoneNumber", c.PhoneNumber)
	putString(m, c.present, "message", c.Message)
	putString(m, c.present, "transferType", c.TransferType)
	return m
}

func (c *VoicemailConfig) ToMap() map[string]interface{} {
	m := withExtra(c.Extra)
	putString(m, c.present, "message", c.Message)
	putString(m, c.present, "email", c.Email)
	putInt(m, c.present, "maxDuration", c.MaxDurationSeconds)
	if c.Transcribe || c.present["transcribe"] {
		m["transcribe"] = c.Transcribe
	}
	return m
}

func (c *HoursConfig) ToMap() map[string]interface{} {
	m := withExtra(c.Extra)
	putString(m, c.present, "timezone", c.Timezone)
	if c.Schedule != nil {
		days := make(map[string]interface{}, len(c.Schedule))
		for day, h := range c.Schedule {
			dm := withExtra(h.Extra)
			dm["start"] = h.Start
			dm["end"] = h.End
			days[day] = dm
		}
		m["schedule"] = days
	}
	putString(m, c.present, "condition", c.Condition)
	return m
}

func (c *MessageConfig) ToMap() map[string]interface{} {
	m := withExtra(c.Extra)
	putString(m, c.present, "message", c.Message)
	return m
}

func (c *UnknownConfig) ToMap() map[string]interface{} {
	return withExtra(c.Values)
}

// newConfig returns the empty variant for t
func newConfig(t NodeType) NodeConfig {
	switch t {
	case TypeGreeting:
		return &GreetingConfig{}
	case TypeMenu:
		return &MenuConfig{}
	case TypeQueue:
		return &QueueConfig{}
	case TypeTransfer:
		return &TransferConfig{}
	case TypeVoicemail:
		return &VoicemailConfig{}
	case TypeHours:
		return &HoursConfig{}
	case TypeMessage:
		return &MessageConfig{}
	default:
		return &UnknownConfig{Type: t, Values: map[string]interface{}{}}
	}
}

// DecodeConfig converts a wire config map into the typed variant for t.
// Unknown tags decode to *UnknownConfig holding a copy of raw.
func DecodeConfig(t NodeType, raw map[string]interface{}) (NodeConfig, error) {
	target := newConfig(t)
	if u, ok := target.(*UnknownConfig); ok {
		u.Values = copyValue(raw).(map[string]interface{})
		return u, nil
	}
	if raw == nil {
		return target, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook:       wholeNumberHook,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(copyValue(raw)); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", t, err)
	}
	if tr, ok := target.(tracker); ok {
		tr.track(raw)
	}
	return target, nil
}

// CloneConfig returns a deep copy of c
func CloneConfig(c NodeConfig) NodeConfig {
	if c == nil {
		return nil
	}
	out, err := DecodeConfig(c.NodeType(), c.ToMap())
	if err != nil {
		// ToMap output always decodes back into its own variant
		panic(err)
	}
	return out
}

// mergeConfig shallow-merges partial into c's wire form; nil values delete keys
func mergeConfig(c NodeConfig, partial map[string]interface{}) (NodeConfig, error) {
	m := c.ToMap()
	for k, v := range partial {
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	return DecodeConfig(c.NodeType(), m)
}

func withExtra(extra map[string]interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(extra)+4)
	for k, v := range extra {
		m[k] = copyValue(v)
	}
	return m
}

// wholeNumberHook refuses fractional numbers for int fields instead of
// truncating them
func wholeNumberHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	var f float64
	switch v := data.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return data, nil
	}
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not a whole number", data)
	}
	return data, nil
}

func putString(m map[string]interface{}, present keySet, key, v string) {
	if v != "" || present[key] {
		m[key] = v
	}
}

func putInt(m map[string]interface{}, present keySet, key string, v int) {
	if v != 0 || present[key] {
		m[key] = v
	}
}

// copyValue deep-copies the maps and slices of a decoded JSON/YAML value
func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			out[k] = copyValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = copyValue(inner)
		}
		return out
	default:
		return val
	}
}

// weekdays in schedule display order
var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func isWeekday(day string) bool {
	for _, d := range weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// ScheduleDays returns the configured days in weekday order, unknown keys last
func (c *HoursConfig) ScheduleDays() []string {
	days := make([]string, 0, len(c.Schedule))
	for _, d := range weekdays {
		if _, ok := c.Schedule[d]; ok {
			days = append(days, d)
		}
	}
	var odd []string
	for d := range c.Schedule {
		if !isWeekday(d) {
			odd = append(odd, d)
		}
	}
	sort.Strings(odd)
	return append(days, odd...)
}

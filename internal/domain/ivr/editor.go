package ivr

import (
	"fmt"
	"strconv"
	"strings"

	appErrors "github.com/nexora/backend/pkg/errors"
)

// Editor stages changes to one node's config. The document is only touched
// by Save.
type Editor struct {
	doc      *Document
	nodeID   string
	nodeType NodeType
	staged   NodeConfig
	dirty    bool
}

// Edit opens an editor on the node with the given id
func (d *Document) Edit(id string) (*Editor, error) {
	n, ok := d.nodes[id]
	if !ok {
		return nil, appErrors.NewNotFoundError(resourceNode, id)
	}
	return &Editor{
		doc:      d,
		nodeID:   id,
		nodeType: n.Type,
		staged:   CloneConfig(n.Config),
	}, nil
}

func (e *Editor) NodeID() string     { return e.nodeID }
func (e *Editor) Type() NodeType     { return e.nodeType }
func (e *Editor) Dirty() bool        { return e.dirty }
func (e *Editor) Config() NodeConfig { return e.staged }

// Set assigns one config key, decoding it into the typed variant
func (e *Editor) Set(key string, value interface{}) error {
	cfg, err := mergeConfig(e.staged, map[string]interface{}{key: value})
	if err != nil {
		return appErrors.NewValidationError(key, err.Error())
	}
	e.staged = cfg
	e.dirty = true
	return nil
}

func (e *Editor) menu() (*MenuConfig, error) {
	m, ok := e.staged.(*MenuConfig)
	if !ok {
		return nil, appErrors.NewValidationError("options", fmt.Sprintf("%s nodes have no menu options", e.nodeType))
	}
	return m, nil
}

func (e *Editor) hours() (*HoursConfig, error) {
	h, ok := e.staged.(*HoursConfig)
	if !ok {
		return nil, appErrors.NewValidationError("schedule", fmt.Sprintf("%s nodes have no schedule", e.nodeType))
	}
	return h, nil
}

// Options returns the staged menu options; a menu without any yields an empty list
func (e *Editor) Options() []MenuOption {
	m, ok := e.staged.(*MenuConfig)
	if !ok || m.Options == nil {
		return []MenuOption{}
	}
	return append([]MenuOption(nil), m.Options...)
}

// AddOption appends a menu option
func (e *Editor) AddOption(opt MenuOption) error {
	m, err := e.menu()
	if err != nil {
		return err
	}
	m.Options = append(m.Options, opt)
	e.dirty = true
	return nil
}

// UpdateOption replaces the option at index i
func (e *Editor) UpdateOption(i int, opt MenuOption) error {
	m, err := e.menu()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(m.Options) {
		return appErrors.NewNotFoundError("menu option", strconv.Itoa(i))
	}
	m.Options[i] = opt
	e.dirty = true
	return nil
}

// RemoveOption deletes the option at index i
func (e *Editor) RemoveOption(i int) error {
	m, err := e.menu()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(m.Options) {
		return appErrors.NewNotFoundError("menu option", strconv.Itoa(i))
	}
	m.Options = append(m.Options[:i], m.Options[i+1:]...)
	e.dirty = true
	return nil
}

// SetDay opens the hours node on day between start and end ("HH:MM")
func (e *Editor) SetDay(day, start, end string) error {
	h, err := e.hours()
	if err != nil {
		return err
	}
	day = strings.ToLower(strings.TrimSpace(day))
	if !isWeekday(day) {
		return appErrors.NewValidationError("schedule", fmt.Sprintf("'%s' is not a weekday", day))
	}
	if h.Schedule == nil {
		h.Schedule = make(map[string]DayHours)
	}
	window := h.Schedule[day]
	window.Start, window.End = start, end
	h.Schedule[day] = window
	e.dirty = true
	return nil
}

// CloseDay removes a day from the schedule
func (e *Editor) CloseDay(day string) error {
	h, err := e.hours()
	if err != nil {
		return err
	}
	delete(h.Schedule, strings.ToLower(strings.TrimSpace(day)))
	e.dirty = true
	return nil
}

// SetTimezone sets the IANA zone the schedule is read in
func (e *Editor) SetTimezone(tz string) error {
	h, err := e.hours()
	if err != nil {
		return err
	}
	h.Timezone = tz
	e.dirty = true
	return nil
}

// Validate runs the field contracts against the staged config
func (e *Editor) Validate() []appErrors.FieldError {
	fields := ValidateConfig(e.staged)
	for i := range fields {
		fields[i].Path = joinPath("config", fields[i].Path)
	}
	return fields
}

// Save commits the staged config. Any failed contract blocks the save with a
// ValidationError and the document keeps its previous config.
func (e *Editor) Save() error {
	if fields := e.Validate(); len(fields) > 0 {
		return appErrors.NewValidationErrors(fields)
	}
	if err := e.doc.replaceConfig(e.nodeID, e.staged); err != nil {
		return err
	}
	e.dirty = false
	return nil
}

// Discard drops staged changes and reloads the node's config
func (e *Editor) Discard() error {
	n, ok := e.doc.nodes[e.nodeID]
	if !ok {
		return appErrors.NewNotFoundError(resourceNode, e.nodeID)
	}
	e.staged = CloneConfig(n.Config)
	e.dirty = false
	return nil
}

func joinPath(prefix, path string) string {
	if path == "" {
		return prefix
	}
	return prefix + "." + path
}

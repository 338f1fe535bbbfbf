package ivr

import (
	"fmt"

	"github.com/nexora/backend/internal/domain/models"
	appErrors "github.com/nexora/backend/pkg/errors"
)

const resourceNode = "IVR node"

// Document is an editable IVR flow held as an arena of nodes keyed by id.
// order is the serialization order; order[0] is the root.
type Document struct {
	ID        string
	Name      string
	IsActive  bool
	Version   int64
	TenantID  string
	CreatedAt int64
	UpdatedAt int64

	nodes map[string]*Node
	order []string
}

// NewDocument creates an empty flow
func NewDocument(id, name string) *Document {
	return &Document{
		ID:    id,
		Name:  name,
		nodes: make(map[string]*Node),
	}
}

// FromModel builds a Document from its wire form.
// Duplicate or empty node ids and undecodable configs are rejected.
func FromModel(flow *models.IVRFlow) (*Document, error) {
	doc := NewDocument(flow.ID, flow.Name)
	doc.IsActive = flow.IsActive
	doc.Version = flow.Version
	doc.TenantID = flow.TenantID
	doc.CreatedAt = flow.CreatedAt
	doc.UpdatedAt = flow.UpdatedAt

	var fields []appErrors.FieldError
	for i, wire := range flow.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		if wire.ID == "" {
			fields = append(fields, appErrors.FieldError{Path: path + ".id", Message: "is required"})
			continue
		}
		if _, dup := doc.nodes[wire.ID]; dup {
			fields = append(fields, appErrors.FieldError{Path: path + ".id", Message: fmt.Sprintf("duplicate node id '%s'", wire.ID)})
			continue
		}
		n, err := nodeFromModel(wire)
		if err != nil {
			fields = append(fields, appErrors.FieldError{Path: path + ".config", Message: err.Error()})
			continue
		}
		doc.nodes[n.ID] = n
		doc.order = append(doc.order, n.ID)
	}
	if len(fields) > 0 {
		return nil, appErrors.NewValidationErrors(fields)
	}
	return doc, nil
}

func nodeFromModel(wire models.IVRNode) (*Node, error) {
	t := NodeType(wire.Type)
	cfg, err := DecodeConfig(t, wire.Config)
	if err != nil {
		return nil, err
	}
	n := &Node{
		ID:     wire.ID,
		Type:   t,
		Config: cfg,
	}
	if wire.Next != nil {
		n.Next = *wire.Next
	}
	if wire.DefaultNext != nil {
		n.DefaultNext = *wire.DefaultNext
	}
	if wire.Branches != nil {
		n.Branches = make(map[string]string, len(wire.Branches))
		for k, v := range wire.Branches {
			n.Branches[k] = v
		}
	}
	return n, nil
}

// ToModel renders the document in its wire form, nodes in serialization order
func (d *Document) ToModel() *models.IVRFlow {
	flow := &models.IVRFlow{
		ID:        d.ID,
		Name:      d.Name,
		IsActive:  d.IsActive,
		Version:   d.Version,
		TenantID:  d.TenantID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Nodes:     make([]models.IVRNode, 0, len(d.order)),
	}
	for _, id := range d.order {
		n := d.nodes[id]
		wire := models.IVRNode{
			ID:     n.ID,
			Type:   string(n.Type),
			Config: n.Config.ToMap(),
		}
		if n.Next != "" {
			next := n.Next
			wire.Next = &next
		}
		if n.DefaultNext != "" {
			def := n.DefaultNext
			wire.DefaultNext = &def
		}
		if len(n.Branches) > 0 {
			wire.Branches = make(map[string]string, len(n.Branches))
			for k, v := range n.Branches {
				wire.Branches[k] = v
			}
		}
		flow.Nodes = append(flow.Nodes, wire)
	}
	return flow
}

// Rename replaces the flow name
func (d *Document) Rename(name string) {
	d.Name = name
}

// SetActive toggles the display-only active flag
func (d *Document) SetActive(active bool) {
	d.IsActive = active
}

// Len returns the number of nodes
func (d *Document) Len() int {
	return len(d.order)
}

// Root returns a copy of the first node, or false for an empty flow
func (d *Document) Root() (Node, bool) {
	if len(d.order) == 0 {
		return Node{}, false
	}
	return *d.nodes[d.order[0]].clone(), true
}

// Node returns a copy of the node with the given id
func (d *Document) Node(id string) (Node, bool) {
	n, ok := d.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n.clone(), true
}

// Nodes returns copies of all nodes in serialization order
func (d *Document) Nodes() []Node {
	out := make([]Node, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, *d.nodes[id].clone())
	}
	return out
}

// Has reports whether a node with the given id exists
func (d *Document) Has(id string) bool {
	_, ok := d.nodes[id]
	return ok
}

func (d *Document) indexOf(id string) int {
	for i, v := range d.order {
		if v == id {
			return i
		}
	}
	return -1
}

// InsertAfter adds n to the flow.
// With afterID empty the node is appended and no pointers change. Otherwise the
// node goes right after the anchor and is spliced into its next chain.
// A missing anchor is a NotFoundError and leaves the document unchanged.
func (d *Document) InsertAfter(afterID string, n Node) error {
	if n.ID == "" {
		return appErrors.NewValidationError("id", "node id is required")
	}
	if _, exists := d.nodes[n.ID]; exists {
		return appErrors.NewConflictError(resourceNode, "id", n.ID)
	}

	node := n.clone()
	if node.Config == nil {
		node.Config = newConfig(node.Type)
	}

	if afterID == "" {
		d.nodes[node.ID] = node
		d.order = append(d.order, node.ID)
		return nil
	}

	idx := d.indexOf(afterID)
	if idx < 0 {
		return appErrors.NewNotFoundError(resourceNode, afterID)
	}
	anchor := d.nodes[afterID]
	node.Next = anchor.Next
	anchor.Next = node.ID

	d.place(node, idx+1)
	return nil
}

// place stores n at position pos of the serialization order
func (d *Document) place(n *Node, pos int) {
	d.nodes[n.ID] = n
	d.order = append(d.order, "")
	copy(d.order[pos+1:], d.order[pos:])
	d.order[pos] = n.ID
}

// DeleteNode removes one node and redirects every pointer that targeted it
// (next, defaultNext, branches, menu option targets) to the deleted node's
// own next. When the root is deleted its successor becomes the root.
func (d *Document) DeleteNode(id string) error {
	target, ok := d.nodes[id]
	if !ok {
		return appErrors.NewNotFoundError(resourceNode, id)
	}
	wasRoot := d.order[0] == id

	succ := target.Next
	if succ == id {
		succ = ""
	}

	idx := d.indexOf(id)
	delete(d.nodes, id)
	d.order = append(d.order[:idx], d.order[idx+1:]...)

	for _, other := range d.order {
		redirect(d.nodes[other], id, succ)
	}

	if wasRoot && succ != "" {
		if pos := d.indexOf(succ); pos > 0 {
			copy(d.order[1:pos+1], d.order[:pos])
			d.order[0] = succ
		}
	}
	return nil
}

// redirect rewrites n's pointers from one id to another; a pointer that would
// end up targeting n itself is cleared.
func redirect(n *Node, from, to string) {
	if to == n.ID {
		to = ""
	}
	if n.Next == from {
		n.Next = to
	}
	if n.DefaultNext == from {
		n.DefaultNext = to
	}
	for label, target := range n.Branches {
		if target != from {
			continue
		}
		if to == "" {
			delete(n.Branches, label)
		} else {
			n.Branches[label] = to
		}
	}
	if menu, ok := n.Config.(*MenuConfig); ok {
		for i := range menu.Options {
			if menu.Options[i].Next == from {
				menu.Options[i].Next = to
				if to == "" {
					delete(menu.Options[i].present, "next")
				}
			}
		}
	}
}

// PatchConfig shallow-merges partial into the node's config. A nil value
// removes the key. Applying the same patch twice yields the same config.
func (d *Document) PatchConfig(id string, partial map[string]interface{}) error {
	n, ok := d.nodes[id]
	if !ok {
		return appErrors.NewNotFoundError(resourceNode, id)
	}
	cfg, err := mergeConfig(n.Config, partial)
	if err != nil {
		return appErrors.NewValidationError("config", err.Error())
	}
	n.Config = cfg
	return nil
}

func (d *Document) replaceConfig(id string, cfg NodeConfig) error {
	n, ok := d.nodes[id]
	if !ok {
		return appErrors.NewNotFoundError(resourceNode, id)
	}
	if cfg.NodeType() != n.Type {
		return appErrors.NewValidationError("config", fmt.Sprintf("%s config cannot be stored on a %s node", cfg.NodeType(), n.Type))
	}
	n.Config = CloneConfig(cfg)
	return nil
}

func (d *Document) checkTarget(target string) error {
	if target == "" {
		return nil
	}
	if _, ok := d.nodes[target]; !ok {
		return appErrors.NewNotFoundError(resourceNode, target)
	}
	return nil
}

// SetNext points id's next at target; an empty target clears it
func (d *Document) SetNext(id, target string) error {
	n, ok := d.nodes[id]
	if !ok {
		return appErrors.NewNotFoundError(resourceNode, id)
	}
	if err := d.checkTarget(target); err != nil {
		return err
	}
	n.Next = target
	return nil
}

// SetDefaultNext sets the fallback route of a conditional node
func (d *Document) SetDefaultNext(id, target string) error {
	n, ok := d.nodes[id]
	if !ok {
		return appErrors.NewNotFoundError(resourceNode, id)
	}
	if !MetadataFor(n.Type).Conditional {
		return appErrors.NewValidationError("defaultNext", fmt.Sprintf("%s nodes do not support a default route", n.Type))
	}
	if err := d.checkTarget(target); err != nil {
		return err
	}
	n.DefaultNext = target
	return nil
}

// SetBranch sets a named branch of a conditional node; an empty target removes it
func (d *Document) SetBranch(id, label, target string) error {
	n, ok := d.nodes[id]
	if !ok {
		return appErrors.NewNotFoundError(resourceNode, id)
	}
	if !MetadataFor(n.Type).Conditional {
		return appErrors.NewValidationError("branches", fmt.Sprintf("%s nodes do not support branches", n.Type))
	}
	if label == "" {
		return appErrors.NewValidationError("branches", "branch label is required")
	}
	if target == "" {
		delete(n.Branches, label)
		return nil
	}
	if err := d.checkTarget(target); err != nil {
		return err
	}
	if n.Branches == nil {
		n.Branches = make(map[string]string)
	}
	n.Branches[label] = target
	return nil
}

// NewNodeID returns a fresh "{type}-{millis}" id unique within the document
func (d *Document) NewNodeID(t NodeType) string {
	return newNodeID(t, d.Has)
}

// CreateNode inserts an empty node of type t after afterID (appending when
// afterID is empty) and opens an editor on it.
func (d *Document) CreateNode(t NodeType, afterID string) (*Editor, error) {
	if !IsKnown(t) {
		return nil, appErrors.NewValidationError("type", fmt.Sprintf("unknown node type '%s'", t))
	}
	id := d.NewNodeID(t)
	if err := d.InsertAfter(afterID, Node{ID: id, Type: t, Config: newConfig(t)}); err != nil {
		return nil, err
	}
	return d.Edit(id)
}

// DuplicateNode copies a node's config and outgoing routes into a new node
// placed right after the original. Nothing points at the copy yet.
func (d *Document) DuplicateNode(id string) (Node, error) {
	src, ok := d.nodes[id]
	if !ok {
		return Node{}, appErrors.NewNotFoundError(resourceNode, id)
	}
	dup := src.clone()
	dup.ID = d.NewNodeID(src.Type)
	d.place(dup, d.indexOf(id)+1)
	return *dup.clone(), nil
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	out := *d
	out.nodes = make(map[string]*Node, len(d.nodes))
	for id, n := range d.nodes {
		out.nodes[id] = n.clone()
	}
	out.order = append([]string(nil), d.order...)
	return &out
}

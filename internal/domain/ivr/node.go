package ivr

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Branch labels used by hours nodes
const (
	BranchOpen   = "open"
	BranchClosed = "closed"
)

// Node is one step of a flow. An empty pointer string means "no successor".
type Node struct {
	ID          string
	Type        NodeType
	Config      NodeConfig
	Next        string
	Branches    map[string]string
	DefaultNext string
}

// Metadata returns the registry entry or the unknown placeholder
func (n *Node) Metadata() Metadata {
	return MetadataFor(n.Type)
}

func (n *Node) clone() *Node {
	out := *n
	out.Config = CloneConfig(n.Config)
	if n.Branches != nil {
		out.Branches = make(map[string]string, len(n.Branches))
		for k, v := range n.Branches {
			out.Branches[k] = v
		}
	}
	return &out
}

// Edge is one routing pointer out of a node
type Edge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Label    string `json:"label"`
	Dangling bool   `json:"dangling,omitempty"`
}

// successors lists n's outgoing pointers: next, hours branches (open, closed,
// then the rest sorted), menu options in order, then defaultNext.
func successors(n *Node) []Edge {
	var out []Edge
	add := func(to, label string) {
		if to != "" {
			out = append(out, Edge{From: n.ID, To: to, Label: label})
		}
	}

	add(n.Next, "next")

	if len(n.Branches) > 0 {
		add(n.Branches[BranchOpen], BranchOpen)
		add(n.Branches[BranchClosed], BranchClosed)
		labels := make([]string, 0, len(n.Branches))
		for label := range n.Branches {
			if label != BranchOpen && label != BranchClosed {
				labels = append(labels, label)
			}
		}
		sort.Strings(labels)
		for _, label := range labels {
			add(n.Branches[label], label)
		}
	}

	if menu, ok := n.Config.(*MenuConfig); ok {
		for _, opt := range menu.Options {
			add(opt.Next, "press "+opt.Digit)
		}
	}

	add(n.DefaultNext, "default")
	return out
}

// clock is swapped in tests to force id collisions
var clock = time.Now

// newNodeID builds "{type}-{unix-millis}", suffixed -2, -3... while taken
func newNodeID(t NodeType, taken func(string) bool) string {
	base := fmt.Sprintf("%s-%d", t, clock().UnixMilli())
	id := base
	for i := 2; taken(id); i++ {
		id = base + "-" + strconv.Itoa(i)
	}
	return id
}

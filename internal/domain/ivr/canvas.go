package ivr

import (
	"fmt"
	"strings"
)

const previewRunes = 60

// Card is one node as the canvas shows it
type Card struct {
	NodeID      string   `json:"nodeId"`
	Type        NodeType `json:"type"`
	Label       string   `json:"label"`
	Icon        string   `json:"icon"`
	Color       string   `json:"color"`
	Preview     string   `json:"preview"`
	Depth       int      `json:"depth"`
	Unknown     bool     `json:"unknown,omitempty"`
	Unreachable bool     `json:"unreachable,omitempty"`
	// LinkedFromPrev is set when a pointer really joins the previous card to this one
	LinkedFromPrev bool `json:"linkedFromPrev"`
}

// Canvas is the flow laid out in routing order
type Canvas struct {
	FlowID string `json:"flowId"`
	Name   string `json:"name"`
	Cards  []Card `json:"cards"`
	Edges  []Edge `json:"edges"`
}

// BuildCanvas walks pointers depth-first from the root so the card order
// follows routing, then lists the unreachable nodes in serialization order.
func BuildCanvas(doc *Document) Canvas {
	c := Canvas{FlowID: doc.ID, Name: doc.Name, Cards: []Card{}, Edges: []Edge{}}
	if doc.Len() == 0 {
		return c
	}

	visited := make(map[string]bool, doc.Len())
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		n, ok := doc.nodes[id]
		if !ok || visited[id] {
			return
		}
		visited[id] = true
		c.Cards = append(c.Cards, newCard(n, depth, false))
		for _, e := range successors(n) {
			walk(e.To, depth+1)
		}
	}
	walk(doc.order[0], 0)

	for _, id := range doc.order {
		if !visited[id] {
			visited[id] = true
			c.Cards = append(c.Cards, newCard(doc.nodes[id], 0, true))
		}
	}

	linked := make(map[[2]string]bool)
	for _, card := range c.Cards {
		for _, e := range successors(doc.nodes[card.NodeID]) {
			e.Dangling = !doc.Has(e.To)
			c.Edges = append(c.Edges, e)
			linked[[2]string{e.From, e.To}] = true
		}
	}
	for i := 1; i < len(c.Cards); i++ {
		c.Cards[i].LinkedFromPrev = linked[[2]string{c.Cards[i-1].NodeID, c.Cards[i].NodeID}]
	}
	return c
}

func newCard(n *Node, depth int, unreachable bool) Card {
	md := MetadataFor(n.Type)
	return Card{
		NodeID:      n.ID,
		Type:        n.Type,
		Label:       md.Label,
		Icon:        md.Icon,
		Color:       md.Color,
		Preview:     preview(n, md),
		Depth:       depth,
		Unknown:     !md.Known,
		Unreachable: unreachable,
	}
}

// preview is the message (truncated), else queueName, else phoneNumber,
// else the type description
func preview(n *Node, md Metadata) string {
	var m map[string]interface{}
	if n.Config != nil {
		m = n.Config.ToMap()
	}
	for _, key := range []string{"message", "queueName", "phoneNumber"} {
		if s, ok := m[key].(string); ok && s != "" {
			if key == "message" {
				return truncate(s, previewRunes)
			}
			return s
		}
	}
	return md.Description
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}

// RenderText draws the canvas as a vertical list of cards
func RenderText(c Canvas) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)\n", c.Name, c.FlowID)

	out := make(map[string][]Edge)
	for _, e := range c.Edges {
		out[e.From] = append(out[e.From], e)
	}

	for i, card := range c.Cards {
		if i > 0 {
			if card.LinkedFromPrev {
				sb.WriteString("    |\n    v\n")
			} else {
				sb.WriteString("\n")
			}
		}
		indent := strings.Repeat("  ", card.Depth)
		flags := ""
		if card.Unknown {
			flags += " [unknown type: " + string(card.Type) + "]"
		}
		if card.Unreachable {
			flags += " [unreachable]"
		}
		fmt.Fprintf(&sb, "%s[%s] %s%s\n", indent, card.NodeID, card.Label, flags)
		fmt.Fprintf(&sb, "%s    %s\n", indent, card.Preview)
		for _, e := range out[card.NodeID] {
			target := e.To
			if e.Dangling {
				target += " (missing)"
			}
			fmt.Fprintf(&sb, "%s    %s -> %s\n", indent, e.Label, target)
		}
	}
	return sb.String()
}

// RenderMermaid produces a Mermaid flowchart of the canvas.
// Conditional nodes are drawn as decisions and terminal nodes as stadiums.
func RenderMermaid(c Canvas) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, card := range c.Cards {
		safeID := sanitizeMermaidID(card.NodeID)
		opener, closer := "[", "]"
		md := MetadataFor(card.Type)
		switch {
		case md.Conditional:
			opener, closer = "{", "}"
		case md.Terminal:
			opener, closer = "([", "])"
		}
		label := strings.ReplaceAll(card.Label+": "+card.Preview, "\"", "'")
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))
	}

	for _, e := range c.Edges {
		from := sanitizeMermaidID(e.From)
		to := sanitizeMermaidID(e.To)
		if e.Dangling {
			sb.WriteString(fmt.Sprintf("    %s[\"missing: %s\"]\n", to, e.To))
		}
		if e.Label == "next" {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", from, to))
			continue
		}
		sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", from, strings.ReplaceAll(e.Label, "\"", "'"), to))
	}

	var unknown, unreachable []string
	for _, card := range c.Cards {
		if card.Unknown {
			unknown = append(unknown, sanitizeMermaidID(card.NodeID))
		}
		if card.Unreachable {
			unreachable = append(unreachable, sanitizeMermaidID(card.NodeID))
		}
	}
	if len(unknown) > 0 || len(unreachable) > 0 {
		sb.WriteString("\n    classDef unknown fill:#fee2e2,stroke:#b91c1c,color:#000;\n")
		sb.WriteString("    classDef unreachable stroke-dasharray: 5 5,color:#6b7280;\n")
		if len(unknown) > 0 {
			sb.WriteString(fmt.Sprintf("    class %s unknown;\n", strings.Join(unknown, ",")))
		}
		if len(unreachable) > 0 {
			sb.WriteString(fmt.Sprintf("    class %s unreachable;\n", strings.Join(unreachable, ",")))
		}
	}
	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

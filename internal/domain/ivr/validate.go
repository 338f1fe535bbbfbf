package ivr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nexora/backend/internal/domain/models"
	appErrors "github.com/nexora/backend/pkg/errors"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding of a document check
type Issue struct {
	Severity Severity `json:"severity"`
	NodeID   string   `json:"nodeId,omitempty"`
	Path     string   `json:"path"`
	Message  string   `json:"message"`
}

// Report collects every finding; a flow with any error cannot be saved
type Report struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func (r *Report) errorf(nodeID, path, format string, args ...interface{}) {
	r.Errors = append(r.Errors, Issue{Severity: SeverityError, NodeID: nodeID, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warnf(nodeID, path, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, Issue{Severity: SeverityWarning, NodeID: nodeID, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) finish() Report {
	r.Valid = len(r.Errors) == 0
	if r.Errors == nil {
		r.Errors = []Issue{}
	}
	if r.Warnings == nil {
		r.Warnings = []Issue{}
	}
	return *r
}

// Err converts the report's errors into a ValidationError, or nil when valid
func (r Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	fields := make([]appErrors.FieldError, 0, len(r.Errors))
	for _, issue := range r.Errors {
		fields = append(fields, appErrors.FieldError{Path: issue.Path, Message: issue.Message})
	}
	return appErrors.NewValidationErrors(fields)
}

func nodePath(id string) string {
	return "nodes[" + id + "]"
}

// ValidateModel checks a wire document, including problems the arena cannot
// represent (duplicate ids, configs of the wrong shape).
func ValidateModel(flow *models.IVRFlow) Report {
	doc, err := FromModel(flow)
	if err == nil {
		return Validate(doc)
	}

	var r Report
	if strings.TrimSpace(flow.Name) == "" {
		r.errorf("", "name", "is required")
	}
	var ve *appErrors.ValidationError
	if errors.As(err, &ve) {
		for _, f := range ve.Fields {
			r.errorf("", f.Path, "%s", f.Message)
		}
	} else {
		r.errorf("", "nodes", "%s", err.Error())
	}
	return r.finish()
}

// Validate checks a document's fields, pointers, reachability and loops
func Validate(doc *Document) Report {
	var r Report

	if strings.TrimSpace(doc.Name) == "" {
		r.errorf("", "name", "is required")
	}
	if doc.Len() == 0 {
		r.errorf("", "nodes", "flow has no nodes")
		return r.finish()
	}

	for _, id := range doc.order {
		n := doc.nodes[id]
		base := nodePath(id)
		md := MetadataFor(n.Type)

		if !md.Known {
			r.errorf(id, base+".type", "unknown node type '%s'", n.Type)
		}
		for _, f := range ValidateConfig(n.Config) {
			r.errorf(id, joinPath(base+".config", f.Path), "%s", f.Message)
		}
		if md.Known && !md.Conditional {
			if len(n.Branches) > 0 {
				r.warnf(id, base+".branches", "%s nodes ignore branches", n.Type)
			}
			if n.DefaultNext != "" {
				r.warnf(id, base+".defaultNext", "%s nodes ignore defaultNext", n.Type)
			}
		}
		if md.Terminal && n.Next != "" {
			r.warnf(id, base+".next", "%s ends the call; next is never followed", n.Type)
		}

		for _, e := range successors(n) {
			if !doc.Has(e.To) {
				r.errorf(id, base+"."+edgeField(n, e), "points to missing node '%s'", e.To)
			}
		}
	}

	reachable := reachableFrom(doc, doc.order[0])
	for _, id := range doc.order {
		if !reachable[id] {
			r.warnf(id, nodePath(id), "node is not reachable from the first node")
		}
	}

	for _, scc := range stronglyConnected(doc) {
		hasMenu := false
		for _, id := range scc {
			if doc.nodes[id].Type == TypeMenu {
				hasMenu = true
				break
			}
		}
		if !hasMenu {
			r.errorf(scc[0], nodePath(scc[0]), "loop without a menu never waits for the caller: %s", strings.Join(scc, " -> "))
		}
	}

	return r.finish()
}

// edgeField names the field that holds edge e of n
func edgeField(n *Node, e Edge) string {
	switch {
	case e.Label == "next":
		return "next"
	case e.Label == "default":
		return "defaultNext"
	case strings.HasPrefix(e.Label, "press "):
		if menu, ok := n.Config.(*MenuConfig); ok {
			digit := strings.TrimPrefix(e.Label, "press ")
			for i, opt := range menu.Options {
				if opt.Digit == digit && opt.Next == e.To {
					return fmt.Sprintf("config.options[%d].next", i)
				}
			}
		}
		return "config.options"
	default:
		return "branches." + e.Label
	}
}

func reachableFrom(doc *Document, root string) map[string]bool {
	seen := map[string]bool{}
	stack := []string{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		n, ok := doc.nodes[id]
		if !ok {
			continue
		}
		seen[id] = true
		for _, e := range successors(n) {
			if !seen[e.To] {
				stack = append(stack, e.To)
			}
		}
	}
	return seen
}

// stronglyConnected returns every cycle-forming component (Tarjan), members
// listed in serialization order.
func stronglyConnected(doc *Document) [][]string {
	index := 0
	indices := map[string]int{}
	lowlink := map[string]int{}
	onStack := map[string]bool{}
	var stack []string
	var out [][]string

	var strongConnect func(id string)
	strongConnect = func(id string) {
		indices[id] = index
		lowlink[id] = index
		index++
		stack = append(stack, id)
		onStack[id] = true

		selfLoop := false
		for _, e := range successors(doc.nodes[id]) {
			if !doc.Has(e.To) {
				continue
			}
			if e.To == id {
				selfLoop = true
			}
			if _, visited := indices[e.To]; !visited {
				strongConnect(e.To)
				lowlink[id] = min(lowlink[id], lowlink[e.To])
			} else if onStack[e.To] {
				lowlink[id] = min(lowlink[id], indices[e.To])
			}
		}

		if lowlink[id] != indices[id] {
			return
		}
		members := map[string]bool{}
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			members[top] = true
			if top == id {
				break
			}
		}
		if len(members) > 1 || selfLoop {
			scc := make([]string, 0, len(members))
			for _, v := range doc.order {
				if members[v] {
					scc = append(scc, v)
				}
			}
			out = append(out, scc)
		}
	}

	for _, id := range doc.order {
		if _, visited := indices[id]; !visited {
			strongConnect(id)
		}
	}
	return out
}

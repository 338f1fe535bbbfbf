package ivr

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/nexora/backend/pkg/errors"
)

// MaxTraceSteps bounds a trace; hitting it means the caller is stuck in a loop
const MaxTraceSteps = 64

type Outcome string

const (
	OutcomeQueued      Outcome = "queued"
	OutcomeTransferred Outcome = "transferred"
	OutcomeVoicemail   Outcome = "voicemail"
	OutcomeHangup      Outcome = "hangup"
	OutcomeDangling    Outcome = "dangling"
	OutcomeLoop        Outcome = "loop"
	OutcomeUnknown     Outcome = "unknown"
)

// Call describes a simulated inbound call
type Call struct {
	At     time.Time `json:"at"`
	Digits []string  `json:"digits"`
	Caller string    `json:"caller"`
}

// Step is one node the call passed through
type Step struct {
	NodeID string   `json:"nodeId"`
	Type   NodeType `json:"type"`
	Action string   `json:"action"`
	Via    string   `json:"via,omitempty"`
	Next   string   `json:"next,omitempty"`
}

// TraceResult is where the call ended up
type TraceResult struct {
	Steps   []Step  `json:"steps"`
	Outcome Outcome `json:"outcome"`
	// Target is the queue, phone number or mailbox the call was handed to,
	// or the missing node id for a dangling trace
	Target string `json:"target,omitempty"`
}

// ConditionEvaluator runs an hours condition
type ConditionEvaluator interface {
	EvaluateBool(expression string, env map[string]interface{}) (bool, error)
}

// Trace follows a call from the root. Hours nodes check their schedule in the
// node's timezone and then the optional condition; menus consume one digit
// each. A nil evaluator uses the built-in expression engine.
func Trace(doc *Document, call Call, eval ConditionEvaluator) (TraceResult, error) {
	if doc.Len() == 0 {
		return TraceResult{}, appErrors.NewValidationError("nodes", "flow has no nodes")
	}
	if eval == nil {
		eval = conditions
	}
	if call.At.IsZero() {
		call.At = time.Now()
	}

	res := TraceResult{Steps: []Step{}}
	digits := call.Digits
	cur := doc.order[0]

	for {
		if len(res.Steps) == MaxTraceSteps {
			res.Outcome = OutcomeLoop
			return res, nil
		}
		n, ok := doc.nodes[cur]
		if !ok {
			res.Outcome = OutcomeDangling
			res.Target = cur
			return res, nil
		}

		step := Step{NodeID: n.ID, Type: n.Type}
		switch cfg := n.Config.(type) {
		case *QueueConfig:
			step.Action = "queue " + cfg.QueueName
			res.Steps = append(res.Steps, step)
			res.Outcome, res.Target = OutcomeQueued, cfg.QueueName
			return res, nil
		case *TransferConfig:
			step.Action = "transfer to " + cfg.PhoneNumber
			res.Steps = append(res.Steps, step)
			res.Outcome, res.Target = OutcomeTransferred, cfg.PhoneNumber
			return res, nil
		case *VoicemailConfig:
			step.Action = "record voicemail"
			res.Steps = append(res.Steps, step)
			res.Outcome, res.Target = OutcomeVoicemail, cfg.Email
			return res, nil
		case *UnknownConfig:
			step.Action = "unknown node type " + string(cfg.Type)
			res.Steps = append(res.Steps, step)
			res.Outcome = OutcomeUnknown
			return res, nil
		case *HoursConfig:
			open, err := isOpen(cfg, call, eval)
			if err != nil {
				return res, appErrors.NewValidationError(nodePath(n.ID)+".config.condition", err.Error())
			}
			label := BranchClosed
			if open {
				label = BranchOpen
			}
			step.Action = label
			step.Next, step.Via = fallback(n, n.Branches[label], label)
		case *MenuConfig:
			var digit string
			if len(digits) > 0 {
				digit, digits = digits[0], digits[1:]
			}
			target := ""
			for _, opt := range cfg.Options {
				if opt.Digit == digit && digit != "" {
					target = opt.Next
					break
				}
			}
			switch {
			case digit == "":
				step.Action = "no input"
			case target == "":
				step.Action = "invalid digit " + digit
			default:
				step.Action = "pressed " + digit
			}
			step.Next, step.Via = fallback(n, target, "press "+digit)
		default:
			step.Action = "play"
			step.Next, step.Via = n.Next, "next"
		}

		if step.Next == "" {
			step.Via = ""
			res.Steps = append(res.Steps, step)
			res.Outcome = OutcomeHangup
			return res, nil
		}
		res.Steps = append(res.Steps, step)
		cur = step.Next
	}
}

// fallback picks the chosen route, then defaultNext, then next
func fallback(n *Node, chosen, via string) (string, string) {
	switch {
	case chosen != "":
		return chosen, via
	case n.DefaultNext != "":
		return n.DefaultNext, "default"
	default:
		return n.Next, "next"
	}
}

// isOpen applies the weekly schedule (skipped when empty) and the condition
func isOpen(h *HoursConfig, call Call, eval ConditionEvaluator) (bool, error) {
	loc, err := loadLocation(h.Timezone)
	if err != nil {
		return false, fmt.Errorf("unknown timezone '%s'", h.Timezone)
	}
	local := call.At.In(loc)

	open := true
	if len(h.Schedule) > 0 {
		day := strings.ToLower(local.Weekday().String())
		window, ok := h.Schedule[day]
		// "HH:MM" compares as text; "24:00" sorts after every minute of the day
		now := local.Format("15:04")
		open = ok && now >= window.Start && now < window.End
	}
	if !open || h.Condition == "" {
		return open, nil
	}
	return eval.EvaluateBool(h.Condition, conditionEnv(local, call.Caller))
}

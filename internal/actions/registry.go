package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/prompt"
)

// Override replaces fields of a base action. Zero fields keep the base value.
type Override struct {
	Description string
	Condition   string
	Validate    Validator
	Handler     Handler
	Examples    [][]Example
}

// Apply returns a copy of a with the override's non-zero fields.
func (o Override) Apply(a Action) Action {
	if o.Description != "" {
		a.Description = o.Description
	}
	if o.Condition != "" {
		a.Condition = o.Condition
	}
	if o.Validate != nil {
		a.Validate = o.Validate
	}
	if o.Handler != nil {
		a.Handler = o.Handler
	}
	if o.Examples != nil {
		a.Examples = o.Examples
	}
	return a
}

// Merge layers other on top of o.
func (o Override) Merge(other Override) Override {
	if other.Description != "" {
		o.Description = other.Description
	}
	if other.Condition != "" {
		o.Condition = other.Condition
	}
	if other.Validate != nil {
		o.Validate = other.Validate
	}
	if other.Handler != nil {
		o.Handler = other.Handler
	}
	if other.Examples != nil {
		o.Examples = other.Examples
	}
	return o
}

// Entry is a base action with an optional deployment override.
type Entry struct {
	Base     Action
	Override *Override
}

// Registry holds actions by upper-case name. It is read-only once built and
// safe for concurrent use.
type Registry struct {
	ordered []Action
	byName  map[string]int
}

// NewRegistry builds a registry from entries in order. Names are upper-cased;
// duplicates and entries without a handler are rejected.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(entries))}
	for _, e := range entries {
		a := e.Base
		if e.Override != nil {
			a = e.Override.Apply(a)
		}
		a.Name = strings.ToUpper(strings.TrimSpace(a.Name))
		if a.Name == "" {
			return nil, fmt.Errorf("action without a name")
		}
		if a.Handler == nil {
			return nil, fmt.Errorf("action %s has no handler", a.Name)
		}
		if _, dup := r.byName[a.Name]; dup {
			return nil, fmt.Errorf("action %s registered twice", a.Name)
		}
		r.byName[a.Name] = len(r.ordered)
		r.ordered = append(r.ordered, a)
	}
	return r, nil
}

// Get returns the action called name, case-insensitively.
func (r *Registry) Get(name string) (Action, bool) {
	i, ok := r.byName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Action{}, false
	}
	return r.ordered[i], true
}

// All returns every action in registration order.
func (r *Registry) All() []Action {
	return append([]Action(nil), r.ordered...)
}

// Names returns every action name in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.ordered))
	for i, a := range r.ordered {
		names[i] = a.Name
	}
	return names
}

// Valid returns the actions that apply to msg.
func (r *Registry) Valid(ctx context.Context, rt Runtime, msg *memory.Message) []Action {
	var out []Action
	for _, a := range r.ordered {
		if a.Valid(ctx, rt, msg) {
			out = append(out, a)
		}
	}
	return out
}

// Names returns the names of actions.
func Names(actions []Action) []string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.Name
	}
	return names
}

// FormatActions renders the model-facing action menu.
func FormatActions(actions []Action) string {
	var sb strings.Builder
	for _, a := range actions {
		fmt.Fprintf(&sb, "%s: %s", a.Name, a.Description)
		if a.Condition != "" {
			fmt.Fprintf(&sb, " (use when: %s)", a.Condition)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatExamples renders every example conversation, substituting {{user1}}
// with userName and {{agent}} with agentName.
func FormatExamples(actions []Action, agentName, userName string) string {
	vars := map[string]string{"agent": agentName, "agentName": agentName, "user1": userName}
	var sb strings.Builder
	for _, a := range actions {
		for _, convo := range a.Examples {
			for _, turn := range convo {
				fmt.Fprintf(&sb, "%s: %s", prompt.Compose(vars, turn.User), prompt.Compose(vars, turn.Content.Text))
				if turn.Content.Action != "" {
					fmt.Fprintf(&sb, " (%s)", turn.Content.Action)
				}
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

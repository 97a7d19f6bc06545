package agent

import (
	"context"

	"github.com/cojourney/cjagent/internal/actions"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/state"
)

// Built-in action names.
const (
	ActionWait      = "WAIT"
	ActionIgnore    = "IGNORE"
	ActionElaborate = "ELABORATE"
	// ActionNewUser tags the synthetic join message written by Onboard.
	ActionNewUser = "NEW_USER"
)

func noop(context.Context, actions.Runtime, *memory.Message, *state.State) (actions.Result, error) {
	return actions.Result{}, nil
}

var waitAction = actions.Action{
	Name:        ActionWait,
	Description: "Do nothing and wait for another person to reply to the last message, or to continue their thought",
	Condition:   "The agent wants to wait for the user to respond",
	Handler:     noop,
	Examples: [][]actions.Example{{
		{User: "{{user1}}", Content: memory.Content{Text: "Please wait a moment, I need to check something.", Action: ActionWait}},
		{User: "{{agent}}", Content: memory.Content{Text: "Of course, take your time.", Action: ActionWait}},
	}},
}

var ignoreAction = actions.Action{
	Name:        ActionIgnore,
	Description: "Ignore the user and do not respond, use this if the user is being rude or the conversation is over",
	Condition:   "The agent wants to ignore the user",
	Handler:     noop,
	Examples: [][]actions.Example{{
		{User: "{{user1}}", Content: memory.Content{Text: "Goodbye!", Action: ActionWait}},
		{User: "{{agent}}", Content: memory.Content{Text: "", Action: ActionIgnore}},
	}},
}

func (r *Runtime) elaborateAction() actions.Action {
	return actions.Action{
		Name:        ActionElaborate,
		Description: "Continue speaking and say something else as a continuation of the last thought",
		Condition:   "The agent wants to elaborate on the last message",
		Handler: func(_ context.Context, _ actions.Runtime, msg *memory.Message, _ *state.State) (actions.Result, error) {
			in := *msg
			return actions.Result{Continuation: func(ctx context.Context) error {
				r.continueConversation(ctx, &in)
				return nil
			}}, nil
		},
		Examples: [][]actions.Example{{
			{User: "{{user1}}", Content: memory.Content{Text: "Tell me about the comet tonight.", Action: ActionWait}},
			{User: "{{agent}}", Content: memory.Content{Text: "It passes right overhead after ten.", Action: ActionElaborate}},
			{User: "{{agent}}", Content: memory.Content{Text: "Find somewhere dark and give your eyes a few minutes to adjust.", Action: ActionWait}},
		}},
	}
}

func (r *Runtime) defaultEntries() []actions.Entry {
	return []actions.Entry{
		{Base: waitAction},
		{Base: ignoreAction},
		{Base: r.elaborateAction()},
		{Base: r.rolodex.Action()},
	}
}

// CojourneyOverrides tightens ELABORATE for the Cojourney deployment, where
// the agent should ask one question at a time and then wait.
func CojourneyOverrides() map[string]actions.Override {
	return map[string]actions.Override{
		ActionElaborate: {
			Description: "ONLY use this action when the message necessitates a follow up. " +
				"Do not use this when asking a question (use WAIT instead). " +
				"Do not use this action when the conversation is finished or the user does not wish to speak (use IGNORE instead). " +
				"If the last message action was ELABORATE, and the user has not responded, use WAIT instead. " +
				"Use sparingly! DO NOT USE WHEN ASKING A QUESTION, ALWAYS USE WAIT WHEN ASKING A QUESTION.",
			Condition: "Use when there is an intent to elaborate. Do NOT use when asking a question. Use WAIT instead. " +
				"Use ELABORATE *very* sparingly, only when the message necessitates a follow up or needs to be broken up into multiple messages",
		},
	}
}

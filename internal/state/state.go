// Package state holds the per-message snapshot the agent reasons over.
package state

import (
	"context"
	"strings"

	"github.com/cojourney/cjagent/internal/goal"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/prompt"
	"github.com/cojourney/cjagent/internal/store"
)

// Actor is a room participant as the model sees it.
type Actor struct {
	ID      string
	Name    string
	Details string
}

// State is built fresh for every message and never persisted.
type State struct {
	AgentID    string
	AgentName  string
	SenderID   string
	SenderName string
	RoomID     string

	// RecentMessages is ordered oldest first, newest last.
	RecentMessages []memory.Memory
	Actors         []Actor
	Goals          []goal.Goal
	Relationships  []store.Relationship
	// Names holds display names of users outside the room, such as
	// relationship counterparts.
	Names map[string]string

	// ActionNames lists the actions whose Validate passed for this message.
	ActionNames    []string
	Actions        string
	ActionExamples string
	Providers      string

	RelevantRelationships string
	ResponseContent       *memory.Content
}

// Provider contributes a free-form text block to every composed state.
type Provider interface {
	Get(ctx context.Context, msg *memory.Message, st *State) (string, error)
}

// ActorName returns the display name of id, falling back to the id.
func (s *State) ActorName(id string) string {
	if id == s.AgentID && s.AgentName != "" {
		return s.AgentName
	}
	for _, a := range s.Actors {
		if a.ID == id && a.Name != "" {
			return a.Name
		}
	}
	if n := s.Names[id]; n != "" {
		return n
	}
	return id
}

// WithResponse returns a shallow copy carrying the agent's response.
func (s *State) WithResponse(c memory.Content) *State {
	cp := *s
	cp.ResponseContent = &c
	return &cp
}

// Vars exposes the state to the template engine.
func (s *State) Vars() map[string]string {
	names := make([]string, 0, len(s.Actors))
	for _, a := range s.Actors {
		names = append(names, a.Name)
	}
	vars := map[string]string{
		"agentName":             s.AgentName,
		"agentId":               s.AgentID,
		"senderName":            s.SenderName,
		"senderId":              s.SenderID,
		"roomId":                s.RoomID,
		"recentMessages":        FormatMessages(s.RecentMessages, s.ActorName),
		"actors":                FormatActors(s.Actors),
		"actorNames":            strings.Join(names, ", "),
		"goals":                 prompt.AddHeader("# Goals", goal.Format(s.Goals)),
		"relationships":         prompt.AddHeader("# Relationships", FormatRelationships(s.Relationships, s.SenderID, s.ActorName)),
		"actionNames":           strings.Join(s.ActionNames, ", "),
		"actions":               s.Actions,
		"actionExamples":        s.ActionExamples,
		"providers":             s.Providers,
		"relevantRelationships": s.RelevantRelationships,
	}
	if s.ResponseContent != nil {
		vars["responseContent"] = s.ResponseContent.Text
	}
	return vars
}

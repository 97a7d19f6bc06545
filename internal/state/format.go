package state

import (
	"fmt"
	"strings"

	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/store"
)

// FormatActors renders one "- Name: details" line per actor.
func FormatActors(actors []Actor) string {
	var sb strings.Builder
	for _, a := range actors {
		sb.WriteString("- ")
		sb.WriteString(a.Name)
		if d := strings.TrimSpace(a.Details); d != "" {
			sb.WriteString(": ")
			sb.WriteString(d)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatMessages renders a transcript, oldest first, with the action in
// parentheses when one was chosen.
func FormatMessages(msgs []memory.Memory, name func(id string) string) string {
	var sb strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&sb, "%s: %s", name(m.UserID), m.Content.Text)
		if m.Content.Action != "" {
			fmt.Fprintf(&sb, " (%s)", m.Content.Action)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatRelationships renders the counterparts of userID.
func FormatRelationships(rels []store.Relationship, userID string, name func(id string) string) string {
	var sb strings.Builder
	for _, r := range rels {
		fmt.Fprintf(&sb, "- %s", name(r.Other(userID)))
		if r.Status != "" {
			fmt.Fprintf(&sb, " (%s)", strings.ToLower(r.Status))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

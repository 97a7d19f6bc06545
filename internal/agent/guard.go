package agent

import (
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/state"
)

// ShouldSkip reports whether the agent should stay quiet instead of speaking
// again: the last three messages are all its own, or its last two among them
// were both WAIT.
func ShouldSkip(st *state.State) bool {
	msgs := st.RecentMessages
	if len(msgs) < 3 {
		return false
	}
	var own []memory.Memory
	for _, m := range msgs[len(msgs)-3:] {
		if m.UserID == st.AgentID {
			own = append(own, m)
		}
	}
	if len(own) == 3 {
		return true
	}
	if len(own) < 2 {
		return false
	}
	last := own[len(own)-2:]
	return last[0].Content.Action == ActionWait && last[1].Content.Action == ActionWait
}

package state

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/cojourney/cjagent/internal/goal"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/prompt"
	"github.com/cojourney/cjagent/internal/store"
)

func sample() *State {
	return &State{
		AgentID:    "agent",
		AgentName:  "CJ",
		SenderID:   "u1",
		SenderName: "Ada",
		RoomID:     "r1",
		RecentMessages: []memory.Memory{
			{UserID: "u1", Content: memory.Content{Text: "hi"}},
			{UserID: "agent", Content: memory.Content{Text: "hello Ada", Action: "WAIT"}},
		},
		Actors: []Actor{
			{ID: "u1", Name: "Ada", Details: "likes chess"},
			{ID: "agent", Name: "CJ"},
		},
		Relationships: []store.Relationship{{UserA: "u1", UserB: "u2", Status: store.RelationshipPending}},
		ActionNames:   []string{"WAIT", "IGNORE"},
	}
}

func TestVarsRenderTranscriptAndActors(t *testing.T) {
	vars := sample().Vars()

	assert.Equal(t, "Ada: hi\nCJ: hello Ada (WAIT)\n", vars["recentMessages"])
	assert.Equal(t, "- Ada: likes chess\n- CJ\n", vars["actors"])
	assert.Equal(t, "Ada, CJ", vars["actorNames"])
	assert.Equal(t, "WAIT, IGNORE", vars["actionNames"])
	assert.Equal(t, "# Relationships\n- u2 (pending)\n\n", vars["relationships"])
	assert.Equal(t, "", vars["goals"], "no goals renders nothing")
	_, ok := vars["responseContent"]
	assert.False(t, ok)
}

func TestVarsCoverMessageTemplate(t *testing.T) {
	st := sample()
	st.Goals = []goal.Goal{{ID: "g", Name: "Intro", Status: goal.StatusInProgress, Objectives: []goal.Objective{{Description: "greet"}}}}
	out := prompt.Compose(st.Vars(), prompt.MessageHandler)

	assert.NotContains(t, out, "{{")
	assert.Contains(t, out, "You are CJ.")
	assert.Contains(t, out, "Pick exactly one action from: WAIT, IGNORE.")
	assert.Contains(t, out, "# Goals\nGoal: Intro")
}

func TestGoalEvaluationHeaderAppearsOnce(t *testing.T) {
	st := sample()
	st.Goals = []goal.Goal{{ID: "g", Name: "Intro", Status: goal.StatusInProgress, Objectives: []goal.Objective{{Description: "greet"}}}}
	out := prompt.Compose(st.Vars(), prompt.GoalEvaluation)

	assert.Equal(t, 1, strings.Count(out, "# Goals"))
	assert.Contains(t, out, "# Goals\nGoal: Intro\nid: g")
}

func TestWithResponseCopies(t *testing.T) {
	st := sample()
	withResp := st.WithResponse(memory.Content{Text: "bye", Action: "IGNORE"})

	assert.Nil(t, st.ResponseContent)
	assert.Equal(t, "bye", withResp.Vars()["responseContent"])
	if diff := cmp.Diff(st.RecentMessages, withResp.RecentMessages); diff != "" {
		t.Fatalf("copy changed history (-want +got):\n%s", diff)
	}
}

func TestActorNameFallsBackToID(t *testing.T) {
	st := sample()
	assert.Equal(t, "CJ", st.ActorName("agent"))
	assert.Equal(t, "Ada", st.ActorName("u1"))
	assert.Equal(t, "stranger", st.ActorName("stranger"))
}

func TestFormatMessagesEmpty(t *testing.T) {
	assert.Equal(t, "", FormatMessages(nil, strings.ToUpper))
}

func TestActorNameFallsBackToNames(t *testing.T) {
	st := sample()
	st.Names = map[string]string{"u2": "Grace"}
	assert.Equal(t, "Grace", st.ActorName("u2"))
	assert.Equal(t, "Ada", st.ActorName("u1"))
	assert.Equal(t, "u3", st.ActorName("u3"))
	assert.Equal(t, "# Relationships\n- Grace (pending)\n\n", st.Vars()["relationships"])
}

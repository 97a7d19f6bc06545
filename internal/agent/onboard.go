package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cojourney/cjagent/internal/goal"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/store"
	"github.com/cojourney/cjagent/internal/worker"
)

// OnboardingGoalName names the goal every new user starts with.
const OnboardingGoalName = "First Time User Introduction (HIGH PRIORITY)"

const joinText = "*User has joined Cojourney. Greet them!*"

// Onboard starts the first conversation with userID: it makes sure the user
// has a room with the agent, creates the onboarding goal, stores the join
// message and has the agent greet them in the background. It returns
// store.ErrNotFound when the account does not exist.
func (r *Runtime) Onboard(ctx context.Context, userID string) (*worker.Handle, error) {
	acc, err := r.store.GetAccountByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("onboard %s: %w", userID, err)
	}
	roomID, err := r.agentRoom(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("onboard %s: %w", userID, err)
	}

	name := acc.Name
	if name == "" {
		name = "the user"
	}
	g := &goal.Goal{
		Name:       OnboardingGoalName,
		Status:     goal.StatusInProgress,
		RoomID:     roomID,
		UserID:     userID,
		Objectives: onboardingObjectives(name),
	}
	if err := r.goals.CreateGoal(ctx, g); err != nil {
		return nil, err
	}

	msg := memory.Message{
		UserID:  userID,
		RoomID:  roomID,
		Content: memory.Content{Text: joinText, Action: ActionNewUser},
	}
	if err := r.messages.CreateMemory(ctx, &memory.Memory{UserID: userID, RoomID: roomID, Content: msg.Content}); err != nil {
		return nil, err
	}
	slog.Info("User onboarded", "user", userID, "room", roomID, "goal", g.ID)

	return r.schedule("onboard "+userID, func(ctx context.Context) error {
		_, err := r.HandleMessage(ctx, &msg)
		return err
	}), nil
}

// agentRoom returns the room shared by userID and the agent, creating it
// when there is none.
func (r *Runtime) agentRoom(ctx context.Context, userID string) (string, error) {
	roomID, err := r.store.FindRoomByParticipants(ctx, userID, r.agentID)
	if err == nil {
		return roomID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	if roomID, err = r.store.CreateRoom(ctx, ""); err != nil {
		return "", err
	}
	for _, id := range []string{userID, r.agentID} {
		if err := r.store.AddParticipant(ctx, roomID, id); err != nil {
			return "", err
		}
	}
	return roomID, nil
}

func onboardingObjectives(name string) []goal.Objective {
	descs := []string{
		name + " just joined Cojourney. Greet them and ask them if they are ready to get started.",
		"Get basic details about " + name + "'s age and gender",
		"Get details about " + name + "'s location, where they live and how far they'd go to meet someone",
		"Get details about " + name + "'s personal life",
		"Get details about " + name + "'s career, school, or work",
		"Get details about " + name + "'s goals for meeting new people: friendly, professional, romantic, personal growth oriented, etc",
		"Let " + name + " know that they can always chat with CJ to get help with something, anything!",
		"Let the user know that CJ has enough information to start making introductions, but the more information they give, the more accurate the introductions will be.",
	}
	out := make([]goal.Objective, len(descs))
	for i, d := range descs {
		out[i] = goal.Objective{Description: d}
	}
	return out
}

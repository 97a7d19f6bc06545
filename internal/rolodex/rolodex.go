// Package rolodex ranks known people against a sender's profile and drives
// introductions between them.
package rolodex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cojourney/cjagent/internal/actions"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/prompt"
	"github.com/cojourney/cjagent/internal/store"
)

// ErrNoProfile means the sender has no stored description to match against.
var ErrNoProfile = errors.New("user has no profile")

// ApplicabilityError is returned when introductions are unavailable for a
// user. It matches both ErrNoProfile and actions.ErrNotApplicable.
type ApplicabilityError struct {
	UserID string
}

func (e *ApplicabilityError) Error() string {
	return fmt.Sprintf("rolodex unavailable for %s: %v", e.UserID, ErrNoProfile)
}

func (e *ApplicabilityError) Is(target error) bool {
	return target == ErrNoProfile || target == actions.ErrNotApplicable
}

// Similarity scores two embeddings; higher is closer.
type Similarity func(a, b []float32) float32

// Candidate is one person in the rolodex.
type Candidate struct {
	UserID      string
	Name        string
	Description string
	Embedding   []float32
	Score       float32
	// Scored is false when ranking fell back to directory order.
	Scored bool
}

// Rank orders candidates by descending similarity to requester. Ties keep
// their input order and scores below min are dropped. Candidates without an
// embedding cannot be compared and are dropped too. With no requester
// embedding the input order is returned unscored.
func Rank(requester []float32, candidates []Candidate, sim Similarity, min float64) []Candidate {
	if len(requester) == 0 {
		out := make([]Candidate, len(candidates))
		copy(out, candidates)
		return out
	}
	if sim == nil {
		sim = memory.CosineSimilarity
	}
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) == 0 {
			continue
		}
		c.Score = sim(requester, c.Embedding)
		c.Scored = true
		if float64(c.Score) < min {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Format renders the "## ROLODEX" block.
func Format(candidates []Candidate) string {
	var sb strings.Builder
	for _, c := range candidates {
		sb.WriteString("- ")
		sb.WriteString(c.Name)
		if d := strings.TrimSpace(c.Description); d != "" {
			sb.WriteString(": ")
			sb.WriteString(d)
		}
		sb.WriteString("\n")
	}
	return prompt.AddHeader("## ROLODEX", sb.String())
}

// Engine builds rolodexes from the descriptions namespace.
type Engine struct {
	Similarity    Similarity
	MinSimilarity float64
	// Count is used when a caller passes a non-positive count.
	Count int
}

// HasProfile reports whether userID has at least one description.
func HasProfile(ctx context.Context, rt actions.Runtime, userID string) (bool, error) {
	descs, err := rt.Descriptions().GetMemories(ctx, memory.Query{UserID: userID})
	if err != nil {
		return false, err
	}
	return len(descs) > 0, nil
}

// Relevant returns up to count ranked candidates for the sender of msg.
func (e *Engine) Relevant(ctx context.Context, rt actions.Runtime, msg *memory.Message, count int) ([]Candidate, error) {
	all, err := rt.Descriptions().GetMemories(ctx, memory.Query{})
	if err != nil {
		return nil, err
	}

	var (
		own   [][]float32
		order []string
		byID  = map[string]*Candidate{}
		embs  = map[string][][]float32{}
	)
	for _, d := range all {
		if d.UserID == msg.UserID {
			own = append(own, d.Embedding)
			continue
		}
		if d.UserID == "" || d.UserID == rt.AgentID() {
			continue
		}
		c, ok := byID[d.UserID]
		if !ok {
			c = &Candidate{UserID: d.UserID}
			byID[d.UserID] = c
			order = append(order, d.UserID)
		}
		// Newest description wins; memories come back oldest first.
		c.Description = d.Content.Text
		embs[d.UserID] = append(embs[d.UserID], d.Embedding)
	}
	if len(own) == 0 {
		return nil, &ApplicabilityError{UserID: msg.UserID}
	}

	candidates := make([]Candidate, 0, len(order))
	for _, id := range order {
		c := byID[id]
		c.Embedding = memory.MeanVector(embs[id])
		c.Name = accountName(ctx, rt.Accounts(), id)
		candidates = append(candidates, *c)
	}

	ranked := Rank(memory.MeanVector(own), candidates, e.Similarity, e.MinSimilarity)
	if count <= 0 {
		count = e.Count
	}
	if count > 0 && len(ranked) > count {
		ranked = ranked[:count]
	}
	return ranked, nil
}

// GetRelevantRelationships returns the formatted rolodex for the sender of
// msg, or an *ApplicabilityError when the sender has no profile.
func (e *Engine) GetRelevantRelationships(ctx context.Context, rt actions.Runtime, msg *memory.Message, count int) (string, error) {
	ranked, err := e.Relevant(ctx, rt, msg, count)
	if err != nil {
		return "", err
	}
	return Format(ranked), nil
}

func accountName(ctx context.Context, accounts actions.AccountStore, id string) string {
	if accounts == nil {
		return id
	}
	acc, err := accounts.GetAccountByID(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("Rolodex account lookup failed", "user", id, "error", err)
		}
		return id
	}
	if acc.Name == "" {
		return id
	}
	return acc.Name
}

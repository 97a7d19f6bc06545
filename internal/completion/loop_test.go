package completion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cojourney/cjagent/internal/audit"
	"github.com/cojourney/cjagent/internal/memory"
)

// scripted returns its responses in order, repeating the last one.
type scripted struct {
	responses []string
	errs      []error
	calls     int
}

func (s *scripted) Complete(ctx context.Context, _ string, _ []string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

func request() Request {
	return Request{
		Context: "prompt",
		Speaker: "CJ",
		Message: &memory.Message{UserID: "u1", RoomID: "r1", Content: memory.Content{Text: "hi"}},
		UserID:  "u1",
		RoomID:  "r1",
		Type:    audit.TypeHandleMessage,
	}
}

func TestObtainAlwaysMalformedFallsBack(t *testing.T) {
	rec := &audit.Recorder{}
	c := &scripted{responses: []string{"I am not JSON at all"}}
	loop := NewLoop(c, rec, Options{})

	got := loop.Obtain(context.Background(), request())

	assert.Equal(t, memory.Content{Text: "", Action: "IGNORE"}, got)
	assert.Equal(t, DefaultMaxTries, c.calls)
	entries := rec.Entries()
	require.Len(t, entries, DefaultMaxTries)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Body["attempt"])
		assert.Equal(t, "prompt", e.Body["context"])
		assert.Equal(t, "I am not JSON at all", e.Body["response"])
		assert.NotEmpty(t, e.Body["error"])
		assert.Equal(t, "r1", e.RoomID)
	}
}

func TestObtainValidOnSecondAttempt(t *testing.T) {
	rec := &audit.Recorder{}
	c := &scripted{responses: []string{
		"oops",
		"```json\n{\"user\": \"CJ\", \"content\": \"Hi Ada!\", \"action\": \"wait\"}\n```",
	}}
	loop := NewLoop(c, rec, Options{MaxTries: 3})

	got := loop.Obtain(context.Background(), request())

	assert.Equal(t, memory.Content{Text: "Hi Ada!", Action: "WAIT"}, got)
	assert.Equal(t, 2, c.calls)
	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[1].Body, "error")
}

func TestObtainRejectsMisattributedReply(t *testing.T) {
	c := &scripted{responses: []string{
		`{"user": "Ada", "content": "pretending to be the user"}`,
		`{"user": "cj (agent)", "content": "ok"}`,
	}}
	loop := NewLoop(c, nil, Options{})

	got := loop.Obtain(context.Background(), request())

	assert.Equal(t, "ok", got.Text)
	assert.Equal(t, 2, c.calls)
}

func TestObtainCountsServiceErrorsAsAttempts(t *testing.T) {
	rec := &audit.Recorder{}
	c := &scripted{
		errs:      []error{context.DeadlineExceeded, errors.New("503")},
		responses: []string{"", "", `{"user":"CJ","content":"finally"}`},
	}
	loop := NewLoop(c, rec, Options{MaxTries: 3})

	got := loop.Obtain(context.Background(), request())

	assert.Equal(t, "finally", got.Text)
	assert.Equal(t, 3, c.calls)
	assert.Len(t, rec.Entries(), 3)
}

type slow struct{ calls int }

func (s *slow) Complete(ctx context.Context, _ string, _ []string) (string, error) {
	s.calls++
	<-ctx.Done()
	return "", ctx.Err()
}

func TestObtainAttemptTimeoutConsumesTry(t *testing.T) {
	s := &slow{}
	loop := NewLoop(s, nil, Options{MaxTries: 2, AttemptTimeout: 10 * time.Millisecond})

	got := loop.Obtain(context.Background(), request())

	assert.Equal(t, Fallback(), got)
	assert.Equal(t, 2, s.calls)
}

func TestDecodeExhausted(t *testing.T) {
	c := &scripted{responses: []string{`{"userA": "Kyle"}`}}
	loop := NewLoop(c, nil, Options{MaxTries: 2})

	var out struct {
		UserA string `json:"userA"`
		UserB string `json:"userB"`
	}
	err := loop.Decode(context.Background(), request(), Schema{Required: []string{"userA", "userB"}}, &out)

	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, 2, c.calls)
}

func TestDecodeSuccess(t *testing.T) {
	c := &scripted{responses: []string{`Here: {"userA": "Kyle", "userB": "Jamie", "explanation": "music"}`}}
	loop := NewLoop(c, nil, Options{})

	var out struct {
		UserA string `json:"userA"`
		UserB string `json:"userB"`
	}
	require.NoError(t, loop.Decode(context.Background(), request(), Schema{Required: []string{"userA", "userB"}}, &out))
	assert.Equal(t, "Kyle", out.UserA)
	assert.Equal(t, "Jamie", out.UserB)
	assert.Equal(t, 1, c.calls)
}

func TestGenerateDistinguishesExhaustionFromIgnore(t *testing.T) {
	ignore := NewLoop(&scripted{responses: []string{`{"user": "CJ", "content": "", "action": "IGNORE"}`}}, nil, Options{})
	got, err := ignore.Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, Fallback(), got)

	broken := NewLoop(&scripted{responses: []string{"nope"}}, nil, Options{MaxTries: 2})
	_, err = broken.Generate(context.Background(), request())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, ErrInvalid)
}

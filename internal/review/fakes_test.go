package review

import (
	"context"
	"sync"
	"time"

	"github.com/voicebot/codexreview/internal/prompt"
	"github.com/voicebot/codexreview/internal/telegram"
)

type noteCall struct {
	IssueID string
	Note    string
}

type statusCall struct {
	IssueID string
	Status  string
	Note    string
}

type fakeTracker struct {
	mu sync.Mutex

	issue     map[string]any
	showErr   error
	appendErr error
	statusErr error

	shown    []string
	notes    []noteCall
	statuses []statusCall
}

func (f *fakeTracker) Show(_ context.Context, issueID string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, issueID)
	if f.showErr != nil {
		return nil, f.showErr
	}
	return f.issue, nil
}

func (f *fakeTracker) AppendNotes(_ context.Context, issueID, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.notes = append(f.notes, noteCall{IssueID: issueID, Note: note})
	return nil
}

func (f *fakeTracker) UpdateStatus(_ context.Context, issueID, status, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statuses = append(f.statuses, statusCall{IssueID: issueID, Status: status, Note: note})
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	err    error
	result telegram.CardResult
	cards  []telegram.CardInput
}

func (f *fakeNotifier) SendApprovalCard(_ context.Context, in telegram.CardInput) (telegram.CardResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cards = append(f.cards, in)
	if f.err != nil {
		return telegram.CardResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeNotifier) sent() []telegram.CardInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]telegram.CardInput(nil), f.cards...)
}

type fakeRunner struct {
	mu     sync.Mutex
	out    RunOutput
	err    error
	inputs []RunInput
}

func (f *fakeRunner) Run(_ context.Context, in RunInput) (RunOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	return f.out, f.err
}

func (f *fakeRunner) calls() []RunInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RunInput(nil), f.inputs...)
}

type staticCards struct {
	card prompt.Card
}

func (s staticCards) Load() prompt.Card {
	return s.card
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

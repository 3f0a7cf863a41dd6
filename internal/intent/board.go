package intent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Updater confirms a status change with the server.
type Updater interface {
	SetIntentStatus(ctx context.Context, id string, status Status) (Intent, error)
}

// Phase is where an item is in its optimistic update.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseCommitted
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled-back"
	}
	return "idle"
}

// ErrBusy is returned when a toggle is already pending for the same intent.
var ErrBusy = errors.New("intent update already pending")

// RecoverableError reports a status change that was rolled back. The board
// is consistent again; the user can retry.
type RecoverableError struct {
	ID     string
	Status Status
	Err    error
}

func (e *RecoverableError) Error() string {
	return fmt.Sprintf("could not mark intent %s %s: %v", e.ID, e.Status, e.Err)
}

func (e *RecoverableError) Unwrap() error { return e.Err }

type transition struct {
	phase    Phase
	previous Intent
}

// Board holds the active and completed collections a screen shows and moves
// items between them optimistically: the move is visible at once, and undone
// if the server refuses it.
type Board struct {
	updater Updater
	notify  func(string)
	now     func() time.Time

	mu          sync.Mutex
	active      []Intent
	completed   []Intent
	transitions map[string]transition
}

type BoardOption func(*Board)

// WithNotifier sets the function that shows a non-blocking notice.
func WithNotifier(fn func(string)) BoardOption {
	return func(b *Board) { b.notify = fn }
}

func WithBoardClock(now func() time.Time) BoardOption {
	return func(b *Board) { b.now = now }
}

func NewBoard(u Updater, opts ...BoardOption) *Board {
	b := &Board{
		updater:     u,
		notify:      func(string) {},
		now:         time.Now,
		transitions: map[string]transition{},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Replace loads fresh collections, as after listing intents from the server.
func (b *Board) Replace(active, completed []Intent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = append([]Intent{}, active...)
	b.completed = append([]Intent{}, completed...)
}

func (b *Board) Active() []Intent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Intent{}, b.active...)
}

func (b *Board) Completed() []Intent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Intent{}, b.completed...)
}

// Phase reports the last optimistic update state for id.
func (b *Board) Phase(id string) Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transitions[id].phase
}

// Toggle moves the intent to status. Moving to completed or archived takes it
// from the active list; moving to active takes it from the completed list.
// On failure the original record goes back where it was and a
// *RecoverableError is returned.
func (b *Board) Toggle(ctx context.Context, id string, status Status) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}

	b.mu.Lock()
	if b.transitions[id].phase == PhasePending {
		b.mu.Unlock()
		return ErrBusy
	}
	from, to := &b.active, &b.completed
	if !status.Done() {
		from, to = &b.completed, &b.active
	}
	idx := indexOf(*from, id)
	if idx < 0 {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	previous := (*from)[idx]
	*from = removeAt(*from, idx)
	*to = prepend(*to, previous.WithStatus(status, b.now()))
	b.transitions[id] = transition{phase: PhasePending, previous: previous}
	b.mu.Unlock()

	confirmed, err := b.updater.SetIntentStatus(ctx, id, status)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		if i := indexOf(*to, id); i >= 0 {
			*to = removeAt(*to, i)
		}
		if indexOf(*from, id) < 0 {
			*from = prepend(*from, previous)
		}
		b.transitions[id] = transition{phase: PhaseRolledBack, previous: previous}
		rerr := &RecoverableError{ID: id, Status: status, Err: err}
		b.notify(noticeFor(status))
		return rerr
	}
	if confirmed.ID == id {
		if i := indexOf(*to, id); i >= 0 {
			(*to)[i] = confirmed
		}
	}
	b.transitions[id] = transition{phase: PhaseCommitted}
	return nil
}

func noticeFor(status Status) string {
	if status.Done() {
		return "Failed to archive, try again"
	}
	return "Failed to restore, try again"
}

func indexOf(list []Intent, id string) int {
	for i, in := range list {
		if in.ID == id {
			return i
		}
	}
	return -1
}

func removeAt(list []Intent, i int) []Intent {
	out := make([]Intent, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

func prepend(list []Intent, in Intent) []Intent {
	return append([]Intent{in}, list...)
}

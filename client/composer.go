package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Composer accepts user input for the selected thread and submits it.
// The draft is cleared optimistically on submit and restored when the
// send fails, so a typed message survives a transient failure.
type Composer struct {
	api  *API
	sync *Sync

	mu    sync.Mutex
	draft string
}

func NewComposer(api *API, s *Sync) *Composer {
	return &Composer{api: api, sync: s}
}

func (c *Composer) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Submit sends the current draft. Preconditions: a thread is selected,
// the latest known gating state allows chat, and the draft is non-empty
// after trimming. On success the view is refreshed out of cycle. Each
// submit carries a fresh idempotency key so a network retry cannot
// store the message twice.
func (c *Composer) Submit(ctx context.Context) error {
	snap := c.sync.Snapshot()
	if snap.AppointmentID == "" || snap.State == StateIdle || snap.State == StateClosed {
		return ErrNoSelection
	}
	if !snap.CanChat {
		return ErrChatNotYetAvailable
	}

	c.mu.Lock()
	text := strings.TrimSpace(c.draft)
	c.draft = ""
	c.mu.Unlock()
	if text == "" {
		return ErrEmptyMessage
	}

	_, err := c.api.SendMessage(ctx, snap.AppointmentID, text, uuid.NewString())
	if err != nil {
		c.mu.Lock()
		if c.draft == "" {
			c.draft = text
		}
		c.mu.Unlock()
		if errors.Is(err, ErrChatNotYetAvailable) {
			c.sync.markChatClosed()
		}
		return err
	}

	c.sync.RefreshNow(ctx)
	return nil
}

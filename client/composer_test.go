package client_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"caresync_back_end_go/client"
)

func TestSubmitRequiresSelection(t *testing.T) {
	scheduled := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	env := newEnv(t, scheduled)

	api := env.apiFor(t, patientID, "patient")
	s := client.NewSync(api)
	defer s.Close()

	composer := client.NewComposer(api, s)
	composer.SetDraft("hello")
	if err := composer.Submit(context.Background()); !errors.Is(err, client.ErrNoSelection) {
		t.Fatalf("got %v, want ErrNoSelection", err)
	}
	if composer.Draft() != "hello" {
		t.Errorf("draft lost on precondition failure: %q", composer.Draft())
	}
}

func TestSubmitRejectsEmptyDraft(t *testing.T) {
	scheduled := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	env := newEnv(t, scheduled)
	ctx := context.Background()

	api := env.apiFor(t, patientID, "patient")
	s := client.NewSync(api)
	defer s.Close()
	s.Select(ctx, appointmentA)

	composer := client.NewComposer(api, s)
	composer.SetDraft("   \n")
	if err := composer.Submit(ctx); !errors.Is(err, client.ErrEmptyMessage) {
		t.Fatalf("got %v, want ErrEmptyMessage", err)
	}
}

func TestSubmitBlockedByLocalGating(t *testing.T) {
	scheduled := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	env := newEnv(t, scheduled)
	ctx := context.Background()

	env.clock.Set(scheduled.Add(-time.Hour))

	api := env.apiFor(t, patientID, "patient")
	s := client.NewSync(api)
	defer s.Close()
	s.Select(ctx, appointmentA)

	composer := client.NewComposer(api, s)
	composer.SetDraft("too early")
	if err := composer.Submit(ctx); !errors.Is(err, client.ErrChatNotYetAvailable) {
		t.Fatalf("got %v, want ErrChatNotYetAvailable", err)
	}
	if composer.Draft() != "too early" {
		t.Errorf("draft lost on gated submit: %q", composer.Draft())
	}
}

func TestSubmitRestoresDraftOnTransientFailure(t *testing.T) {
	scheduled := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	env := newEnv(t, scheduled)
	ctx := context.Background()

	api := env.apiFor(t, patientID, "patient")
	s := client.NewSync(api)
	defer s.Close()
	s.Select(ctx, appointmentA)

	composer := client.NewComposer(api, s)
	composer.SetDraft("do not lose this")

	env.failing.Store(true)
	err := composer.Submit(ctx)
	env.failing.Store(false)

	if err == nil {
		t.Fatalf("submit succeeded against a failing backend")
	}
	if composer.Draft() != "do not lose this" {
		t.Errorf("typed message lost on transient failure: %q", composer.Draft())
	}

	// Retrying once the backend is back must work with the same draft.
	if err := composer.Submit(ctx); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if snap := s.Snapshot(); len(snap.Messages) != 1 {
		t.Fatalf("message not visible after retry: %d messages", len(snap.Messages))
	}
}

func TestSubmitFlipsGatingOnServerRejection(t *testing.T) {
	scheduled := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	env := newEnv(t, scheduled)
	ctx := context.Background()

	api := env.apiFor(t, patientID, "patient")
	s := client.NewSync(api)
	defer s.Close()
	s.Select(ctx, appointmentA) // clock is past the scheduled time, chat open

	// The server's view turns gated while the client still holds a
	// stale open state.
	env.clock.Set(scheduled.Add(-time.Hour))

	composer := client.NewComposer(api, s)
	composer.SetDraft("stale optimism")
	if err := composer.Submit(ctx); !errors.Is(err, client.ErrChatNotYetAvailable) {
		t.Fatalf("got %v, want ErrChatNotYetAvailable", err)
	}

	snap := s.Snapshot()
	if snap.CanChat {
		t.Errorf("local gating not flipped after server rejection")
	}
	if snap.GatingNotice == "" {
		t.Errorf("no gating notice after server rejection")
	}
	if composer.Draft() != "stale optimism" {
		t.Errorf("draft lost on gated rejection: %q", composer.Draft())
	}
}

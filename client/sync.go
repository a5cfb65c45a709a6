package client

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"caresync_back_end_go/models"
)

// ViewState tracks the lifecycle of the currently selected thread view.
type ViewState int

const (
	StateIdle ViewState = iota
	StateInitialLoading
	StateReady
	StateBackgroundRefreshing
	StateClosed
)

// DefaultRefreshInterval is the background poll cadence. Staleness of
// at most one interval is acceptable: a failed refresh is only retried
// by the next tick.
const DefaultRefreshInterval = 20 * time.Second

const gatingNoticeText = "Chat is not available until the appointment time"

// Snapshot is a copy of the view state, safe to render from.
type Snapshot struct {
	State         ViewState
	AppointmentID string
	Messages      []models.ConsultationMessage
	Threads       []models.ThreadSummary
	CanChat       bool
	ScheduledDate string
	ScheduledTime string
	// NewlyArrived holds ids first observed by the latest background
	// refresh, for rendering emphasis only. History loaded by the
	// initial fetch is never flagged.
	NewlyArrived []int64
	LastError    string
	GatingNotice string
}

// Sync keeps one participant's view of a consultation thread in step
// with the backend by polling. Selecting a thread runs an initial load
// (errors surfaced, history marked seen) and starts a ticker; each tick
// re-fetches messages and the thread list silently. Only one refresh
// runs at a time; a tick that lands while one is in flight is skipped.
type Sync struct {
	api      *API
	interval time.Duration

	// refreshMu serializes whole refresh passes, mu guards the state
	// fields inside one.
	refreshMu sync.Mutex
	mu        sync.Mutex

	state         ViewState
	appointmentID string
	messages      []models.ConsultationMessage
	threads       []models.ThreadSummary
	canChat       bool
	scheduledDate string
	scheduledTime string
	seen          map[int64]struct{}
	arrived       map[int64]struct{}
	lastError     string
	gatingNotice  string

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSync(api *API) *Sync {
	return &Sync{
		api:      api,
		interval: DefaultRefreshInterval,
		state:    StateIdle,
		seen:     make(map[int64]struct{}),
		arrived:  make(map[int64]struct{}),
	}
}

// SetInterval overrides the poll cadence. Call before Select.
func (s *Sync) SetInterval(d time.Duration) {
	s.interval = d
}

// Select switches the view to the given appointment: the previous
// thread's poll loop is stopped first (and waited for, so it cannot
// mutate state afterwards), the seen set is reset, then the initial
// load runs and the poll loop starts.
func (s *Sync) Select(ctx context.Context, appointmentID string) {
	s.stopLoop()

	s.mu.Lock()
	s.appointmentID = appointmentID
	s.state = StateInitialLoading
	s.seen = make(map[int64]struct{})
	s.arrived = make(map[int64]struct{})
	s.messages = nil
	s.lastError = ""
	s.gatingNotice = ""
	s.mu.Unlock()

	s.initialLoad(ctx, appointmentID)

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()
	go s.pollLoop(loopCtx, appointmentID, done)
}

// Close dismisses the view and stops its poll loop deterministically.
func (s *Sync) Close() {
	s.stopLoop()
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
}

func (s *Sync) stopLoop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *Sync) pollLoop(ctx context.Context, appointmentID string, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A refresh still in flight suppresses this tick, the
			// next one retries.
			if !s.refreshMu.TryLock() {
				continue
			}
			s.refresh(ctx, appointmentID, false)
			s.refreshMu.Unlock()
		}
	}
}

// RefreshNow forces an out-of-cycle refresh, waiting for any in-flight
// pass to finish first. The composer calls it after a send so the
// sender sees their own message without waiting for the next tick.
func (s *Sync) RefreshNow(ctx context.Context) {
	s.mu.Lock()
	appointmentID := s.appointmentID
	state := s.state
	s.mu.Unlock()
	if appointmentID == "" || state == StateIdle || state == StateClosed {
		return
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	s.refresh(ctx, appointmentID, false)
}

func (s *Sync) initialLoad(ctx context.Context, appointmentID string) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	s.refresh(ctx, appointmentID, true)
}

// refresh fetches messages and the thread list concurrently and merges
// the results. Initial loads surface errors and seed the seen set;
// background passes swallow everything except a gating transition and
// never clear already-displayed messages. Caller holds refreshMu.
func (s *Sync) refresh(ctx context.Context, appointmentID string, initial bool) {
	s.mu.Lock()
	if s.appointmentID != appointmentID || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	if !initial {
		s.state = StateBackgroundRefreshing
	}
	s.mu.Unlock()

	var (
		list       *models.MessageList
		threads    []models.ThreadSummary
		listErr    error
		threadsErr error
		wg         sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		list, listErr = s.api.ListMessages(ctx, appointmentID)
	}()
	go func() {
		defer wg.Done()
		threads, threadsErr = s.api.ListThreads(ctx)
	}()
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appointmentID != appointmentID || s.state == StateClosed {
		// Selection moved on while this pass was in flight.
		return
	}
	s.state = StateReady

	if threadsErr == nil {
		s.threads = threads
	}

	if listErr != nil {
		if errors.Is(listErr, ErrChatNotYetAvailable) {
			s.canChat = false
			s.gatingNotice = gatingNoticeText
		} else if initial {
			s.lastError = listErr.Error()
		}
		return
	}

	s.arrived = make(map[int64]struct{})
	for _, m := range list.Messages {
		if _, ok := s.seen[m.ID]; !ok {
			if !initial {
				s.arrived[m.ID] = struct{}{}
			}
			s.seen[m.ID] = struct{}{}
		}
	}
	s.messages = list.Messages
	s.canChat = list.CanChat
	s.scheduledDate = list.ScheduledDate
	s.scheduledTime = list.ScheduledTime
	if !list.CanChat {
		s.gatingNotice = gatingNoticeText
	} else {
		s.gatingNotice = ""
	}
}

// markChatClosed flips the local gating state without waiting for the
// next poll, used when a send is rejected as not-yet-available.
func (s *Sync) markChatClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canChat = false
	s.gatingNotice = gatingNoticeText
}

func (s *Sync) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:         s.state,
		AppointmentID: s.appointmentID,
		CanChat:       s.canChat,
		ScheduledDate: s.scheduledDate,
		ScheduledTime: s.scheduledTime,
		LastError:     s.lastError,
		GatingNotice:  s.gatingNotice,
	}
	snap.Messages = make([]models.ConsultationMessage, len(s.messages))
	copy(snap.Messages, s.messages)
	snap.Threads = make([]models.ThreadSummary, len(s.threads))
	copy(snap.Threads, s.threads)
	for id := range s.arrived {
		snap.NewlyArrived = append(snap.NewlyArrived, id)
	}
	sort.Slice(snap.NewlyArrived, func(i, j int) bool { return snap.NewlyArrived[i] < snap.NewlyArrived[j] })
	return snap
}

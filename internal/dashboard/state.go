package dashboard

import (
	"sync"
	"time"

	"github.com/palletops/warehouse-monitor/internal/anomaly"
	"github.com/palletops/warehouse-monitor/internal/dataservice"
	"github.com/palletops/warehouse-monitor/internal/domain"
)

// Phase is the refresh lifecycle state shown to views.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseDebouncing Phase = "debouncing"
	PhaseFetching   Phase = "fetching"
	PhaseReady      Phase = "ready"
	PhaseProcessing Phase = "processing"
	PhasePolling    Phase = "polling"
	PhaseError      Phase = "error"
)

// Snapshot is one committed dashboard payload. Once committed it is
// immutable: consumers read it, they never write through it.
type Snapshot struct {
	ActionCenter     *dataservice.ActionCenterSnapshot `json:"action_center"`
	Achievements     *dataservice.AchievementsSnapshot `json:"achievements,omitempty"`
	Reports          []domain.ReportSummary            `json:"reports"`
	CandidateReport  *domain.ReportSummary             `json:"candidate_report,omitempty"`
	ReportDetail     *dataservice.ReportDetail         `json:"report_detail,omitempty"`
	SpaceUtilization *dataservice.SpaceUtilization     `json:"space_utilization,omitempty"`
	Classification   anomaly.Classification            `json:"classification"`
	Insights         anomaly.Insights                  `json:"insights"`
	Summary          Summary                           `json:"summary"`
	FetchedAt        time.Time                         `json:"fetched_at"`
}

// State is the full refresh state: phase, generation, and the latest
// committed snapshot. The snapshot survives error and processing phases so
// views always have the last good payload to render.
type State struct {
	Phase             Phase     `json:"phase"`
	Generation        uint64    `json:"generation"`
	Snapshot          *Snapshot `json:"snapshot,omitempty"`
	PollAttempt       int       `json:"poll_attempt,omitempty"`
	CandidateReportID int64     `json:"candidate_report_id,omitempty"`
	Err               string    `json:"error,omitempty"`
}

// Store is the single state container for one dashboard session. The
// Controller is its only writer; everything else reads copies or subscribes.
//
// Every generation-carrying mutation is checked against the committed
// generation: a mutation from an older generation is discarded, never
// applied. That is what keeps a superseded run's late results from
// overwriting a newer run's commit.
type Store struct {
	mu        sync.RWMutex
	state     State
	nextSubID int
	subs      map[int]chan State
}

// NewStore creates a store in the Idle phase with generation zero.
func NewStore() *Store {
	return &Store{
		state: State{Phase: PhaseIdle},
		subs:  make(map[int]chan State),
	}
}

// State returns a copy of the current state. The embedded snapshot pointer
// is shared but the snapshot itself is immutable after commit.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers a state listener. Notifications are sent without
// blocking: a subscriber that falls behind misses intermediate states but
// always eventually observes the latest one on its next receive.
// The returned cancel function must be called when the listener goes away.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan State, 8)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// mutate applies fn under the write lock and notifies subscribers when fn
// reports that it changed the state.
func (s *Store) mutate(fn func(*State) bool) bool {
	s.mu.Lock()
	applied := fn(&s.state)
	state := s.state
	subs := make([]chan State, 0, len(s.subs))
	if applied {
		for _, ch := range s.subs {
			subs = append(subs, ch)
		}
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- state:
		default: // slow subscriber, drop
		}
	}
	return applied
}

// current reports whether gen may still write: anything older than the
// committed generation is stale.
func current(st *State, gen uint64) bool {
	return gen >= st.Generation
}

// SetDebouncing marks a trigger waiting out the quiet period. It does not
// touch the generation or the committed snapshot.
func (s *Store) SetDebouncing() {
	s.mutate(func(st *State) bool {
		st.Phase = PhaseDebouncing
		return true
	})
}

// BeginFetch marks the start of an orchestrator run for gen.
func (s *Store) BeginFetch(gen uint64) bool {
	return s.mutate(func(st *State) bool {
		if !current(st, gen) {
			return false
		}
		st.Phase = PhaseFetching
		st.Generation = gen
		st.PollAttempt = 0
		st.Err = ""
		return true
	})
}

// CommitReady commits a completed snapshot for gen. Stale generations are
// discarded and the method reports whether the commit was applied.
func (s *Store) CommitReady(gen uint64, snap *Snapshot) bool {
	return s.mutate(func(st *State) bool {
		if !current(st, gen) {
			return false
		}
		st.Phase = PhaseReady
		st.Generation = gen
		st.Snapshot = snap
		st.PollAttempt = 0
		st.CandidateReportID = 0
		st.Err = ""
		return true
	})
}

// CommitProcessing commits a snapshot for a report whose backend analysis
// has not finished yet, tagging the candidate report being watched.
func (s *Store) CommitProcessing(gen uint64, snap *Snapshot, candidateID int64) bool {
	return s.mutate(func(st *State) bool {
		if !current(st, gen) {
			return false
		}
		st.Phase = PhaseProcessing
		st.Generation = gen
		st.Snapshot = snap
		st.CandidateReportID = candidateID
		st.PollAttempt = 0
		st.Err = ""
		return true
	})
}

// SetPolling records one poll attempt against the candidate report.
func (s *Store) SetPolling(gen uint64, attempt int) bool {
	return s.mutate(func(st *State) bool {
		if !current(st, gen) {
			return false
		}
		st.Phase = PhasePolling
		st.PollAttempt = attempt
		return true
	})
}

// CommitError marks the cycle failed. The previous snapshot is kept so the
// retry banner can render over the last good data.
func (s *Store) CommitError(gen uint64, err error) bool {
	return s.mutate(func(st *State) bool {
		if !current(st, gen) {
			return false
		}
		st.Phase = PhaseError
		st.Generation = gen
		st.Err = err.Error()
		return true
	})
}

package dailycrawl

import (
	"sync"
	"time"

	"navwatch/internal/application/port"
	"navwatch/internal/domain/model"
)

type Status int

const (
	StatusPending Status = 0
	StatusOK      Status = +1
	StatusFailed  Status = -1
)

type fundState struct {
	status Status
	added  int
	total  int
	err    string
}

// State tracks the progress of the current run and the outcome of the last one.
type State struct {
	mu sync.Mutex

	runID   string
	running bool
	order   []model.FundCode
	funds   map[model.FundCode]*fundState

	lastRunAt  time.Time
	lastRunID  string
	lastOK     int
	lastFailed int
	nextRunAt  time.Time
}

func NewState() *State {
	return &State{funds: make(map[model.FundCode]*fundState)}
}

// Begin resets per-fund progress for a new run.
func (s *State) Begin(codes []model.FundCode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = true
	s.runID = ""
	s.order = append(s.order[:0], codes...)
	s.funds = make(map[model.FundCode]*fundState, len(codes))
	for _, c := range codes {
		s.funds[c] = &fundState{}
	}
}

// Apply records a crawl event, returning whether the live view changed.
// Events for funds outside the current run are ignored.
func (s *State) Apply(ev port.CrawlEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}
	fs := s.funds[ev.Code]
	if fs == nil {
		return false
	}
	if s.runID == "" {
		s.runID = ev.RunID
	} else if ev.RunID != s.runID {
		return false
	}

	next := StatusFailed
	if ev.OK {
		next = StatusOK
	}
	if fs.status == next && fs.added == ev.Added && fs.total == ev.TotalCount {
		return false
	}
	fs.status = next
	fs.added = ev.Added
	fs.total = ev.TotalCount
	fs.err = ev.Error
	return true
}

// Finish closes the current run.
func (s *State) Finish(runID string, at time.Time, ok, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	s.lastRunID = runID
	s.lastRunAt = at
	s.lastOK = ok
	s.lastFailed = failed
}

func (s *State) SetNext(t time.Time) {
	s.mu.Lock()
	s.nextRunAt = t
	s.mu.Unlock()
}

// Snapshot is a copy of the state safe to read without the lock.
type Snapshot struct {
	Running    bool
	Order      []model.FundCode
	Funds      map[model.FundCode]fundState
	LastRunAt  time.Time
	LastRunID  string
	LastOK     int
	LastFailed int
	NextRunAt  time.Time
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Snapshot{
		Running:    s.running,
		Order:      append([]model.FundCode(nil), s.order...),
		Funds:      make(map[model.FundCode]fundState, len(s.funds)),
		LastRunAt:  s.lastRunAt,
		LastRunID:  s.lastRunID,
		LastOK:     s.lastOK,
		LastFailed: s.lastFailed,
		NextRunAt:  s.nextRunAt,
	}
	for k, v := range s.funds {
		out.Funds[k] = *v
	}
	return out
}

// Progress returns finished and total fund counts of the current run.
func (snap Snapshot) Progress() (done, total int) {
	for _, c := range snap.Order {
		if snap.Funds[c].status != StatusPending {
			done++
		}
	}
	return done, len(snap.Order)
}

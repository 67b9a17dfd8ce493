// Package dashboard implements the refresh orchestration core: a debounced,
// generation-checked fetch cycle against the analysis backend, the
// processing detector with its bounded report poller, and the single-writer
// state container views read from.
package dashboard

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/palletops/warehouse-monitor/internal/anomaly"
	"github.com/palletops/warehouse-monitor/internal/dataservice"
	"github.com/palletops/warehouse-monitor/internal/domain"
)

// DataService is the backend surface the controller consumes. Resolve
// operations live on the concrete client; the controller only reads.
type DataService interface {
	GetActionCenterSnapshot(ctx context.Context) (*dataservice.ActionCenterSnapshot, error)
	GetAchievementsSnapshot(ctx context.Context) (*dataservice.AchievementsSnapshot, error)
	ListReports(ctx context.Context) ([]domain.ReportSummary, error)
	GetReportDetail(ctx context.Context, reportID int64) (*dataservice.ReportDetail, error)
	GetSpaceUtilization(ctx context.Context, reportID int64) (*dataservice.SpaceUtilization, error)
}

// SnapshotCache persists committed snapshots for warm starts. Failures are
// best-effort: logged, never surfaced to views.
type SnapshotCache interface {
	Save(ctx context.Context, snap *Snapshot) error
}

// CycleRecord is the audit row written for every refresh cycle.
type CycleRecord struct {
	ID           string
	Generation   uint64
	TriggeredBy  string
	StartedAt    time.Time
	CompletedAt  time.Time
	Status       string // ready, processing, error, superseded
	ReportID     int64
	AnomalyCount int
	Critical     int
	Err          string
}

// CycleRecorder persists cycle audit rows. Best-effort, like SnapshotCache.
type CycleRecorder interface {
	RecordCycle(ctx context.Context, rec CycleRecord) error
}

// Controller owns the refresh lifecycle for one dashboard session. It is
// the store's only writer. Triggers arrive through Refresh, are debounced,
// and each burst starts exactly one orchestrator run; a run that is still
// in flight when a new burst fires is cancelled and its generation
// invalidated before the new run starts.
type Controller struct {
	svc      DataService
	store    *Store
	cache    SnapshotCache // optional
	recorder CycleRecorder // optional

	scoreOpts anomaly.ScoreOptions
	fallback  FallbackSplit

	debounce         time.Duration
	processingWindow time.Duration
	pollInterval     time.Duration
	pollMaxAttempts  int

	now func() time.Time

	mu            sync.Mutex
	generation    uint64
	debounceTimer *time.Timer
	busy          bool
	cancelRun     context.CancelFunc
	closed        bool
	wg            sync.WaitGroup
}

// Options configures a Controller. Zero durations fall back to the
// defaults below; Cache and Recorder may be nil.
type Options struct {
	Debounce         time.Duration // trigger quiet period, default 100ms
	ProcessingWindow time.Duration // report recency window, default 30s
	PollInterval     time.Duration // default 2s
	PollMaxAttempts  int           // default 30
	Scoring          anomaly.ScoreOptions
	Fallback         FallbackSplit
	Cache            SnapshotCache
	Recorder         CycleRecorder
	Now              func() time.Time // test hook, defaults to time.Now
}

// NewController wires a controller over the given backend and store.
func NewController(svc DataService, store *Store, opts Options) *Controller {
	c := &Controller{
		svc:              svc,
		store:            store,
		cache:            opts.Cache,
		recorder:         opts.Recorder,
		scoreOpts:        opts.Scoring,
		fallback:         opts.Fallback,
		debounce:         opts.Debounce,
		processingWindow: opts.ProcessingWindow,
		pollInterval:     opts.PollInterval,
		pollMaxAttempts:  opts.PollMaxAttempts,
		now:              opts.Now,
	}
	if c.debounce <= 0 {
		c.debounce = 100 * time.Millisecond
	}
	if c.processingWindow <= 0 {
		c.processingWindow = 30 * time.Second
	}
	if c.pollInterval <= 0 {
		c.pollInterval = 2 * time.Second
	}
	if c.pollMaxAttempts <= 0 {
		c.pollMaxAttempts = 30
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Refresh is the single trigger entry point for views, timers, and
// navigation events. Bursts of triggers collapse into one run: each call
// resets the quiet-period timer, and the run starts only once no further
// trigger arrives within the debounce window.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.store.SetDebouncing()

	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
	c.debounceTimer = time.AfterFunc(c.debounce, func() {
		c.fire("refresh")
	})
}

// Busy reports whether an orchestrator run is currently in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Close tears the session down: the debounce timer is cleared, any in-flight
// run and poller are cancelled, and Close blocks until their goroutines exit.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
	if c.cancelRun != nil {
		c.cancelRun()
	}
	c.mu.Unlock()

	c.wg.Wait()
	log.Printf("[Controller] closed")
}

// fire starts a new orchestrator run. If a run is already executing, its
// context is cancelled and its generation invalidated first, so its
// late-arriving results can never overwrite the new run's commit.
func (c *Controller) fire(trigger string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.debounceTimer = nil

	if c.busy && c.cancelRun != nil {
		log.Printf("[Controller] superseding in-flight run (generation %d)", c.generation)
		c.cancelRun()
	}

	c.generation++
	gen := c.generation

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelRun = cancel
	c.busy = true

	c.store.BeginFetch(gen)

	c.wg.Add(1)
	go c.run(ctx, cancel, gen, trigger)
}

// run executes one full refresh cycle for gen.
func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, gen uint64, trigger string) {
	defer c.wg.Done()
	defer cancel()
	defer func() {
		c.mu.Lock()
		if gen == c.generation {
			c.busy = false
			c.cancelRun = nil
		}
		c.mu.Unlock()
	}()

	rec := CycleRecord{
		ID:          uuid.New().String(),
		Generation:  gen,
		TriggeredBy: trigger,
		StartedAt:   c.now(),
	}

	// Independent fetches run concurrently; only the action center is
	// mandatory.
	var (
		ac      *dataservice.ActionCenterSnapshot
		acErr   error
		ach     *dataservice.AchievementsSnapshot
		achErr  error
		reports []domain.ReportSummary
		repErr  error
	)
	var fwg sync.WaitGroup
	fwg.Add(3)
	go func() {
		defer fwg.Done()
		ac, acErr = c.svc.GetActionCenterSnapshot(ctx)
	}()
	go func() {
		defer fwg.Done()
		ach, achErr = c.svc.GetAchievementsSnapshot(ctx)
	}()
	go func() {
		defer fwg.Done()
		reports, repErr = c.svc.ListReports(ctx)
	}()
	fwg.Wait()

	if ctx.Err() != nil {
		c.finishCycle(rec, "superseded", nil)
		return
	}

	if acErr != nil {
		log.Printf("[Controller] mandatory action center fetch failed: %v", acErr)
		c.store.CommitError(gen, acErr)
		rec.Err = acErr.Error()
		c.finishCycle(rec, "error", nil)
		return
	}
	if achErr != nil {
		log.Printf("[Controller] achievements fetch degraded: %v", achErr)
		ach = nil
	}
	if repErr != nil {
		log.Printf("[Controller] report list fetch degraded: %v", repErr)
		reports = nil
	}

	candidate := pickCandidate(reports)

	var detail *dataservice.ReportDetail
	var util *dataservice.SpaceUtilization
	if candidate != nil {
		rec.ReportID = candidate.ID
		var err error
		detail, err = c.svc.GetReportDetail(ctx, candidate.ID)
		if err != nil {
			if ctx.Err() != nil {
				c.finishCycle(rec, "superseded", nil)
				return
			}
			log.Printf("[Controller] report %d detail fetch degraded: %v", candidate.ID, err)
			detail = nil
		}
		util, err = c.svc.GetSpaceUtilization(ctx, candidate.ID)
		if err != nil {
			log.Printf("[Controller] report %d space utilization degraded: %v", candidate.ID, err)
			util = nil
		}
	}

	if ctx.Err() != nil {
		c.finishCycle(rec, "superseded", nil)
		return
	}

	snap := c.buildSnapshot(ac, ach, reports, candidate, detail, util)
	rec.AnomalyCount = snap.Summary.TotalAnomalies
	rec.Critical = snap.Summary.CriticalCount

	if candidate != nil && c.stillProcessing(reports, candidate, ac) {
		if !c.store.CommitProcessing(gen, snap, candidate.ID) {
			c.finishCycle(rec, "superseded", nil)
			return
		}
		log.Printf("[Controller] report %d looks mid-analysis, polling (interval=%s, max=%d)",
			candidate.ID, c.pollInterval, c.pollMaxAttempts)
		c.finishCycle(rec, "processing", snap)
		c.poll(ctx, gen, candidate.ID, snap)
		return
	}

	if !c.store.CommitReady(gen, snap) {
		c.finishCycle(rec, "superseded", nil)
		return
	}
	c.finishCycle(rec, "ready", snap)
}

// buildSnapshot runs the classification and scoring pipeline over the
// fetched data and assembles the committed payload.
func (c *Controller) buildSnapshot(
	ac *dataservice.ActionCenterSnapshot,
	ach *dataservice.AchievementsSnapshot,
	reports []domain.ReportSummary,
	candidate *domain.ReportSummary,
	detail *dataservice.ReportDetail,
	util *dataservice.SpaceUtilization,
) *Snapshot {
	var anomalies []domain.AnomalyRecord
	if detail != nil {
		for _, loc := range detail.Locations {
			anomalies = append(anomalies, loc.Anomalies...)
		}
	}

	cls := anomaly.Classify(anomalies)
	ins := anomaly.Score(cls.Active(), c.scoreOpts)
	summary := BuildSummary(cls, ins, ac.TotalActiveItems, c.fallback)

	return &Snapshot{
		ActionCenter:     ac,
		Achievements:     ach,
		Reports:          reports,
		CandidateReport:  candidate,
		ReportDetail:     detail,
		SpaceUtilization: util,
		Classification:   cls,
		Insights:         ins,
		Summary:          summary,
		FetchedAt:        c.now(),
	}
}

// stillProcessing decides whether a zero active count means "clean" or
// "analysis not finished". A brand-new report with nothing flagged is
// ambiguous; only reports inside the recency window are treated as still
// being analyzed.
func (c *Controller) stillProcessing(reports []domain.ReportSummary, candidate *domain.ReportSummary, ac *dataservice.ActionCenterSnapshot) bool {
	if len(reports) == 0 || ac.TotalActiveItems != 0 {
		return false
	}
	age := c.now().Sub(candidate.Timestamp)
	if age < 0 {
		age = -age
	}
	return age <= c.processingWindow
}

// poll re-lists reports on a fixed interval until the candidate report
// shows anomalies, the attempt cap is reached, or the run is cancelled.
// Success re-enters the orchestrator with a fresh generation; hitting the
// cap forces Ready with the data already committed, so views never spin
// indefinitely.
func (c *Controller) poll(ctx context.Context, gen uint64, candidateID int64, snap *Snapshot) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.pollMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !c.store.SetPolling(gen, attempt) {
			return // superseded
		}

		reports, err := c.svc.ListReports(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[Controller] poll attempt %d list reports: %v", attempt, err)
			continue
		}

		for _, r := range reports {
			if r.ID == candidateID && r.AnomalyCount > 0 {
				log.Printf("[Controller] report %d analysis complete after %d poll attempts (%d anomalies)",
					candidateID, attempt, r.AnomalyCount)
				c.fire("poller")
				return
			}
		}
	}

	log.Printf("[Controller] poll cap reached for report %d, forcing ready with available data", candidateID)
	c.store.CommitReady(gen, snap)
}

// finishCycle records the audit row and persists the committed snapshot,
// both best-effort.
func (c *Controller) finishCycle(rec CycleRecord, status string, snap *Snapshot) {
	rec.Status = status
	rec.CompletedAt = c.now()

	// Detached context: cancellation of the run must not lose the audit row.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if c.recorder != nil {
		if err := c.recorder.RecordCycle(ctx, rec); err != nil {
			log.Printf("[Controller] record cycle %s: %v", rec.ID, err)
		}
	}
	if c.cache != nil && snap != nil {
		if err := c.cache.Save(ctx, snap); err != nil {
			log.Printf("[Controller] cache snapshot: %v", err)
		}
	}
}

// pickCandidate selects the report to inspect: the most recent report with
// anomalies, or the most recent overall when none have any.
func pickCandidate(reports []domain.ReportSummary) *domain.ReportSummary {
	if len(reports) == 0 {
		return nil
	}

	sorted := make([]domain.ReportSummary, len(reports))
	copy(sorted, reports)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	for i := range sorted {
		if sorted[i].AnomalyCount > 0 {
			return &sorted[i]
		}
	}
	return &sorted[0]
}

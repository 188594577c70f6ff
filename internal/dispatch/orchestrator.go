package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tuntasinaja/notify/internal/clock"
	"github.com/tuntasinaja/notify/internal/push"
)

// Orchestrator ties the engine together: it loads candidates, evaluates
// thresholds, consults the ledger, resolves audiences, builds messages and
// fans sends out across both channels. One Orchestrator serves many
// invocations; all per-invocation state lives in a run value.
type Orchestrator struct {
	store   Store
	ledger  Ledger
	native  push.Sender // nil when the FCM channel is not configured
	web     push.Sender // nil when the Web Push channel is not configured
	clk     *clock.Clock
	logger  *slog.Logger
	workers int
}

// New constructs an Orchestrator. Either sender may be nil; a missing
// channel is surfaced as failure counts for its targets, never a crash.
func New(store Store, ledger Ledger, native, web push.Sender, clk *clock.Clock, logger *slog.Logger, workers int) *Orchestrator {
	if workers < 1 {
		workers = defaultWorkers
	}
	return &Orchestrator{
		store:   store,
		ledger:  ledger,
		native:  native,
		web:     web,
		clk:     clk,
		logger:  logger,
		workers: workers,
	}
}

// run holds the mutable state of a single invocation. The per-class workers
// share it under mu.
type run struct {
	mu      sync.Mutex
	summary Summary
	dead    map[string]bool // endpoint IDs invalidated during this run
}

func newRun() *run {
	return &run{dead: make(map[string]bool)}
}

func (r *run) addError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Errors = append(r.summary.Errors, err.Error())
}

// --------------------------------------------------------------------------
// Deadline job
// --------------------------------------------------------------------------

// RunDeadline is the deadline-reminder job: for every future-dated work item
// it decides whether a threshold was just crossed and, once per (item,
// threshold) pair, notifies everyone in the class who still has the item
// open.
func (o *Orchestrator) RunDeadline(ctx context.Context) Summary {
	now := o.clk.NowCivil()
	r := newRun()

	items, err := o.store.DeadlineCandidates(ctx, clock.ToUTC(now))
	if err != nil {
		r.addError(fmt.Errorf("load deadline candidates: %w", err))
		return o.finish(ctx, r)
	}
	if len(items) == 0 {
		return o.finish(ctx, r)
	}

	byClass := make(map[string][]WorkItem)
	for _, it := range items {
		byClass[it.ClassID] = append(byClass[it.ClassID], it)
	}

	o.forEachClass(ctx, r, keys(byClass), func(ctx context.Context, classID string) error {
		return o.deadlineClass(ctx, r, classID, byClass[classID], now)
	})
	return o.finish(ctx, r)
}

func (o *Orchestrator) deadlineClass(ctx context.Context, r *run, classID string, items []WorkItem, now time.Time) error {
	// Which items just crossed a threshold that has not fired yet.
	thresholds := make(map[string]Threshold)
	var candidates []WorkItem
	for _, it := range items {
		th := EvaluateDeadline(it.Deadline, now)
		if th == ThresholdNone {
			continue
		}
		fired, err := o.ledger.HasFired(ctx, it.ID, th)
		if err != nil {
			return fmt.Errorf("ledger check %s/%s: %w", it.ID, th, err)
		}
		if fired {
			continue
		}
		thresholds[it.ID] = th
		candidates = append(candidates, it)
	}
	if len(candidates) == 0 {
		return nil
	}

	members, err := o.store.ClassMembers(ctx, classID)
	if err != nil {
		return fmt.Errorf("class members %s: %w", classID, err)
	}
	eligible := EligibleMembers(members, KindDeadline, now)
	if len(eligible) == 0 {
		return nil
	}

	marks, err := o.store.CompletionMarks(ctx, memberIDs(eligible), itemIDs(candidates))
	if err != nil {
		return fmt.Errorf("completion marks %s: %w", classID, err)
	}
	perUser := ResolveUncompleted(eligible, candidates, marks)
	if len(perUser) == 0 {
		return nil
	}

	endpointsByUser, err := o.loadEndpoints(ctx, keys(perUser))
	if err != nil {
		return fmt.Errorf("endpoints %s: %w", classID, err)
	}
	sound := soundByUser(eligible)

	// Send per user per threshold; remember which (item, threshold) pairs
	// reached at least one recipient so they can be ledger-marked.
	delivered := make(map[string]Threshold)
	for userID, userItems := range perUser {
		byThreshold := make(map[Threshold][]WorkItem)
		for _, it := range userItems {
			byThreshold[thresholds[it.ID]] = append(byThreshold[thresholds[it.ID]], it)
		}
		for th, group := range byThreshold {
			msg := DeadlineMessage(group, th)
			msg.Sound = sound[userID]
			res := o.send(ctx, r, endpointsByUser[userID], msg)
			if res.Sent > 0 {
				for _, it := range group {
					delivered[it.ID] = th
				}
			}
		}
	}

	for itemID, th := range delivered {
		if err := o.ledger.MarkFired(ctx, itemID, th); err != nil {
			o.logger.Warn("ledger mark failed", "item_id", itemID, "threshold", th.String(), "error", err)
			continue
		}
		r.mu.Lock()
		r.summary.LedgerMarked++
		r.mu.Unlock()
	}
	return nil
}

// --------------------------------------------------------------------------
// Schedule job
// --------------------------------------------------------------------------

// RunSchedule is the evening schedule-reminder job: every class with lessons
// tomorrow gets a heads-up. LevelDetailed additionally matches today's work
// items against tomorrow's subjects and tells each user how many they still
// have open; LevelSummary sends one uniform text per class.
func (o *Orchestrator) RunSchedule(ctx context.Context, detail DetailLevel) Summary {
	now := o.clk.NowCivil()
	tomorrow := clock.Tomorrow(now)
	r := newRun()

	entries, err := o.store.ScheduleEntries(ctx, tomorrow.Weekday())
	if err != nil {
		r.addError(fmt.Errorf("load schedule entries: %w", err))
		return o.finish(ctx, r)
	}
	if len(entries) == 0 {
		return o.finish(ctx, r)
	}

	subjectsByClass := make(map[string][]string)
	for _, e := range entries {
		subjectsByClass[e.ClassID] = append(subjectsByClass[e.ClassID], e.Subject)
	}

	o.forEachClass(ctx, r, keys(subjectsByClass), func(ctx context.Context, classID string) error {
		return o.scheduleClass(ctx, r, classID, subjectsByClass[classID], now, tomorrow, detail)
	})
	return o.finish(ctx, r)
}

func (o *Orchestrator) scheduleClass(ctx context.Context, r *run, classID string, subjects []string, now, tomorrow time.Time, detail DetailLevel) error {
	members, err := o.store.ClassMembers(ctx, classID)
	if err != nil {
		return fmt.Errorf("class members %s: %w", classID, err)
	}
	eligible := EligibleMembers(members, KindSchedule, now)
	if len(eligible) == 0 {
		return nil
	}

	// In detailed mode, count each user's unfinished items that mention one
	// of tomorrow's subjects in the title.
	pending := make(map[string]int)
	if detail == LevelDetailed {
		items, err := o.store.ClassItemsCreatedBetween(ctx, classID,
			clock.ToUTC(clock.StartOfDay(now)), clock.ToUTC(clock.StartOfDay(tomorrow)))
		if err != nil {
			return fmt.Errorf("today's items %s: %w", classID, err)
		}
		var matched []WorkItem
		for _, it := range items {
			if MatchesSubject(it.Title, subjects) {
				matched = append(matched, it)
			}
		}
		if len(matched) > 0 {
			marks, err := o.store.CompletionMarks(ctx, memberIDs(eligible), itemIDs(matched))
			if err != nil {
				return fmt.Errorf("completion marks %s: %w", classID, err)
			}
			for userID, remaining := range ResolveUncompleted(eligible, matched, marks) {
				pending[userID] = len(remaining)
			}
		}
	}

	endpointsByUser, err := o.loadEndpoints(ctx, memberIDs(eligible))
	if err != nil {
		return fmt.Errorf("endpoints %s: %w", classID, err)
	}
	sound := soundByUser(eligible)

	for _, m := range eligible {
		msg := ScheduleMessage(subjects, tomorrow, pending[m.UserID], detail)
		msg.Sound = sound[m.UserID]
		o.send(ctx, r, endpointsByUser[m.UserID], msg)
	}
	return nil
}

// --------------------------------------------------------------------------
// Personal reminder job
// --------------------------------------------------------------------------

// RunPersonal delivers reminders at each user's own configured time of day,
// listing their uncompleted items due within the next civil day. Gated by
// the reminder-time match window instead of the ledger; the trigger cadence
// must not be shorter than the window.
func (o *Orchestrator) RunPersonal(ctx context.Context) Summary {
	now := o.clk.NowCivil()
	r := newRun()

	members, err := o.store.MembersWithReminderTime(ctx)
	if err != nil {
		r.addError(fmt.Errorf("load reminder members: %w", err))
		return o.finish(ctx, r)
	}

	byClass := make(map[string][]Member)
	for _, m := range members {
		if !m.PushEnabled || !reminderDue(m, now) || inDNDWindow(m, now) {
			continue
		}
		byClass[m.ClassID] = append(byClass[m.ClassID], m)
	}
	if len(byClass) == 0 {
		return o.finish(ctx, r)
	}

	o.forEachClass(ctx, r, keys(byClass), func(ctx context.Context, classID string) error {
		return o.personalClass(ctx, r, classID, byClass[classID], now)
	})
	return o.finish(ctx, r)
}

func (o *Orchestrator) personalClass(ctx context.Context, r *run, classID string, members []Member, now time.Time) error {
	items, err := o.store.ClassItemsDueBetween(ctx, classID,
		clock.ToUTC(now), clock.ToUTC(now.Add(24*time.Hour)))
	if err != nil {
		return fmt.Errorf("due items %s: %w", classID, err)
	}
	if len(items) == 0 {
		return nil
	}

	marks, err := o.store.CompletionMarks(ctx, memberIDs(members), itemIDs(items))
	if err != nil {
		return fmt.Errorf("completion marks %s: %w", classID, err)
	}
	perUser := ResolveUncompleted(members, items, marks)
	if len(perUser) == 0 {
		return nil
	}

	endpointsByUser, err := o.loadEndpoints(ctx, keys(perUser))
	if err != nil {
		return fmt.Errorf("endpoints %s: %w", classID, err)
	}
	sound := soundByUser(members)

	for userID, userItems := range perUser {
		msg := PersonalMessage(userItems)
		msg.Sound = sound[userID]
		o.send(ctx, r, endpointsByUser[userID], msg)
	}
	return nil
}

// --------------------------------------------------------------------------
// Shared machinery
// --------------------------------------------------------------------------

// forEachClass runs fn for every class on a bounded worker pool. A class
// that fails is logged and counted; the others keep going.
func (o *Orchestrator) forEachClass(ctx context.Context, r *run, classIDs []string, fn func(ctx context.Context, classID string) error) {
	workers := o.workers
	if workers > len(classIDs) {
		workers = len(classIDs)
	}

	ch := make(chan string, len(classIDs))
	for _, id := range classIDs {
		ch <- id
	}
	close(ch)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for classID := range ch {
				if ctx.Err() != nil {
					return
				}
				if err := fn(ctx, classID); err != nil {
					o.logger.Warn("class processing failed", "class", classID, "error", err)
					r.addError(fmt.Errorf("class %s: %w", classID, err))
					continue
				}
				r.mu.Lock()
				r.summary.ClassesProcessed++
				r.mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

// send fans one user's message out across both channels, skipping endpoints
// already invalidated earlier in this run, and folds the results into the
// run summary. A nil (unconfigured) sender fails its targets.
func (o *Orchestrator) send(ctx context.Context, r *run, endpoints []Endpoint, msg push.Message) push.Result {
	var native, web []push.Target
	r.mu.Lock()
	for _, e := range endpoints {
		if r.dead[e.ID] {
			continue
		}
		switch e.Channel {
		case push.ChannelWebPush:
			web = append(web, e.Target())
		default:
			native = append(native, e.Target())
		}
	}
	r.mu.Unlock()

	var total push.Result
	total = mergeResult(total, o.sendChannel(ctx, o.native, "fcm", native, msg))
	total = mergeResult(total, o.sendChannel(ctx, o.web, "webpush", web, msg))

	r.mu.Lock()
	r.summary.Sent += total.Sent
	r.summary.Failed += total.Failed
	for _, id := range total.Invalid {
		r.dead[id] = true
	}
	r.mu.Unlock()
	return total
}

func (o *Orchestrator) sendChannel(ctx context.Context, sender push.Sender, name string, targets []push.Target, msg push.Message) push.Result {
	if len(targets) == 0 {
		return push.Result{}
	}
	if sender == nil {
		// Channel not configured; its targets count as failures and the
		// other channel carries on.
		return push.Result{Failed: len(targets)}
	}
	res, err := sender.Send(ctx, targets, msg)
	if err != nil {
		o.logger.Warn("channel send failed", "channel", name, "targets", len(targets), "error", err)
		res.Failed += len(targets) - res.Sent - res.Failed - len(res.Invalid)
	}
	return res
}

// finish deletes endpoints invalidated during the run and seals the summary.
func (o *Orchestrator) finish(ctx context.Context, r *run) Summary {
	r.mu.Lock()
	ids := make([]string, 0, len(r.dead))
	for id := range r.dead {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	if len(ids) > 0 {
		n, err := o.store.DeleteEndpoints(ctx, ids)
		if err != nil {
			o.logger.Warn("delete invalid endpoints failed", "count", len(ids), "error", err)
			r.addError(fmt.Errorf("delete endpoints: %w", err))
		} else {
			r.summary.EndpointsDeleted = n
			o.logger.Info("deleted invalid endpoints", "count", n)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

func mergeResult(a, b push.Result) push.Result {
	a.Sent += b.Sent
	a.Failed += b.Failed
	a.Invalid = append(a.Invalid, b.Invalid...)
	return a
}

func memberIDs(members []Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return ids
}

func itemIDs(items []WorkItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func soundByUser(members []Member) map[string]bool {
	out := make(map[string]bool, len(members))
	for _, m := range members {
		out[m.UserID] = m.SoundEnabled
	}
	return out
}

func keys[M ~map[string]V, V any](m M) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// loadEndpoints fetches and groups device endpoints for a set of users.
func (o *Orchestrator) loadEndpoints(ctx context.Context, userIDs []string) (map[string][]Endpoint, error) {
	endpoints, err := o.store.Endpoints(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	byUser := make(map[string][]Endpoint)
	for _, e := range endpoints {
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}
	return byUser, nil
}

package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"subextract/internal/queue"
	"subextract/internal/testsupport"
)

func TestEnqueueAndGetByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := store.Enqueue(ctx, queue.NewJob{OwnerID: "alice", VideoRef: "upload:abc"})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if job.Status != queue.StatusQueued {
		t.Fatalf("expected queued status, got %s", job.Status)
	}
	if job.TargetID != "alice" {
		t.Fatalf("expected target to default to owner, got %q", job.TargetID)
	}
	if len(job.ShortID()) != queue.ShortIDLength {
		t.Fatalf("unexpected short id %q", job.ShortID())
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.VideoRef != "upload:abc" || fetched.OwnerID != "alice" {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}

	missing, err := store.GetByID(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("GetByID missing failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing job, got %#v", missing)
	}
}

func TestEnqueueRequiresOwnerAndRef(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, queue.NewJob{VideoRef: "upload:x"}); err == nil {
		t.Fatal("expected error without owner")
	}
	if _, err := store.Enqueue(ctx, queue.NewJob{OwnerID: "bob"}); err == nil {
		t.Fatal("expected error without video ref")
	}
}

func TestFindByPrefixScopesByOwner(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	owner, other := testsupport.OwnerID(1), testsupport.OwnerID(2)+"-other"
	mine := testsupport.NewJob(t, store, owner)
	theirs := testsupport.NewJob(t, store, other)

	found, err := store.FindByPrefix(ctx, owner, mine.ID[:4])
	if err != nil {
		t.Fatalf("FindByPrefix failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != mine.ID {
		t.Fatalf("expected only %s's job, got %#v", owner, found)
	}

	found, err = store.FindByPrefix(ctx, owner, theirs.ID)
	if err != nil {
		t.Fatalf("FindByPrefix failed: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("expected no match for another owner's id, got %d", len(found))
	}

	all, err := store.FindByPrefix(ctx, owner, "")
	if err != nil {
		t.Fatalf("FindByPrefix all failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected empty prefix to list owned jobs, got %d", len(all))
	}
}

func TestFindByPrefixReturnsNewestFirst(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		stamp := base.Add(time.Duration(i) * time.Second)
		store.SetClock(func() time.Time { return stamp })
		ids = append(ids, testsupport.NewJob(t, store, "carol").ID)
	}

	found, err := store.FindByPrefix(ctx, "carol", "")
	if err != nil {
		t.Fatalf("FindByPrefix failed: %v", err)
	}
	if len(found) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(found))
	}
	if found[0].ID != ids[2] || found[2].ID != ids[0] {
		t.Fatalf("expected newest first, got %s, %s, %s", found[0].ID, found[1].ID, found[2].ID)
	}
}

func TestClaimNextIsFIFOAndExclusive(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var ids []string
	for i := 0; i < 4; i++ {
		stamp := base.Add(time.Duration(i) * time.Millisecond)
		store.SetClock(func() time.Time { return stamp })
		ids = append(ids, testsupport.NewJob(t, store, "dave").ID)
	}

	first, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if first == nil || first.ID != ids[0] {
		t.Fatalf("expected oldest job claimed first, got %#v", first)
	}
	if first.Status != queue.StatusActive || first.StartedAt == nil {
		t.Fatalf("expected claimed job active with start time, got %#v", first)
	}

	var (
		mu      sync.Mutex
		claimed = map[string]int{first.ID: 1}
		wg      sync.WaitGroup
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := store.ClaimNext(ctx)
			if err != nil {
				t.Errorf("ClaimNext failed: %v", err)
				return
			}
			if job == nil {
				return
			}
			mu.Lock()
			claimed[job.ID]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(claimed) != 4 {
		t.Fatalf("expected all 4 jobs claimed once, got %v", claimed)
	}
	for id, count := range claimed {
		if count != 1 {
			t.Fatalf("job %s claimed %d times", id, count)
		}
	}

	none, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext on empty queue failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil when queue empty, got %#v", none)
	}
}

func TestRequestCancelOutcomes(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	queued := testsupport.NewJob(t, store, "erin")
	result, err := store.RequestCancel(ctx, queued.ID)
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if result != queue.CancelApplied {
		t.Fatalf("expected cancelled, got %s", result)
	}
	again, err := store.RequestCancel(ctx, queued.ID)
	if err != nil {
		t.Fatalf("RequestCancel repeat failed: %v", err)
	}
	if again != queue.CancelAlreadyCancelled {
		t.Fatalf("expected already_cancelled, got %s", again)
	}

	finished := testsupport.NewJob(t, store, "erin")
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	ok, err := store.Finish(ctx, finished.ID, 3)
	if err != nil || !ok {
		t.Fatalf("Finish = %v, %v", ok, err)
	}
	result, err = store.RequestCancel(ctx, finished.ID)
	if err != nil {
		t.Fatalf("RequestCancel finished failed: %v", err)
	}
	if result != queue.CancelAlreadyComplete {
		t.Fatalf("expected already_complete, got %s", result)
	}

	reloaded, err := store.GetByID(ctx, finished.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.Status != queue.StatusFinished || reloaded.CueCount != 3 || reloaded.CancelRequested {
		t.Fatalf("finished job mutated by cancel: %#v", reloaded)
	}

	missing, err := store.RequestCancel(ctx, "nope")
	if err != nil {
		t.Fatalf("RequestCancel missing failed: %v", err)
	}
	if missing != queue.CancelMissing {
		t.Fatalf("expected not_found, got %s", missing)
	}
}

func TestTerminalStatusIsImmutable(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "frank")
	if _, err := store.RequestCancel(ctx, job.ID); err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}

	if ok, err := store.Finish(ctx, job.ID, 1); err != nil || ok {
		t.Fatalf("Finish on cancelled job = %v, %v", ok, err)
	}
	if ok, err := store.Fail(ctx, job.ID, "boom"); err != nil || ok {
		t.Fatalf("Fail on cancelled job = %v, %v", ok, err)
	}
	if ok, err := store.CompareAndSetStatus(ctx, job.ID, queue.StatusActive, queue.StatusQueued); err != nil || ok {
		t.Fatalf("CAS on cancelled job = %v, %v", ok, err)
	}
	if ok, err := store.UpdateProgress(ctx, job.ID, "Recognizing text", 50, ""); err != nil || ok {
		t.Fatalf("UpdateProgress on cancelled job = %v, %v", ok, err)
	}

	reloaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.Status != queue.StatusCancelled || reloaded.FinishedAt == nil {
		t.Fatalf("unexpected job after terminal writes: %#v", reloaded)
	}
}

func TestCompareAndSetStatusRequiresSource(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job := testsupport.NewJob(t, store, "gina")
	if _, err := store.CompareAndSetStatus(context.Background(), job.ID, queue.StatusActive); err == nil {
		t.Fatal("expected error without source statuses")
	}
}

func TestUpdateProgressClampsPercent(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "hank")
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	ok, err := store.UpdateProgress(ctx, job.ID, "Sampling frames", 140, "frame 3")
	if err != nil || !ok {
		t.Fatalf("UpdateProgress = %v, %v", ok, err)
	}
	reloaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.ProgressPercent != 100 || reloaded.ProgressStage != "Sampling frames" || reloaded.ProgressMessage != "frame 3" {
		t.Fatalf("unexpected progress: %#v", reloaded)
	}
}

func TestReclaimInterruptedFailsStaleActiveJobs(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return base })

	stale := testsupport.NewJob(t, store, "ivy")
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}

	later := base.Add(10 * time.Minute)
	store.SetClock(func() time.Time { return later })
	fresh := testsupport.NewJob(t, store, "ivy")
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	waiting := testsupport.NewJob(t, store, "ivy")

	reclaimed, err := store.ReclaimInterrupted(ctx, later.Add(-2*time.Minute), "interrupted")
	if err != nil {
		t.Fatalf("ReclaimInterrupted failed: %v", err)
	}
	if len(reclaimed) != 1 || reclaimed[0].ID != stale.ID {
		t.Fatalf("expected only the stale job reclaimed, got %#v", reclaimed)
	}
	if reclaimed[0].Status != queue.StatusFailed || reclaimed[0].ErrorMessage != "interrupted" {
		t.Fatalf("unexpected reclaimed job: %#v", reclaimed[0])
	}

	for _, id := range []string{fresh.ID, waiting.ID} {
		job, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Status.IsTerminal() {
			t.Fatalf("job %s should not be reclaimed: %s", id, job.Status)
		}
	}
}

func TestRemoveTerminalBeforeAndStats(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return old })
	done := testsupport.NewJob(t, store, "jo")
	if _, err := store.Fail(ctx, done.ID, "bad input"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	recent := old.Add(30 * 24 * time.Hour)
	store.SetClock(func() time.Time { return recent })
	testsupport.NewJob(t, store, "jo")

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusFailed] != 1 || stats[queue.StatusQueued] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	removed, err := store.RemoveTerminalBefore(ctx, recent.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("RemoveTerminalBefore failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed job, got %d", removed)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 1 || health.Queued != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewJob(t, store, "kim")

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.Readable || !health.IntegrityOK || health.TotalJobs != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}
	if health.DBPath != cfg.DatabasePath() {
		t.Fatalf("expected db path %q, got %q", cfg.DatabasePath(), health.DBPath)
	}
}

func TestParseStatus(t *testing.T) {
	status, ok := queue.ParseStatus(" Active ")
	if !ok || status != queue.StatusActive {
		t.Fatalf("ParseStatus = %q, %v", status, ok)
	}
	if _, ok := queue.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if queue.StatusQueued.IsTerminal() || !queue.StatusCancelled.IsTerminal() {
		t.Fatal("unexpected terminal classification")
	}
}

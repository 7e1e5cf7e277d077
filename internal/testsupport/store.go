package testsupport

import (
	"context"
	"testing"

	"subextract/internal/config"
	"subextract/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob enqueues a job for owner with a placeholder reference.
func NewJob(t testing.TB, store *queue.Store, owner string) *queue.Job {
	t.Helper()

	job, err := store.Enqueue(context.Background(), queue.NewJob{
		OwnerID:  owner,
		TargetID: owner,
		VideoRef: "file:///videos/" + owner + ".mp4",
	})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}

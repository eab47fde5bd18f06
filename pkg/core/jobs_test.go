package core

import (
	"sync"
	"sync/atomic"
	"testing"
)

// TestBaseJob_LockUnlock tests the atomic lock behavior.
func TestBaseJob_LockUnlock(t *testing.T) {
	tests := []struct {
		name        string
		prelock     bool
		wantTryLock bool
	}{
		{"Unlocked - TryLock succeeds", false, true},
		{"Prelocked - TryLock fails", true, true}, // First TryLock succeeds, second fails
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBaseJob("test")

			if tt.prelock {
				// First lock should succeed
				if !b.TryLock() {
					t.Fatal("First TryLock should succeed")
				}
				// Second lock should fail
				if b.TryLock() {
					t.Error("Second TryLock should fail when already locked")
				}
				b.Unlock()
				// After unlock, should succeed again
				if !b.TryLock() {
					t.Error("TryLock should succeed after Unlock")
				}
			} else {
				if got := b.TryLock(); got != tt.wantTryLock {
					t.Errorf("TryLock() = %v, want %v", got, tt.wantTryLock)
				}
			}
		})
	}
}

// TestBaseJob_Name tests the Name method.
func TestBaseJob_Name(t *testing.T) {
	tests := []struct {
		name     string
		jobName  string
		wantName string
	}{
		{"Simple name", "TestJob", "TestJob"},
		{"Empty name", "", ""},
		{"Unicode name", "作业", "作业"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBaseJob(tt.jobName)
			if got := b.Name(); got != tt.wantName {
				t.Errorf("Name() = %v, want %v", got, tt.wantName)
			}
		})
	}
}

// TestBaseJob_ConcurrentTryLock checks that exactly one caller wins the lock.
func TestBaseJob_ConcurrentTryLock(t *testing.T) {
	b := NewBaseJob("Ingest")

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.TryLock() {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("winners = %d, want 1", winners)
	}
	if !b.Running() {
		t.Error("Running() = false while locked")
	}
	b.Unlock()
	if b.Running() {
		t.Error("Running() = true after Unlock")
	}
}

package probe

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestRun(t *testing.T) {
	probes := []Probe{
		ForPinger("source", fakePinger{}, true),
		ForPinger("archive", fakePinger{err: errors.New("archive is empty")}, false),
		{Name: "unset", Critical: false},
	}

	results := Run(context.Background(), probes)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0].Error != nil {
		t.Errorf("source probe failed: %v", results[0].Error)
	}
	if results[1].Error == nil || results[1].Probe.Name != "archive" {
		t.Errorf("archive result = %+v", results[1])
	}
	if results[2].Error == nil {
		t.Error("probe without a check should fail")
	}
}

func TestRun_Timeout(t *testing.T) {
	slow := Probe{
		Name:    "slow",
		Timeout: 10 * time.Millisecond,
		Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}

	start := time.Now()
	res := Run(context.Background(), []Probe{slow})
	if !errors.Is(res[0].Error, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", res[0].Error)
	}
	if time.Since(start) > time.Second {
		t.Error("timeout was not applied")
	}
}

func TestAnalyzeResults(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		wantErr bool
	}{
		{
			name:    "All Pass",
			results: []Result{{Probe: Probe{Name: "P1", Critical: true}}},
			wantErr: false,
		},
		{
			name:    "Critical Failure",
			results: []Result{{Probe: Probe{Name: "P1", Critical: true}, Error: errors.New("fail")}},
			wantErr: true,
		},
		{
			name:    "Non-Critical Failure",
			results: []Result{{Probe: Probe{Name: "P1"}, Error: errors.New("fail")}},
			wantErr: false,
		},
		{
			name: "Mixed Failure",
			results: []Result{
				{Probe: Probe{Name: "P1"}, Error: errors.New("fail")},
				{Probe: Probe{Name: "P2", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AnalyzeResults(tt.results)
			if (err != nil) != tt.wantErr {
				t.Errorf("AnalyzeResults() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

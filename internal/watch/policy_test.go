package watch

import (
	"context"
	"errors"
	"testing"

	"github.com/achimid/web-page-notify-api/internal/model"
)

type fakeCounter struct {
	count int
	err   error

	gotURL     string
	gotHash    string
	gotExclude string
}

func (f *fakeCounter) CountExecutionsByHash(ctx context.Context, url, hash, excludeID string) (int, error) {
	f.gotURL, f.gotHash, f.gotExclude = url, hash, excludeID
	return f.count, f.err
}

func TestShouldNotifySkipChain(t *testing.T) {
	t.Parallel()

	ok := func(hash string) model.ExecutionResult {
		return model.ExecutionResult{ID: "cur", Success: true, HashTarget: hash, ExtractedTarget: "the quick brown fox"}
	}

	tests := []struct {
		name   string
		task   model.WatchTask
		owner  model.Owner
		res    model.ExecutionResult
		count  int
		want   bool
		reason string
	}{
		{
			name:   "failed execution",
			task:   model.WatchTask{ID: "t"},
			res:    model.ExecutionResult{Success: false, ErrorMessage: "boom"},
			want:   false,
			reason: SkipExecutionFailed,
		},
		{
			name: "only changed, unchanged hash",
			task: model.WatchTask{
				ID:            "t",
				Options:       model.Options{OnlyChanged: true},
				LastExecution: model.Snapshot{HashChanged: false},
			},
			res:    ok("h1"),
			want:   false,
			reason: SkipHashNotChanged,
		},
		{
			name: "only unique, hash seen before",
			task: model.WatchTask{
				ID:            "t",
				Options:       model.Options{OnlyUnique: true},
				LastExecution: model.Snapshot{HashChanged: true},
			},
			res:    ok("h1"),
			count:  2,
			want:   false,
			reason: SkipHashNotUnique,
		},
		{
			name: "task filter does not match",
			task: model.WatchTask{
				ID:            "t",
				Filter:        model.Filter{Words: []string{"zzzz"}, Threshold: 1},
				LastExecution: model.Snapshot{HashChanged: true},
			},
			res:    ok("h1"),
			want:   false,
			reason: SkipNoSimilarity,
		},
		{
			name: "owner filter used when task filter empty",
			task: model.WatchTask{
				ID:            "t",
				LastExecution: model.Snapshot{HashChanged: true},
			},
			owner:  model.Owner{Filter: model.Filter{Words: []string{"zzzz"}, Threshold: 1}},
			res:    ok("h1"),
			want:   false,
			reason: SkipNoSimilarity,
		},
		{
			name: "filter matches",
			task: model.WatchTask{
				ID:            "t",
				Filter:        model.Filter{Words: []string{"fox"}, Threshold: 1},
				LastExecution: model.Snapshot{HashChanged: true},
			},
			res:  ok("h1"),
			want: true,
		},
		{
			name: "all gates pass without options",
			task: model.WatchTask{ID: "t"},
			res:  ok("h1"),
			want: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewPolicy(&fakeCounter{count: tt.count}, nil)
			got, reason := p.ShouldNotify(context.Background(), &tt.task, tt.owner, tt.res)
			if got != tt.want {
				t.Fatalf("ShouldNotify = %v, want %v (reason %q)", got, tt.want, reason)
			}
			if reason != tt.reason {
				t.Fatalf("reason = %q, want %q", reason, tt.reason)
			}
		})
	}
}

func TestShouldNotifyUniqueQueryExcludesCurrent(t *testing.T) {
	t.Parallel()
	counter := &fakeCounter{count: 0}
	p := NewPolicy(counter, nil)

	task := model.WatchTask{
		ID:            "t",
		URL:           "https://a.test",
		Options:       model.Options{OnlyUnique: true},
		LastExecution: model.Snapshot{HashChanged: true},
	}
	res := model.ExecutionResult{ID: "cur", Success: true, HashTarget: "h9"}

	ok, _ := p.ShouldNotify(context.Background(), &task, model.Owner{}, res)
	if !ok {
		t.Fatal("unique hash should notify")
	}
	if counter.gotURL != "https://a.test" || counter.gotHash != "h9" || counter.gotExclude != "cur" {
		t.Fatalf("count query got (%q, %q, %q)", counter.gotURL, counter.gotHash, counter.gotExclude)
	}
}

func TestShouldNotifyCounterErrorSkips(t *testing.T) {
	t.Parallel()
	p := NewPolicy(&fakeCounter{err: errors.New("db down")}, nil)
	task := model.WatchTask{
		ID:            "t",
		Options:       model.Options{OnlyUnique: true},
		LastExecution: model.Snapshot{HashChanged: true},
	}
	res := model.ExecutionResult{ID: "cur", Success: true, HashTarget: "h1"}

	ok, reason := p.ShouldNotify(context.Background(), &task, model.Owner{}, res)
	if ok || reason != SkipHashNotUnique {
		t.Fatalf("got (%v, %q), want skip with %q", ok, reason, SkipHashNotUnique)
	}
}

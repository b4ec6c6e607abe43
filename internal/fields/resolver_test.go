package fields

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kiracore/jirapulse/internal/jira"
	"github.com/rs/zerolog"
)

type fakeSource struct {
	calls  int32
	fields []jira.Field
	err    error
}

func (f *fakeSource) Fields(ctx context.Context) ([]jira.Field, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.fields, nil
}

func catalog() []jira.Field {
	return []jira.Field{
		{ID: "summary", Name: "Summary"},
		{ID: "customfield_10016", Name: "Story Point Estimate", Custom: true},
		{ID: "customfield_10001", Name: "Команда", Custom: true},
		{ID: "customfield_10050", Name: "Target Environment", Custom: true},
		{ID: "customfield_10099", Name: "Sprint", Custom: true},
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(&fakeSource{fields: catalog()}, zerolog.Nop())
	if err := r.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	tests := []struct {
		logical string
		want    string
		ok      bool
	}{
		{StoryPoints, "customfield_10016", true},
		{Team, "customfield_10001", true},
		{Environment, "customfield_10050", true},
		{Release, "", false},
		{"sprint", "customfield_10099", true},
		{"SUMMARY", "summary", true},
		{"Nope", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.logical, func(t *testing.T) {
			got, ok := r.Resolve(tc.logical)
			if got != tc.want || ok != tc.ok {
				t.Errorf("Resolve(%q) = %q, %v, want %q, %v", tc.logical, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestResolve_AliasOrder(t *testing.T) {
	src := &fakeSource{fields: []jira.Field{
		{ID: "customfield_2", Name: "Team Name"},
		{ID: "customfield_1", Name: "Development Team"},
	}}
	r := NewResolver(src, zerolog.Nop())
	r.Initialize(context.Background())

	if got, _ := r.Resolve(Team); got != "customfield_1" {
		t.Errorf("Resolve(Team) = %q, want the earlier alias customfield_1", got)
	}
}

func TestResolve_DuplicateNames(t *testing.T) {
	src := &fakeSource{fields: []jira.Field{
		{ID: "customfield_10001", Name: "Команда", Custom: true},
		{ID: "customfield_10200", Name: "команда", Custom: true},
	}}
	r := NewResolver(src, zerolog.Nop())
	r.Initialize(context.Background())

	if got, _ := r.FieldID("Команда"); got != "customfield_10200" {
		t.Errorf("FieldID() = %q, want the last listed customfield_10200", got)
	}
	if got, _ := r.Resolve(Team); got != "customfield_10200" {
		t.Errorf("Resolve(Team) = %q, want customfield_10200", got)
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	src := &fakeSource{fields: catalog()}
	r := NewResolver(src, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Initialize(context.Background())
			r.Resolve(Team)
		}()
	}
	wg.Wait()

	if src.calls != 1 {
		t.Errorf("catalog fetched %d times, want 1", src.calls)
	}
	if !r.Initialized() {
		t.Error("expected initialized resolver")
	}
}

func TestInitialize_FailureIsRetryable(t *testing.T) {
	src := &fakeSource{err: errors.New("503")}
	r := NewResolver(src, zerolog.Nop())

	if err := r.Initialize(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if r.Initialized() {
		t.Error("failed initialization should leave the resolver uninitialized")
	}
	if _, ok := r.Resolve(Team); ok {
		t.Error("uninitialized resolver should resolve nothing")
	}
	if got := r.ResolveOr(Team, "customfield_10001"); got != "customfield_10001" {
		t.Errorf("ResolveOr() = %q, want fallback", got)
	}

	src.err = nil
	src.fields = catalog()
	if err := r.Initialize(context.Background()); err != nil {
		t.Fatalf("retry error: %v", err)
	}
	if _, ok := r.Resolve(Team); !ok {
		t.Error("expected Team to resolve after retry")
	}
	if src.calls != 2 {
		t.Errorf("calls = %d, want 2", src.calls)
	}
}

func TestField(t *testing.T) {
	r := NewResolver(&fakeSource{fields: catalog()}, zerolog.Nop())
	r.Initialize(context.Background())

	f, ok := r.Field("customfield_10016")
	if !ok || f.Name != "Story Point Estimate" {
		t.Errorf("Field() = %+v, %v", f, ok)
	}
}

func TestAliases(t *testing.T) {
	if got := Aliases("Custom Thing"); len(got) != 1 || got[0] != "Custom Thing" {
		t.Errorf("Aliases() = %v", got)
	}
	if got := Aliases(Team); len(got) != 4 || got[3] != "Команда" {
		t.Errorf("Aliases(Team) = %v", got)
	}
}

package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Monotonic(t *testing.T) {
	rec := &Recorder{}
	tr := NewTracker(rec)

	tr.Report(10, "a")
	tr.Report(5, "b")
	tr.Report(40, "c")
	tr.Report(140, "d")
	tr.Done()
	tr.Report(50, "late")
	tr.Done()

	assert.Equal(t, []Update{
		{10, "a"},
		{10, "b"},
		{40, "c"},
		{100, "d"},
		{100, DoneMessage},
	}, rec.Updates())
	assert.Equal(t, 100, tr.Last())
}

func TestTracker_Step(t *testing.T) {
	rec := &Recorder{}
	tr := NewTracker(rec)

	for i := 1; i <= 4; i++ {
		tr.Step(0, 80, i, 4, "user")
	}
	tr.Step(80, 90, 1, 0, "empty")

	var got []int
	for _, u := range rec.Updates() {
		got = append(got, u.Percent)
	}
	assert.Equal(t, []int{20, 40, 60, 80, 80}, got)
}

func TestTracker_NilObserver(t *testing.T) {
	tr := NewTracker(nil)
	tr.Report(10, "x")
	tr.Done()
	assert.Equal(t, 100, tr.Last())
}

func TestFunc(t *testing.T) {
	var got Update
	var obs Observer = Func(func(p int, m string) { got = Update{p, m} })
	obs.Report(42, "half")
	assert.Equal(t, Update{42, "half"}, got)
}

func TestChannel(t *testing.T) {
	ch := NewChannel(0)
	tr := NewTracker(ch)

	go func() {
		tr.Report(30, "loading")
		tr.Done()
		ch.Close()
	}()

	var got []Update
	for u := range ch.C {
		got = append(got, u)
	}

	require.Len(t, got, 2)
	assert.Equal(t, Update{30, "loading"}, got[0])
	assert.Equal(t, Update{100, DoneMessage}, got[1])
}

func TestChannelContext_DropsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := NewChannelContext(ctx, 0)
	cancel()

	finished := make(chan struct{})
	go func() {
		ch.Report(10, "nobody listens")
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Report blocked after cancel")
	}
}

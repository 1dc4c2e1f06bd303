package gate

import (
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestShouldAnswer_Threshold(t *testing.T) {
	clock := newFakeClock()
	g := New(clock.now)
	key := Key{Store: "main", QuestionID: 1001}
	threshold := 5 * time.Minute

	g.Observe(key)

	// Inside [T, T+5m): closed.
	for _, elapsed := range []time.Duration{0, time.Minute, 4*time.Minute + 59*time.Second} {
		clock.t = newFakeClock().t.Add(elapsed)
		open, remaining := g.ShouldAnswer(key, threshold)
		if open {
			t.Errorf("at T+%v: gate open, want closed", elapsed)
		}
		if want := threshold - elapsed; remaining != want {
			t.Errorf("at T+%v: remaining = %v, want %v", elapsed, remaining, want)
		}
	}

	// At and beyond T+5m: open.
	for _, elapsed := range []time.Duration{5 * time.Minute, 6 * time.Minute, time.Hour} {
		clock.t = newFakeClock().t.Add(elapsed)
		open, remaining := g.ShouldAnswer(key, threshold)
		if !open {
			t.Errorf("at T+%v: gate closed, want open", elapsed)
		}
		if remaining != 0 {
			t.Errorf("at T+%v: remaining = %v, want 0", elapsed, remaining)
		}
	}
}

func TestShouldAnswer_ZeroThresholdImmediate(t *testing.T) {
	g := New(newFakeClock().now)
	open, remaining := g.ShouldAnswer(Key{Store: "main", QuestionID: 7}, 0)
	if !open {
		t.Error("zero threshold: gate closed, want open")
	}
	if remaining != 0 {
		t.Errorf("remaining = %v, want 0", remaining)
	}
}

func TestObserve_SetsFirstSeenOnce(t *testing.T) {
	clock := newFakeClock()
	g := New(clock.now)
	key := Key{Store: "main", QuestionID: 1001}

	g.Observe(key)
	first, ok := g.FirstSeen(key)
	if !ok {
		t.Fatal("FirstSeen not recorded")
	}

	clock.advance(10 * time.Minute)
	g.Observe(key)
	again, _ := g.FirstSeen(key)
	if !again.Equal(first) {
		t.Errorf("first-seen moved from %v to %v on re-observe", first, again)
	}
}

func TestShouldAnswer_ObservesUnseenQuestion(t *testing.T) {
	clock := newFakeClock()
	g := New(clock.now)
	key := Key{Store: "main", QuestionID: 55}

	open, remaining := g.ShouldAnswer(key, 5*time.Minute)
	if open {
		t.Error("brand-new question: gate open, want closed")
	}
	if remaining != 5*time.Minute {
		t.Errorf("remaining = %v, want full threshold", remaining)
	}
	if _, ok := g.FirstSeen(key); !ok {
		t.Error("ShouldAnswer did not record first-seen")
	}
}

func TestKeysAreStoreScoped(t *testing.T) {
	clock := newFakeClock()
	g := New(clock.now)

	g.Observe(Key{Store: "a", QuestionID: 1})
	clock.advance(10 * time.Minute)
	g.Observe(Key{Store: "b", QuestionID: 1})

	ta, _ := g.FirstSeen(Key{Store: "a", QuestionID: 1})
	tb, _ := g.FirstSeen(Key{Store: "b", QuestionID: 1})
	if ta.Equal(tb) {
		t.Error("same question id in different stores shares first-seen state")
	}
}

package scheduler

import (
	"testing"
	"time"
)

func TestAddJobValidExpression(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	id, err := s.AddJob("* * * * *", func() {})
	if err != nil {
		t.Fatalf("AddJob returned error: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero entry ID")
	}

	next := s.Next(id)
	if next.IsZero() {
		t.Fatal("expected a next firing time")
	}
	if until := time.Until(next); until > time.Minute+5*time.Second {
		t.Errorf("every-minute job should fire within a minute, next in %v", until)
	}
}

func TestAddJobInvalidExpression(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	cases := []struct {
		name string
		expr string
	}{
		{name: "garbage", expr: "not a cron line"},
		{name: "six fields", expr: "* * * * * *"},
		{name: "descriptor", expr: "@every 1s"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.AddJob(tc.expr, func() {}); err == nil {
				t.Errorf("expected error for expression %q", tc.expr)
			}
		})
	}
}

func TestRemove(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	id, err := s.AddJob("0 3 * * *", func() {})
	if err != nil {
		t.Fatalf("AddJob returned error: %v", err)
	}
	s.Remove(id)

	for _, e := range s.Entries() {
		if e.ID == id {
			t.Fatalf("entry %d still scheduled after Remove", id)
		}
	}
	if next := s.Next(id); !next.IsZero() {
		t.Errorf("removed entry still reports next firing %v", next)
	}
}

func TestEntries(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	first, err := s.AddJob("0 9 * * *", func() {})
	if err != nil {
		t.Fatalf("AddJob returned error: %v", err)
	}
	second, err := s.AddJob("30 17 * * 5", func() {})
	if err != nil {
		t.Fatalf("AddJob returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct entry IDs")
	}
	if got := len(s.Entries()); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}
}

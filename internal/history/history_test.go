package history

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/gebo/internal/engine"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	f, err := os.CreateTemp("", "gebo-history-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	s, err := Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := testStore(t)

	first := engine.Report{Started: time.Now().Add(-time.Minute), Duration: 120 * time.Millisecond, Pushed: 2}
	second := engine.Report{Started: time.Now(), Duration: 80 * time.Millisecond, CreatedLocal: 1, Failures: 1}

	if err := s.Record(first, nil); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(second, errors.New("remote api: status 401")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	passes, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(passes) != 2 {
		t.Fatalf("len(passes) = %d, want 2", len(passes))
	}
	// Newest first.
	if passes[0].CreatedLocal != 1 || passes[0].Error == "" {
		t.Errorf("passes[0] = %+v", passes[0])
	}
	if passes[1].Pushed != 2 || passes[1].Duration != 120*time.Millisecond {
		t.Errorf("passes[1] = %+v", passes[1])
	}
}

func TestRecent_Limit(t *testing.T) {
	s := testStore(t)
	for i := 0; i < 5; i++ {
		if err := s.Record(engine.Report{Started: time.Now()}, nil); err != nil {
			t.Fatal(err)
		}
	}
	passes, err := s.Recent(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(passes) != 3 {
		t.Errorf("len(passes) = %d, want 3", len(passes))
	}
}

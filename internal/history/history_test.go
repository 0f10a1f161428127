package history

import (
	"testing"
	"time"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestListNewestFirst(t *testing.T) {
	s := openTest(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.Record(Entry{RunID: id, Status: "completed", FinishedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	all, err := s.List(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].RunID != "c" || all[2].RunID != "a" {
		t.Fatalf("unexpected order: %+v", all)
	}

	two, err := s.List(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(two) != 2 || two[1].RunID != "b" {
		t.Fatalf("limit not applied: %+v", two)
	}
}

func TestRecordStampsTime(t *testing.T) {
	s := openTest(t)
	fixed := time.Date(2025, 5, 4, 3, 2, 1, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if err := s.Record(Entry{RunID: "r1", Topic: "Photosynthesis", SegmentsMerged: 2}); err != nil {
		t.Fatalf("record: %v", err)
	}
	e, ok, err := s.Get("r1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !e.FinishedAt.Equal(fixed) || e.Topic != "Photosynthesis" || e.SegmentsMerged != 2 {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if _, ok, _ := s.Get("missing"); ok {
		t.Fatal("expected missing entry")
	}
}

func TestRecordRequiresRunID(t *testing.T) {
	s := openTest(t)
	if err := s.Record(Entry{Topic: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

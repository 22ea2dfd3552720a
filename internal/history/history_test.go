package history

import (
	"sync"
	"testing"
)

func TestDeleteRemovesOnlyThatEntry(t *testing.T) {
	l := NewSampleList()
	before := l.Entries()

	if !l.Delete(3) {
		t.Fatal("Delete(3) = false, expected true")
	}

	after := l.Entries()
	if len(after) != len(before)-1 {
		t.Fatalf("len after delete = %d, expected %d", len(after), len(before)-1)
	}

	remaining := make(map[int]Entry)
	for _, e := range after {
		if e.ID == 3 {
			t.Fatal("entry 3 still present")
		}
		remaining[e.ID] = e
	}
	for _, e := range before {
		if e.ID == 3 {
			continue
		}
		got, ok := remaining[e.ID]
		if !ok {
			t.Fatalf("entry %d missing after deleting 3", e.ID)
		}
		if got != e {
			t.Errorf("entry %d changed: %+v -> %+v", e.ID, e, got)
		}
	}
}

func TestDeleteUnknownID(t *testing.T) {
	l := NewSampleList()
	if l.Delete(42) {
		t.Fatal("Delete(42) = true, expected false")
	}
	if l.Len() != 6 {
		t.Fatalf("Len = %d, expected 6", l.Len())
	}
}

func TestListsAreIndependent(t *testing.T) {
	a := NewSampleList()
	b := NewSampleList()
	a.Delete(1)

	if b.Len() != 6 {
		t.Fatalf("deleting from one list affected another: Len = %d", b.Len())
	}
	if len(SampleEntries()) != 6 {
		t.Fatal("deleting from a list mutated the sample data")
	}
}

func TestEntriesNewestFirst(t *testing.T) {
	entries := NewSampleList().Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.After(entries[i-1].Timestamp) {
			t.Fatalf("entries out of order at %d: %v after %v", i, entries[i].Timestamp, entries[i-1].Timestamp)
		}
	}
	if entries[0].ID != 1 {
		t.Errorf("newest entry ID = %d, expected 1", entries[0].ID)
	}
}

func TestSummary(t *testing.T) {
	s := NewSampleList().Summary()
	if s.Total != 6 {
		t.Errorf("Total = %d, expected 6", s.Total)
	}
	// (24.5+22.8+20.3+26.1+23.7+21.4)/6 = 23.133...
	if s.AvgTemperature != 23.1 {
		t.Errorf("AvgTemperature = %v, expected 23.1", s.AvgTemperature)
	}
	if s.MinTemperature != 20.3 || s.MaxTemperature != 26.1 {
		t.Errorf("Min/Max = %v/%v, expected 20.3/26.1", s.MinTemperature, s.MaxTemperature)
	}
	if s.StdDev <= 0 {
		t.Errorf("StdDev = %v, expected positive", s.StdDev)
	}

	empty := NewList(nil).Summary()
	if empty != (Summary{}) {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestConcurrentDeletes(t *testing.T) {
	l := NewSampleList()
	var wg sync.WaitGroup
	removed := make(chan bool, 12)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			removed <- l.Delete(id%6 + 1)
		}(i)
	}
	wg.Wait()
	close(removed)

	count := 0
	for ok := range removed {
		if ok {
			count++
		}
	}
	if count != 6 || l.Len() != 0 {
		t.Fatalf("removed %d entries, Len = %d; expected 6 and 0", count, l.Len())
	}
}

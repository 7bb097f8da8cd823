package events

import (
	"testing"
	"time"
)

func TestStoreAppendReadAndFilters(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	s := NewStore()

	base := time.Now().Add(-2 * time.Hour).UTC()
	seed := []Event{
		{Timestamp: base, DeviceID: "G111070", TunnelID: "T1", EventType: TypeConnected},
		{Timestamp: base.Add(10 * time.Minute), DeviceID: "G111070", TunnelID: "T1", EventType: TypeDisconnected},
		{Timestamp: base.Add(20 * time.Minute), DeviceID: "G222040", EventType: TypeConnectFailed, Message: "reconcile failed"},
	}
	for _, evt := range seed {
		if err := s.Append(evt); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := s.Read(Query{})
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}

	deviceOnly, err := s.Read(Query{DeviceID: "G111070"})
	if err != nil {
		t.Fatalf("read device: %v", err)
	}
	if len(deviceOnly) != 2 {
		t.Fatalf("expected 2 G111070 events, got %d", len(deviceOnly))
	}

	limited, err := s.Read(Query{Limit: 1})
	if err != nil {
		t.Fatalf("read limit: %v", err)
	}
	if len(limited) != 1 || limited[0].DeviceID != "G222040" {
		t.Fatalf("unexpected limited result: %+v", limited)
	}

	since, err := s.Read(Query{Since: base.Add(15 * time.Minute)})
	if err != nil {
		t.Fatalf("read since: %v", err)
	}
	if len(since) != 1 || since[0].EventType != TypeConnectFailed {
		t.Fatalf("unexpected since result: %+v", since)
	}
}

func TestStoreAppendFillsTimestamp(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	s := NewStore()

	if err := s.Append(Event{DeviceID: "G111070", EventType: TypeConnected}); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := s.Read(Query{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].Timestamp.IsZero() {
		t.Fatalf("timestamp not filled: %+v", got)
	}
}

package donation

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		body    string
		wantIDs []string
	}{
		{name: "empty body", body: "", wantIDs: []string{}},
		{name: "whitespace body", body: "  \n", wantIDs: []string{}},
		{name: "null", body: "null", wantIDs: []string{}},
		{name: "bare array", body: `[{"_id":"a"},{"_id":"b"}]`, wantIDs: []string{"a", "b"}},
		{name: "data envelope", body: `{"data":[{"_id":"a"}]}`, wantIDs: []string{"a"}},
		{name: "null data falls back to body", body: `{"data":null,"_id":"solo"}`, wantIDs: []string{"solo"}},
		{name: "single object", body: `{"_id":"solo","status":"abandoned"}`, wantIDs: []string{"solo"}},
		{name: "data is a single object", body: `{"data":{"_id":"inner"}}`, wantIDs: []string{"inner"}},
		{name: "non-object elements skipped", body: `[1,"x",null,{"_id":"a"}]`, wantIDs: []string{"a"}},
		{name: "scalar", body: `42`, wantIDs: []string{}},
		{name: "malformed json", body: `{"data":[`, wantIDs: []string{}},
		{name: "plain text", body: `Service Unavailable`, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Normalize([]byte(tt.body))
			if got == nil {
				t.Fatal("Normalize returned nil slice")
			}
			if diff := cmp.Diff(tt.wantIDs, ids(got)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecord_NumericIDsKeepPrecision(t *testing.T) {
	t.Parallel()
	records := Normalize([]byte(`[{"id":12345678901234567890,"status":"abandoned"}]`))
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if got := records[0].ID(); got != "12345678901234567890" {
		t.Errorf("ID() = %q", got)
	}
}

func TestRecord_Item(t *testing.T) {
	t.Parallel()
	r := Record{"_id": "abc", "status": "confirmed", "amount": 10}
	item := r.Item()

	want := map[string]any{"_id": "abc", "id": "abc", "status": "confirmed", "amount": 10}
	if diff := cmp.Diff(want, item); diff != "" {
		t.Errorf("Item() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := r["id"]; ok {
		t.Error("Item() must not modify the record")
	}
}

func TestRecord_ItemKeepsOwnID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		record Record
		wantID any
	}{
		{name: "own id wins over _id", record: Record{"_id": "abc", "id": "legacy-7"}, wantID: "legacy-7"},
		{name: "empty own id falls back to _id", record: Record{"_id": "abc", "id": ""}, wantID: "abc"},
		{name: "only _id", record: Record{"_id": "abc"}, wantID: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Item()["id"]; got != tt.wantID {
				t.Errorf("Item()[id] = %v, want %v", got, tt.wantID)
			}
		})
	}
}

func TestCursor_Since(t *testing.T) {
	t.Parallel()
	if got := (Cursor{}).Since(); !got.Equal(Epoch) {
		t.Errorf("zero cursor Since() = %v, want epoch", got)
	}
	if got := FormatSince(Epoch); got != "1970-01-01T00:00:00.000Z" {
		t.Errorf("FormatSince(epoch) = %q", got)
	}

	ts := time.Date(2026, 5, 4, 3, 2, 1, 123456789, time.FixedZone("AEST", 10*3600))
	if got := FormatSince(ts); got != "2026-05-03T17:02:01.123Z" {
		t.Errorf("FormatSince() = %q", got)
	}
}

func TestGate(t *testing.T) {
	t.Parallel()
	g := DefaultGate()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if !g.Due(Cursor{}, now) {
		t.Error("fresh cursor should be due")
	}

	ok := g.Succeeded(Cursor{}, now)
	if g.Due(ok, now.Add(59*time.Second)) {
		t.Error("should not be due before the interval elapses")
	}
	if !g.Due(ok, now.Add(60*time.Second)) {
		t.Error("should be due once the interval elapses")
	}

	failed := g.Failed(Cursor{}, now)
	if !failed.NextPollAt.After(ok.NextPollAt) {
		t.Errorf("failure backoff %v should be later than success %v", failed.NextPollAt, ok.NextPollAt)
	}
}

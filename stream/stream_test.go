package stream

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/rotblauer/fieldcat/testing/testdata"
)

func isNonZero(n int) bool {
	return n != 0
}

func TestSliceFilterCollect(t *testing.T) {
	data := []int{0, 2, 4, 0, 8}
	ctx := context.Background()
	result := Collect(ctx, Filter(ctx, isNonZero, Slice(ctx, data)))
	if !slices.Equal([]int{2, 4, 8}, result) {
		t.Errorf("Expected [2, 4, 8], got %v", result)
	}
}

func TestSliceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := Slice(ctx, []int{1, 2, 3})
	<-s
	cancel()
	// The producer must stop; draining must terminate.
	for range s {
	}
}

func TestFixes(t *testing.T) {
	in := strings.NewReader(`{"lat":1,"lon":2,"time":1700000000}
{"latitude":1.5,"longitude":2.5,"timestamp":"2024-01-01T00:00:00Z","accuracy":4}
{"type":"FeatureCollection","features":[
 {"type":"Feature","geometry":{"type":"Point","coordinates":[4,3]},"properties":{"Time":"2024-01-01T00:00:01Z"}},
 {"type":"Feature","geometry":{"type":"Point","coordinates":[6,5]},"properties":{"Time":"2024-01-01T00:00:02Z"}}]}
`)
	fixes, errs := Fixes(context.Background(), in, 10*time.Millisecond)
	got := Collect(context.Background(), fixes)
	if err := <-errs; err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d fixes, want 4", len(got))
	}
	if got[1].Latitude != 1.5 || got[1].AccuracyOr(0) != 4 {
		t.Errorf("unexpected second fix: %+v", got[1])
	}
	if got[3].Longitude != 6 {
		t.Errorf("order not preserved: %+v", got[3])
	}
}

func TestFixes_Malformed(t *testing.T) {
	in := strings.NewReader(`{"lat":1,"lon":2,"time":1700000000}
{"lat":
`)
	fixes, errs := Fixes(context.Background(), in, 0)
	got := Collect(context.Background(), fixes)
	if len(got) != 1 {
		t.Errorf("got %d fixes, want 1", len(got))
	}
	if err := <-errs; err == nil {
		t.Error("expected a decode error")
	}
}

func TestMeter(t *testing.T) {
	met := newTickScanMeter(time.Hour)
	for i := 0; i < 5; i++ {
		met.mark(time.Unix(int64(i), 0), []byte("0123456789"))
	}
	if n := met.count(); n != 5 {
		t.Errorf("count = %d, want 5", n)
	}
	met.stop()
}

func TestFixes_Array(t *testing.T) {
	in := strings.NewReader(`[{"lat":3,"lon":4,"time":1700000001},{"lat":5,"lon":6,"time":1700000002}]`)
	fixes, errs := Fixes(context.Background(), in, 0)
	got := Collect(context.Background(), fixes)
	if err := <-errs; err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Latitude != 3 {
		t.Errorf("unexpected fixes: %+v", got)
	}
}

func TestFixes_Walk(t *testing.T) {
	data, err := testdata.ReadFile(testdata.WalkNDJSON)
	if err != nil {
		t.Fatal(err)
	}
	fixes, errs := Fixes(context.Background(), strings.NewReader(string(data)), 0)
	got := Collect(context.Background(), fixes)
	if err := <-errs; err != nil {
		t.Fatal(err)
	}
	if len(got) != 10 {
		t.Fatalf("got %d fixes, want 10", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Timestamp.After(got[i-1].Timestamp) || got[i].Latitude <= got[i-1].Latitude {
			t.Errorf("fix %d out of order", i)
		}
	}
}

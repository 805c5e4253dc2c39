package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/archive"
)

func TestArchiveRunReturnsSummary(t *testing.T) {
	runner := &fakeArchiveRunner{summary: archive.Summary{
		Snapshots: []archive.TableSnapshot{
			{Table: "sales", Key: "datasets/sales/date=2025-03-02/snap-1.parquet", Rows: 10050, SizeBytes: 1 << 20},
		},
	}}
	h := newTestHandler(t, nil, Dependencies{Archive: runner})

	rr := postJSON(h, "/v1/archive/run", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (body=%s)", rr.Code, rr.Body.String())
	}
	if runner.calls != 1 {
		t.Fatalf("runner calls = %d", runner.calls)
	}

	var body struct {
		Status  string          `json:"status"`
		Summary archive.Summary `json:"summary"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "completed" || len(body.Summary.Snapshots) != 1 {
		t.Fatalf("body = %+v", body)
	}
	if body.Summary.Snapshots[0].Table != "sales" {
		t.Fatalf("snapshot = %+v", body.Summary.Snapshots[0])
	}
}

func TestArchiveRunFailure(t *testing.T) {
	h := newTestHandler(t, nil, Dependencies{Archive: &fakeArchiveRunner{err: errors.New("object store unreachable")}})

	rr := postJSON(h, "/v1/archive/run", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	envelope := decodeEnvelope(t, rr.Body.Bytes())
	if envelope.Message == "" || envelope.Kind == "" {
		t.Fatalf("envelope = %+v", envelope)
	}
}

func TestArchiveRunWithoutService(t *testing.T) {
	h := newTestHandler(t, nil, Dependencies{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/archive/run", nil))
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rr.Code)
	}
}

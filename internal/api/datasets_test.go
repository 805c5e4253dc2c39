package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/catalog"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/copilot"
)

func testCatalog() *fakeCatalog {
	rows := int64(10500)
	return &fakeCatalog{
		datasets: []catalog.Dataset{
			{
				Name:     "sales",
				Type:     "table",
				RowCount: &rows,
				Columns: []catalog.Column{
					{Name: "transaction_id", Type: "VARCHAR"},
					{Name: "revenue", Type: "DOUBLE"},
				},
				Description: catalog.Describe("sales"),
			},
			{Name: "monthly_revenue", Type: "view"},
		},
		details: map[string]catalog.DatasetDetail{
			"sales": {
				Name:     "sales",
				RowCount: rows,
				Columns:  []catalog.Column{{Name: "revenue", Type: "DOUBLE"}},
				SampleData: catalog.SampleData{
					Columns: []string{"revenue"},
					Rows:    [][]any{{125.5}},
				},
			},
		},
	}
}

func TestListDatasets(t *testing.T) {
	h := newTestHandler(t, nil, Dependencies{Catalog: testCatalog()})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/datasets", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var body struct {
		Datasets []catalog.Dataset `json:"datasets"`
		Count    int               `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Count != 2 || len(body.Datasets) != 2 {
		t.Fatalf("body = %+v", body)
	}
	if body.Datasets[0].Name != "sales" || body.Datasets[0].Type != "table" {
		t.Fatalf("first dataset = %+v", body.Datasets[0])
	}
}

func TestGetDataset(t *testing.T) {
	h := newTestHandler(t, nil, Dependencies{Catalog: testCatalog()})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/datasets/sales", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var detail catalog.DatasetDetail
	if err := json.Unmarshal(rr.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if detail.Name != "sales" || detail.RowCount != 10500 || len(detail.SampleData.Rows) != 1 {
		t.Fatalf("detail = %+v", detail)
	}
}

func TestGetDatasetNotFound(t *testing.T) {
	h := newTestHandler(t, nil, Dependencies{Catalog: testCatalog()})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/datasets/orders", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	envelope := decodeEnvelope(t, rr.Body.Bytes())
	if envelope.Kind != copilot.KindValidation || !strings.Contains(envelope.Message, "orders") {
		t.Fatalf("envelope = %+v", envelope)
	}
	if envelope.Suggestion == "" {
		t.Fatal("expected a suggestion")
	}
}

func TestListDatasetsStoreFailure(t *testing.T) {
	h := newTestHandler(t, nil, Dependencies{Catalog: &fakeCatalog{err: errors.New("connection refused")}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/datasets", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	envelope := decodeEnvelope(t, rr.Body.Bytes())
	if envelope.Kind != copilot.KindInternal {
		t.Fatalf("envelope = %+v", envelope)
	}
}

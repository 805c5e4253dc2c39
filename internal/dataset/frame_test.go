package dataset

import (
	"testing"
	"time"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse"
)

func testFrame() *Frame {
	return FromResult(warehouse.Result{
		Columns: []string{"transaction_id", "transaction_date", "revenue", "region", "quantity"},
		Rows: [][]any{
			{int64(1), time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 100.5, "West", int64(2)},
			{int64(2), time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC), 205.0, "East", int64(1)},
			{int64(3), time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), nil, nil, int64(4)},
		},
	})
}

func TestNumericColumns(t *testing.T) {
	frame := testFrame()

	got := frame.NumericColumns()
	want := []string{"transaction_id", "revenue", "quantity"}
	if len(got) != len(want) {
		t.Fatalf("numeric columns = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("numeric columns = %v, want %v", got, want)
		}
	}
}

func TestCategoricalColumns(t *testing.T) {
	frame := testFrame()

	got := frame.CategoricalColumns()
	if len(got) != 1 || got[0] != "region" {
		t.Fatalf("categorical columns = %v", got)
	}
}

func TestDateColumnsMatchByName(t *testing.T) {
	frame := testFrame()

	got := frame.DateColumns()
	if len(got) != 1 || got[0] != "transaction_date" {
		t.Fatalf("date columns = %v", got)
	}
}

func TestNumericSkipsNulls(t *testing.T) {
	frame := testFrame()

	values := frame.Numeric("revenue")
	if len(values) != 2 || values[0] != 100.5 || values[1] != 205.0 {
		t.Fatalf("revenue values = %v", values)
	}
}

func TestNullCount(t *testing.T) {
	frame := testFrame()

	if got := frame.NullCount("revenue"); got != 1 {
		t.Fatalf("null count = %d", got)
	}
	if got := frame.NullCount("transaction_id"); got != 0 {
		t.Fatalf("null count = %d", got)
	}
}

func TestTimesParsesStringsAndTimestamps(t *testing.T) {
	frame := FromResult(warehouse.Result{
		Columns: []string{"order_date"},
		Rows: [][]any{
			{"2024-03-15"},
			{time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
			{"not a date"},
		},
	})

	times := frame.Times("order_date")
	if len(times) != 2 {
		t.Fatalf("times = %v", times)
	}
	if times[0].Month() != time.March || times[1].Month() != time.April {
		t.Fatalf("times = %v", times)
	}
}

func TestAsFloatRejectsStringsAndBools(t *testing.T) {
	if _, ok := AsFloat("12"); ok {
		t.Fatal("string should not coerce")
	}
	if _, ok := AsFloat(true); ok {
		t.Fatal("bool should not coerce")
	}
	if value, ok := AsFloat(int32(7)); !ok || value != 7 {
		t.Fatalf("int32 = %v, %v", value, ok)
	}
}

func TestValueBounds(t *testing.T) {
	frame := testFrame()

	if _, ok := frame.Value(99, "revenue"); ok {
		t.Fatal("out of range row should fail")
	}
	if _, ok := frame.Value(0, "missing"); ok {
		t.Fatal("missing column should fail")
	}
	value, ok := frame.Value(1, "region")
	if !ok || value != "East" {
		t.Fatalf("value = %v, %v", value, ok)
	}
}

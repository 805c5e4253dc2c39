package copilot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/ai"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/analyze"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/anomaly"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/cache"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/catalog"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/history"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/insight"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/nl2sql"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse"
)

type fakeStore struct {
	result warehouse.Result
	err    error
	calls  int
	sqls   []string
}

func (f *fakeStore) Query(_ context.Context, sqlText string, _ ...any) (warehouse.Result, error) {
	f.calls++
	f.sqls = append(f.sqls, sqlText)
	if f.err != nil {
		return warehouse.Result{}, f.err
	}
	return f.result, nil
}

func (f *fakeStore) Exec(context.Context, string, ...any) error { return nil }
func (f *fakeStore) Ping(context.Context) error                 { return nil }
func (f *fakeStore) Close() error                               { return nil }

func (f *fakeStore) lastSQL() string {
	if len(f.sqls) == 0 {
		return ""
	}
	return f.sqls[len(f.sqls)-1]
}

type fakeTranslator struct {
	sql          string
	err          error
	lastQuestion string
}

func (f *fakeTranslator) Translate(_ context.Context, question string) (nl2sql.Result, error) {
	f.lastQuestion = question
	if f.err != nil {
		return nl2sql.Result{}, f.err
	}
	return nl2sql.Result{SQL: f.sql, InputTokens: 20, OutputTokens: 10}, nil
}

type fakeAI struct {
	text string
	err  error
}

func (f *fakeAI) Complete(context.Context, ai.Request) (ai.Completion, error) {
	if f.err != nil {
		return ai.Completion{}, f.err
	}
	return ai.Completion{Text: f.text, InputTokens: 40, OutputTokens: 20}, nil
}

func errorKind(t *testing.T, err error) *Error {
	t.Helper()
	var typed *Error
	if !errors.As(err, &typed) {
		t.Fatalf("error = %v, want *copilot.Error", err)
	}
	return typed
}

func scalarResult() warehouse.Result {
	return warehouse.Result{
		Columns:  []string{"1"},
		Rows:     [][]any{{int64(1)}},
		Duration: 1500 * time.Microsecond,
	}
}

func TestDispatchStructuredQuery(t *testing.T) {
	store := &fakeStore{result: scalarResult()}
	recorder := history.NewRingStore(10)
	dispatcher := NewDispatcher(Dependencies{Store: store, History: recorder})

	result, err := dispatcher.Dispatch(context.Background(), ExecuteQuery{Text: "SELECT 1", Hint: HintStructured})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	qr, ok := result.(QueryResult)
	if !ok {
		t.Fatalf("result type = %T", result)
	}
	if len(qr.Columns) != 1 || qr.Columns[0] != "1" || qr.RowCount != 1 {
		t.Fatalf("result = %+v", qr)
	}
	if qr.GeneratedSQL != "" || qr.OriginalQuestion != "" {
		t.Fatalf("structured query should not carry translation fields: %+v", qr)
	}
	if qr.ExecutionTimeMS != 1.5 {
		t.Fatalf("execution time = %v", qr.ExecutionTimeMS)
	}
	if store.lastSQL() != "SELECT 1 LIMIT 100" {
		t.Fatalf("sql = %q", store.lastSQL())
	}

	entries := recorder.Recent(1)
	if len(entries) != 1 {
		t.Fatal("dispatch should be recorded")
	}
	if entries[0].Tool != OpExecuteQuery || entries[0].QueryType != HintStructured || !entries[0].Success {
		t.Fatalf("entry = %+v", entries[0])
	}
	if entries[0].ResultCount != 1 || entries[0].ExecutionTimeMS != 1.5 {
		t.Fatalf("entry = %+v", entries[0])
	}
}

func TestDispatchKeepsExistingLimit(t *testing.T) {
	store := &fakeStore{result: scalarResult()}
	dispatcher := NewDispatcher(Dependencies{Store: store})

	if _, err := dispatcher.Dispatch(context.Background(), ExecuteQuery{Text: "SELECT * FROM sales LIMIT 5;"}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if store.lastSQL() != "SELECT * FROM sales LIMIT 5;" {
		t.Fatalf("sql = %q", store.lastSQL())
	}
}

func TestDispatchStripsSemicolonBeforeLimit(t *testing.T) {
	store := &fakeStore{result: scalarResult()}
	dispatcher := NewDispatcher(Dependencies{Store: store})

	if _, err := dispatcher.Dispatch(context.Background(), ExecuteQuery{Text: "SELECT * FROM sales;", RowLimit: 10}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if store.lastSQL() != "SELECT * FROM sales LIMIT 10" {
		t.Fatalf("sql = %q", store.lastSQL())
	}
}

func TestDispatchNonSelectSkipsLimit(t *testing.T) {
	store := &fakeStore{result: warehouse.Result{Columns: []string{"name"}, Rows: [][]any{{"sales"}}}}
	dispatcher := NewDispatcher(Dependencies{Store: store})

	if _, err := dispatcher.Dispatch(context.Background(), ExecuteQuery{Text: "DESCRIBE sales"}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if store.lastSQL() != "DESCRIBE sales" {
		t.Fatalf("sql = %q", store.lastSQL())
	}
}

func TestDispatchTruncatesRows(t *testing.T) {
	store := &fakeStore{result: warehouse.Result{
		Columns: []string{"n"},
		Rows:    [][]any{{1}, {2}, {3}, {4}, {5}},
	}}
	dispatcher := NewDispatcher(Dependencies{Store: store})

	result, err := dispatcher.Dispatch(context.Background(), ExecuteQuery{Text: "SELECT n FROM t LIMIT 500", RowLimit: 3})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	qr := result.(QueryResult)
	if qr.RowCount != 3 || len(qr.Rows) != 3 {
		t.Fatalf("result = %+v", qr)
	}
}

func TestDispatchTranslatedQuery(t *testing.T) {
	store := &fakeStore{result: scalarResult()}
	translator := &fakeTranslator{sql: "SELECT product_name FROM sales ORDER BY revenue DESC"}
	dispatcher := NewDispatcher(Dependencies{Store: store, Translator: translator})

	result, err := dispatcher.Dispatch(context.Background(), ExecuteQuery{
		Text: "top 5 products by revenue",
		Hint: HintNaturalLanguage,
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	qr := result.(QueryResult)
	if qr.GeneratedSQL != translator.sql {
		t.Fatalf("generated_sql = %q", qr.GeneratedSQL)
	}
	if qr.OriginalQuestion != "top 5 products by revenue" {
		t.Fatalf("original_question = %q", qr.OriginalQuestion)
	}
	if translator.lastQuestion != "top 5 products by revenue" {
		t.Fatalf("translator question = %q", translator.lastQuestion)
	}
	if store.lastSQL() != translator.sql+" LIMIT 100" {
		t.Fatalf("sql = %q", store.lastSQL())
	}
}

func TestDispatchTranslatorMissing(t *testing.T) {
	dispatcher := NewDispatcher(Dependencies{Store: &fakeStore{}})

	_, err := dispatcher.Dispatch(context.Background(), ExecuteQuery{
		Text: "top 5 products by revenue",
		Hint: HintNaturalLanguage,
	})
	if kind := errorKind(t, err); kind.Kind != KindTranslation {
		t.Fatalf("kind = %q", kind.Kind)
	}
}

func TestDispatchTranslatorFailure(t *testing.T) {
	translator := &fakeTranslator{err: errors.New("model offline")}
	dispatcher := NewDispatcher(Dependencies{Store: &fakeStore{}, Translator: translator})

	_, err := dispatcher.Dispatch(context.Background(), ExecuteQuery{
		Text: "top 5 products by revenue",
		Hint: HintNaturalLanguage,
	})
	typed := errorKind(t, err)
	if typed.Kind != KindTranslation {
		t.Fatalf("kind = %q", typed.Kind)
	}
	if !strings.Contains(typed.Message, "SQL generation failed") {
		t.Fatalf("message = %q", typed.Message)
	}
}

func TestDispatchExecutionError(t *testing.T) {
	store := &fakeStore{err: errors.New(`Catalog Error: Table with name missing does not exist!`)}
	recorder := history.NewRingStore(10)
	dispatcher := NewDispatcher(Dependencies{Store: store, History: recorder})

	_, err := dispatcher.Dispatch(context.Background(), ExecuteQuery{Text: "SELECT * FROM missing"})
	typed := errorKind(t, err)
	if typed.Kind != KindExecution {
		t.Fatalf("kind = %q", typed.Kind)
	}
	if !strings.Contains(typed.Suggestion, "bicopilot-seed") {
		t.Fatalf("suggestion = %q", typed.Suggestion)
	}

	entries := recorder.Recent(1)
	if len(entries) != 1 || entries[0].Success || entries[0].Error == "" {
		t.Fatalf("entry = %+v", entries)
	}
}

func TestDispatchQueryCache(t *testing.T) {
	store := &fakeStore{result: scalarResult()}
	dispatcher := NewDispatcher(Dependencies{
		Store:    store,
		Cache:    cache.NewMemoryProvider(),
		CacheTTL: time.Minute,
	})

	first, err := dispatcher.Dispatch(context.Background(), ExecuteQuery{Text: "SELECT 1"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	second, err := dispatcher.Dispatch(context.Background(), ExecuteQuery{Text: "SELECT 1"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("store calls = %d, want 1 (second hit served from cache)", store.calls)
	}
	if first.(QueryResult).RowCount != second.(QueryResult).RowCount {
		t.Fatalf("cached result differs: %+v vs %+v", first, second)
	}

	if _, err := dispatcher.Dispatch(context.Background(), ExecuteQuery{Text: "DESCRIBE sales"}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if _, err := dispatcher.Dispatch(context.Background(), ExecuteQuery{Text: "DESCRIBE sales"}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if store.calls != 3 {
		t.Fatalf("store calls = %d, non-SELECT statements should not be cached", store.calls)
	}
}

func analyzerFixture() (*fakeStore, *analyze.Analyzer) {
	store := &fakeStore{result: warehouse.Result{
		Columns: []string{"transaction_date", "revenue", "region"},
		Rows: [][]any{
			{time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 100.0, "West"},
			{time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), 300.0, "East"},
		},
	}}
	schema := &fakeSchema{columns: map[string][]catalog.Column{
		"sales": {
			{Name: "transaction_date", Type: "DATE"},
			{Name: "revenue", Type: "DOUBLE"},
			{Name: "region", Type: "VARCHAR"},
		},
	}}
	return store, analyze.NewAnalyzer(store, schema)
}

type fakeSchema struct {
	columns map[string][]catalog.Column
}

func (f *fakeSchema) Columns(_ context.Context, table string) ([]catalog.Column, error) {
	return f.columns[table], nil
}

func TestDispatchAnalyzeTable(t *testing.T) {
	_, analyzer := analyzerFixture()
	recorder := history.NewRingStore(10)
	dispatcher := NewDispatcher(Dependencies{Store: &fakeStore{}, Analyzer: analyzer, History: recorder})

	result, err := dispatcher.Dispatch(context.Background(), AnalyzeTable{Table: "sales"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	report, ok := result.(analyze.Result)
	if !ok {
		t.Fatalf("result type = %T", result)
	}
	if report.TotalRows != 2 {
		t.Fatalf("report = %+v", report)
	}

	entries := recorder.Recent(1)
	if entries[0].Query != "table=sales" || entries[0].ResultCount != 2 {
		t.Fatalf("entry = %+v", entries[0])
	}
}

func TestDispatchAnalyzeUnknownTable(t *testing.T) {
	_, analyzer := analyzerFixture()
	dispatcher := NewDispatcher(Dependencies{Store: &fakeStore{}, Analyzer: analyzer})

	_, err := dispatcher.Dispatch(context.Background(), AnalyzeTable{Table: "orders"})
	if typed := errorKind(t, err); typed.Kind != KindValidation {
		t.Fatalf("kind = %q", typed.Kind)
	}
}

func TestDispatchDetectAnomalies(t *testing.T) {
	rows := make([][]any, 0, 21)
	for i := 0; i < 20; i++ {
		rows = append(rows, []any{time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC), 100.0})
	}
	rows = append(rows, []any{time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC), 5000.0})
	store := &fakeStore{result: warehouse.Result{
		Columns: []string{"transaction_date", "revenue"},
		Rows:    rows,
	}}
	detector := anomaly.NewDetector(store, nil, ai.RetryPolicy{}, nil)
	dispatcher := NewDispatcher(Dependencies{Store: store, Detector: detector})

	result, err := dispatcher.Dispatch(context.Background(), DetectAnomalies{})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	report := result.(anomaly.Result)
	if report.AnomaliesFound != 1 {
		t.Fatalf("report = %+v", report)
	}
}

func TestDispatchDetectAnomaliesUnknownMetric(t *testing.T) {
	store := &fakeStore{result: warehouse.Result{
		Columns: []string{"transaction_date", "amount"},
		Rows:    [][]any{{time.Now(), 10.0}},
	}}
	detector := anomaly.NewDetector(store, nil, ai.RetryPolicy{}, nil)
	dispatcher := NewDispatcher(Dependencies{Store: store, Detector: detector})

	_, err := dispatcher.Dispatch(context.Background(), DetectAnomalies{})
	if typed := errorKind(t, err); typed.Kind != KindValidation {
		t.Fatalf("kind = %q", typed.Kind)
	}
}

func insightFixtureStore() *fakeStore {
	return &fakeStore{result: warehouse.Result{
		Columns: []string{"transaction_date", "revenue", "region"},
		Rows: [][]any{
			{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 120.0, "West"},
			{time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), 80.0, "East"},
		},
	}}
}

func TestDispatchSynthesizeInsight(t *testing.T) {
	store := insightFixtureStore()
	client := &fakeAI{text: `{"summary":"steady","key_findings":["west leads"],"recommendations":[],"risk_factors":[]}`}
	synthesizer := insight.NewSynthesizer(store, client, ai.RetryPolicy{})
	recorder := history.NewRingStore(10)
	dispatcher := NewDispatcher(Dependencies{Store: store, Synthesizer: synthesizer, History: recorder})

	result, err := dispatcher.Dispatch(context.Background(), SynthesizeInsight{Question: "how are sales?"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	report := result.(insight.Result)
	if report.Insights == nil || report.Insights.Summary != "steady" {
		t.Fatalf("report = %+v", report)
	}

	entries := recorder.Recent(1)
	if entries[0].Query != "how are sales?" || entries[0].ResultCount != 2 {
		t.Fatalf("entry = %+v", entries[0])
	}
}

func TestDispatchInsightNoData(t *testing.T) {
	store := &fakeStore{result: warehouse.Result{Columns: []string{"revenue"}}}
	synthesizer := insight.NewSynthesizer(store, &fakeAI{text: "{}"}, ai.RetryPolicy{})
	dispatcher := NewDispatcher(Dependencies{Store: store, Synthesizer: synthesizer})

	_, err := dispatcher.Dispatch(context.Background(), SynthesizeInsight{Question: "how are sales?"})
	if typed := errorKind(t, err); typed.Kind != KindExecution {
		t.Fatalf("kind = %q", typed.Kind)
	}
}

func TestDispatchInsightAIFailure(t *testing.T) {
	store := insightFixtureStore()
	synthesizer := insight.NewSynthesizer(store, &fakeAI{err: errors.New("model offline")}, ai.RetryPolicy{})
	dispatcher := NewDispatcher(Dependencies{Store: store, Synthesizer: synthesizer})

	_, err := dispatcher.Dispatch(context.Background(), SynthesizeInsight{Question: "how are sales?"})
	if typed := errorKind(t, err); typed.Kind != KindAI {
		t.Fatalf("kind = %q", typed.Kind)
	}
}

func TestDispatchInsightWithoutSynthesizer(t *testing.T) {
	dispatcher := NewDispatcher(Dependencies{Store: &fakeStore{}})

	_, err := dispatcher.Dispatch(context.Background(), SynthesizeInsight{Question: "how are sales?"})
	if typed := errorKind(t, err); typed.Kind != KindAI {
		t.Fatalf("kind = %q", typed.Kind)
	}
}

func TestEnvelopeShape(t *testing.T) {
	typed := &Error{Kind: KindExecution, Message: "boom", Suggestion: "try again"}
	envelope := typed.Envelope()
	if envelope.Kind != KindExecution || envelope.Message != "boom" || envelope.Suggestion != "try again" {
		t.Fatalf("envelope = %+v", envelope)
	}
}

func TestFromErrorFallsBackToInternal(t *testing.T) {
	typed := FromError(errors.New("boom"))
	if typed.Kind != KindInternal {
		t.Fatalf("kind = %q", typed.Kind)
	}
	if typed.Suggestion == "" {
		t.Fatal("internal errors should carry the generic hint")
	}

	original := NewValidationError("bad input")
	if FromError(original) != original {
		t.Fatal("typed errors should pass through unchanged")
	}
}

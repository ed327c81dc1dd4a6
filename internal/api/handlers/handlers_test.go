package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/opskpi/backend/internal/analyst"
	"github.com/opskpi/backend/internal/api/handlers"
	"github.com/opskpi/backend/internal/dataset"
	"github.com/opskpi/backend/internal/llm"
	"github.com/opskpi/backend/internal/store"
)

type fakeCompleter struct {
	response *llm.CompletionResponse
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return f.response, f.err
}

func newApp(t *testing.T, session *store.Session, completer analyst.Completer, hasCredential bool) *fiber.App {
	t.Helper()

	app := fiber.New()
	datasetHandler := handlers.NewDatasetHandler(session)
	askHandler := handlers.NewAskHandler(session, analyst.NewEngine(completer, hasCredential), "test-model")

	api := app.Group("/api/v1")
	api.Get("/kpis", datasetHandler.GetKPIs)
	api.Get("/kpis/timeseries", datasetHandler.GetTimeseries)
	api.Get("/kpis/synopsis", datasetHandler.GetSynopsis)
	api.Post("/datasets", datasetHandler.UploadDataset)
	api.Post("/ask", askHandler.HandleAsk)

	return app
}

func loadTable(t *testing.T, csv string) *dataset.Table {
	t.Helper()
	table, err := dataset.Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return table
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	return body
}

func uploadRequest(t *testing.T, csv string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "upload.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(csv)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUpload_ReplacesTable(t *testing.T) {
	session := store.NewSession(loadTable(t, "date,uptime_pct\n2025-01-01,99.0\n"))
	app := newApp(t, session, &fakeCompleter{}, false)

	resp, err := app.Test(uploadRequest(t, "date,it_cost_usd\n2025-02-01,1800\n2025-02-02,2200\n"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if session.Table().Len() != 2 {
		t.Fatalf("table should be replaced, got %d rows", session.Table().Len())
	}
	if session.Table().HasColumn("uptime_pct") {
		t.Fatal("old columns should be gone after replacement")
	}
}

func TestUpload_FormatErrorKeepsOldTable(t *testing.T) {
	original := loadTable(t, "date,uptime_pct\n2025-01-01,99.0\n")
	session := store.NewSession(original)
	app := newApp(t, session, &fakeCompleter{}, false)

	resp, err := app.Test(uploadRequest(t, "uptime_pct\n99.0\n"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if msg, _ := body["error"].(string); !strings.Contains(msg, "date") {
		t.Fatalf("error message should name the missing column: %v", body)
	}

	if session.Table() != original {
		t.Fatal("a rejected upload must not disturb the loaded table")
	}
}

func TestUploadScenario_CostOnlySynopsis(t *testing.T) {
	session := store.NewSession(&dataset.Table{})
	app := newApp(t, session, &fakeCompleter{}, false)

	resp, err := app.Test(uploadRequest(t, "date,it_cost_usd\n2025-02-01,1800\n2025-02-02,2200\n"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/kpis/synopsis", nil))
	if err != nil {
		t.Fatalf("synopsis: %v", err)
	}
	body := decodeBody(t, resp)
	text, _ := body["synopsis"].(string)
	if !strings.Contains(text, "it_cost_usd:") || !strings.Contains(text, "Rows: 2") {
		t.Fatalf("synopsis should carry cost stats and row count:\n%s", text)
	}
	for _, absent := range []string{"uptime_pct", "tickets_opened", "avg_resolution_hrs"} {
		if strings.Contains(text, absent) {
			t.Fatalf("synopsis mentions absent metric %q:\n%s", absent, text)
		}
	}
}

func askRequest(question string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"question":"`+question+`"}`))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAsk_ReturnsAnswer(t *testing.T) {
	session := store.NewSession(loadTable(t, "date,uptime_pct\n2025-01-01,99.0\n"))
	completer := &fakeCompleter{response: &llm.CompletionResponse{Content: "Uptime was 99%."}}
	app := newApp(t, session, completer, true)

	resp, err := app.Test(askRequest("How was uptime?"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["answer"] != "Uptime was 99%." {
		t.Fatalf("unexpected answer: %v", body)
	}
}

func TestAsk_NoCredential(t *testing.T) {
	session := store.NewSession(&dataset.Table{})
	app := newApp(t, session, &fakeCompleter{}, false)

	resp, err := app.Test(askRequest("anything"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestAsk_TimeoutKeepsKPIsServing(t *testing.T) {
	session := store.NewSession(loadTable(t, "date,uptime_pct\n2025-01-01,99.0\n"))
	completer := &fakeCompleter{err: context.DeadlineExceeded}
	app := newApp(t, session, completer, true)

	resp, err := app.Test(askRequest("slow question"))
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 on upstream timeout, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if _, ok := body["error"].(string); !ok {
		t.Fatalf("expected a plain error message: %v", body)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/kpis", nil))
	if err != nil {
		t.Fatalf("kpis: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("KPIs should still be served after a failed question, got %d", resp.StatusCode)
	}
	kpis := decodeBody(t, resp)
	if kpis["rows"].(float64) != 1 {
		t.Fatalf("table should be intact: %v", kpis)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	session := store.NewSession(&dataset.Table{})
	app := newApp(t, session, &fakeCompleter{}, true)

	resp, err := app.Test(askRequest(" "))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestTimeseries_AlignsNulls(t *testing.T) {
	session := store.NewSession(loadTable(t, "date,uptime_pct\n2025-01-01,99.0\n2025-01-02,\n"))
	app := newApp(t, session, &fakeCompleter{}, false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/kpis/timeseries", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	body := decodeBody(t, resp)

	dates := body["dates"].([]interface{})
	if len(dates) != 2 {
		t.Fatalf("expected 2 dates, got %v", dates)
	}
	series := body["series"].(map[string]interface{})
	uptime := series["uptime_pct"].([]interface{})
	if uptime[0].(float64) != 99.0 || uptime[1] != nil {
		t.Fatalf("expected [99, null], got %v", uptime)
	}
}

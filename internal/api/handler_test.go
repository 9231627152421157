package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/guiperry/KNIRVCONTROLLER/internal/cognitive"
	"github.com/guiperry/KNIRVCONTROLLER/internal/host"
	"github.com/guiperry/KNIRVCONTROLLER/internal/service"
)

// newTestServer wires a handler with an in-memory engine and host link
// (no Postgres/Neo4j/Redis/Qdrant).
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()

	engine := cognitive.NewEngine("test-owner", logger)
	engine.InitializeModules(4, 2)

	p := service.New(engine, "test-owner", service.Options{
		Link: host.NewLink(logger),
	}, logger)

	ts := httptest.NewServer(NewHandler(p, logger).Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func getJSON(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// --- Tests ---

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	resp := getJSON(t, ts, "/api/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]interface{}
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["host_status"] != "disconnected" {
		t.Errorf("host_status = %v", body["host_status"])
	}
}

func TestProcessReturnsResult(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/process", cognitive.Input{
		SensoryData: []float64{0.2, 0.4, 0.6},
		Context:     "http",
		TaskType:    "analysis",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var result cognitive.Result
	decodeJSON(t, resp, &result)
	if result.ReasoningResult == "" {
		t.Fatal("expected populated reasoning result")
	}
	if len(result.FastActivations) != 4 || len(result.DeepActivations) != 2 {
		t.Errorf("activation lengths = %d/%d",
			len(result.FastActivations), len(result.DeepActivations))
	}
}

func TestProcessUndecodableBodyYieldsEmptyResult(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/process", "application/json",
		strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var result cognitive.Result
	decodeJSON(t, resp, &result)
	if result.ReasoningResult != "" || result.Confidence != 0 {
		t.Fatalf("expected zero result, got %+v", result)
	}
}

func TestInitializeModulesAndModelInfo(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/modules/initialize", map[string]int{
		"fast_count": 10, "deep_count": 5,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var info cognitive.ModelInfo
	decodeJSON(t, resp, &info)
	if info.FastModuleCount != 10 || info.DeepModuleCount != 5 {
		t.Errorf("counts = %d/%d", info.FastModuleCount, info.DeepModuleCount)
	}

	resp = getJSON(t, ts, "/api/model")
	decodeJSON(t, resp, &info)
	if info.FastModuleCount != 10 {
		t.Errorf("model info not updated: %d", info.FastModuleCount)
	}
}

func TestInitializeModulesRejectsNegativeCounts(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/modules/initialize", map[string]int{
		"fast_count": -1, "deep_count": 2,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSetMetricAndGetPersonality(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest("PUT", ts.URL+"/api/personality/metrics/creativity",
		strings.NewReader(`{"value": 1.7}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = getJSON(t, ts, "/api/personality")
	var profile cognitive.PersonalityProfile
	decodeJSON(t, resp, &profile)
	if profile.Metrics["creativity"] != 1.0 {
		t.Errorf("expected clamp to 1.0, got %v", profile.Metrics["creativity"])
	}
}

func TestFeedbackAfterCycle(t *testing.T) {
	ts := newTestServer(t)

	postJSON(t, ts, "/api/process", cognitive.Input{
		SensoryData: []float64{0.5},
		TaskType:    "creative",
	}).Body.Close()

	resp := postJSON(t, ts, "/api/feedback", map[string]float64{"feedback": 0.4})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var profile cognitive.PersonalityProfile
	decodeJSON(t, resp, &profile)
	if len(profile.History) != 1 {
		t.Fatalf("history length = %d", len(profile.History))
	}
	if profile.History[0].Feedback != 0.4 {
		t.Errorf("recorded feedback = %v", profile.History[0].Feedback)
	}
}

func TestSetModeDefaultsUnknownNames(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/mode", map[string]string{"mode": "daydreaming"})
	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["mode"] != "analytical" {
		t.Errorf("mode = %q", body["mode"])
	}

	resp = postJSON(t, ts, "/api/mode", map[string]string{"mode": "creative"})
	decodeJSON(t, resp, &body)
	if body["mode"] != "creative" {
		t.Errorf("mode = %q", body["mode"])
	}
}

func TestStateReflectsProcessing(t *testing.T) {
	ts := newTestServer(t)

	postJSON(t, ts, "/api/process", cognitive.Input{
		SensoryData: []float64{0.9, 0.9},
		TaskType:    "observe",
	}).Body.Close()

	resp := getJSON(t, ts, "/api/state")
	var state service.StateSnapshot
	decodeJSON(t, resp, &state)
	if state.CurrentTask != "observe" {
		t.Errorf("current task = %q", state.CurrentTask)
	}
	if len(state.AttentionFocus) != 10 {
		t.Errorf("attention length = %d", len(state.AttentionFocus))
	}
	if state.AttentionFocus[0] == 0 {
		t.Error("attention should have moved toward input")
	}
}

func TestMemoryClearAndSummary(t *testing.T) {
	ts := newTestServer(t)

	// High activations push importance over the admission threshold.
	postJSON(t, ts, "/api/process", cognitive.Input{
		SensoryData: []float64{5.0, 5.0, 5.0},
		TaskType:    "vivid",
	}).Body.Close()

	resp := getJSON(t, ts, "/api/memory/summary")
	var summary cognitive.MemorySummary
	decodeJSON(t, resp, &summary)
	if summary.Count != 1 {
		t.Fatalf("memory count = %d", summary.Count)
	}

	req, _ := http.NewRequest("DELETE", ts.URL+"/api/memory", nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	delResp.Body.Close()

	resp = getJSON(t, ts, "/api/memory/summary")
	decodeJSON(t, resp, &summary)
	if summary.Count != 0 {
		t.Errorf("count after clear = %d", summary.Count)
	}
}

func TestWeightsUploadAndInfo(t *testing.T) {
	ts := newTestServer(t)

	buf := make([]byte, 2048)
	resp, err := http.Post(ts.URL+"/api/weights", "application/octet-stream",
		bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var info cognitive.WeightsInfo
	decodeJSON(t, resp, &info)
	if !info.Loaded {
		t.Error("weights should be loaded")
	}
	if info.TotalParameters != 512 {
		t.Errorf("loaded parameters = %d", info.TotalParameters)
	}
}

func TestWeightsUploadRejectsShortBuffer(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/weights", "application/octet-stream",
		bytes.NewReader(make([]byte, 100)))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestHostConnectAndMessageFlow(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/host/connect", map[string]string{"desktop_id": "desk-1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var msg host.Message
	decodeJSON(t, resp, &msg)
	if msg.Type != "capabilities" {
		t.Errorf("first message type = %q", msg.Type)
	}

	resp = postJSON(t, ts, "/api/host/messages", map[string]string{
		"type": "notify", "payload": "hello",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("enqueue status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = getJSON(t, ts, "/api/host/messages")
	var drained []host.Message
	decodeJSON(t, resp, &drained)
	if len(drained) != 2 {
		t.Fatalf("drained %d messages", len(drained))
	}
	if drained[0].Type != "capabilities" || drained[1].Type != "notify" {
		t.Errorf("order = %s, %s", drained[0].Type, drained[1].Type)
	}
}

func TestHostConnectRequiresDesktopID(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/host/connect", map[string]string{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCyclesWithoutStoreReturns503(t *testing.T) {
	ts := newTestServer(t)

	resp := getJSON(t, ts, "/api/cycles?limit=5")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSimilarTracesWithoutArchiveReturns503(t *testing.T) {
	ts := newTestServer(t)

	resp := getJSON(t, ts, "/api/traces/similar?limit=3")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSimilarTracesRejectsBadLimit(t *testing.T) {
	ts := newTestServer(t)

	resp := getJSON(t, ts, "/api/traces/similar?limit=many")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

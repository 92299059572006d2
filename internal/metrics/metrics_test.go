package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue はレジストリから指定された名前のカウンタ値を取得する。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			total := 0.0
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			return total
		}
	}
	t.Fatalf("%s metric not found", name)
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordProvisionSuccess_IncrementsCounter はプロビジョニング成功カウンタが増加することを検証する。
func TestRecordProvisionSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordProvisionSuccess()
	c.RecordProvisionSuccess()

	if val := counterValue(t, reg, "famauth_provision_success_total"); val != 2 {
		t.Errorf("provision_success_total = %v, want 2", val)
	}
}

// TestRecordProvisionFailure_LabelsByStage は失敗段階ごとにラベル付けされることを検証する。
func TestRecordProvisionFailure_LabelsByStage(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordProvisionFailure("create_identity")
	c.RecordProvisionFailure("link_dependent")
	c.RecordProvisionFailure("link_dependent")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() != "famauth_provision_fail_total" {
			continue
		}
		found = true
		if len(mf.GetMetric()) != 2 {
			t.Fatalf("expected 2 labeled series, got %d", len(mf.GetMetric()))
		}
	}
	if !found {
		t.Error("famauth_provision_fail_total metric not found")
	}
}

// TestRecordCodeLifecycle_Counters は確認コードのライフサイクルカウンタを検証する。
func TestRecordCodeLifecycle_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCodeIssued()
	c.RecordCodeConsumed()
	c.RecordCodeRejected()
	c.RecordCodeRejected()

	if val := counterValue(t, reg, "famauth_verification_codes_issued_total"); val != 1 {
		t.Errorf("codes_issued_total = %v, want 1", val)
	}
	if val := counterValue(t, reg, "famauth_verification_codes_consumed_total"); val != 1 {
		t.Errorf("codes_consumed_total = %v, want 1", val)
	}
	if val := counterValue(t, reg, "famauth_verification_codes_rejected_total"); val != 2 {
		t.Errorf("codes_rejected_total = %v, want 2", val)
	}
}

// TestRecordHTTPRequest_LabelsRequest はHTTPリクエストカウンタのラベルを検証する。
func TestRecordHTTPRequest_LabelsRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("POST", "/verify-signup-code", 400)

	if val := counterValue(t, reg, "famauth_http_requests_total"); val != 1 {
		t.Errorf("http_requests_total = %v, want 1", val)
	}
}

// TestHandler_ServesMetrics は/metricsハンドラーが登録済みメトリクスを出力することを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCodeIssued()
	c.RecordMailSendLatency(120 * time.Millisecond)

	handler := Handler(reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	output := string(body)
	if !strings.Contains(output, "famauth_verification_codes_issued_total 1") {
		t.Errorf("expected codes_issued_total in output, got:\n%s", output)
	}
	if !strings.Contains(output, "famauth_mail_send_latency_seconds") {
		t.Errorf("expected mail_send_latency in output, got:\n%s", output)
	}
}

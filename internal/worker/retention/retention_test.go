package retention

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

type fakeResult struct {
	rowsAffected int64
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// Executor インターフェースに対するモック実装
type mockExecutor struct {
	execCalled bool
	query      string
	args       []interface{}
	result     sql.Result
	err        error
}

func (m *mockExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.execCalled = true
	m.query = query
	m.args = args
	return m.result, m.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestNewRetentionJob_SetsDefaultRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 0},
	}
	job := NewRetentionJob(mock, logger)

	if job.RetentionDays != 14 {
		t.Errorf("RetentionDays = %d, want 14", job.RetentionDays)
	}
}

func TestRetentionJob_Run_ExecutesDeleteQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 5},
	}
	job := NewRetentionJob(mock, logger)

	err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if !mock.execCalled {
		t.Fatal("ExecContext が呼び出されなかった")
	}

	if !strings.Contains(mock.query, "DELETE FROM email_verification_codes") {
		t.Errorf("クエリに 'DELETE FROM email_verification_codes' が含まれていない: %s", mock.query)
	}

	// 削除条件はexpires_at。有効期限内の行には触れない
	if !strings.Contains(mock.query, "expires_at") {
		t.Errorf("クエリに 'expires_at' 条件が含まれていない: %s", mock.query)
	}
}

func TestRetentionJob_Run_UsesIntervalParameter(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 0},
	}
	job := NewRetentionJob(mock, logger)

	_ = job.Run(context.Background())

	if len(mock.args) < 1 {
		t.Fatal("ExecContext に引数が渡されなかった")
	}

	argStr, ok := mock.args[0].(string)
	if !ok {
		t.Fatalf("第1引数が string ではない: %T", mock.args[0])
	}
	if argStr != "14 days" {
		t.Errorf("interval引数 = %q, want %q", argStr, "14 days")
	}
}

func TestRetentionJob_Run_LogsDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 42},
	}
	job := NewRetentionJob(mock, logger)

	_ = job.Run(context.Background())

	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	found := false
	for _, line := range lines {
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if count, ok := entry["deleted_count"]; ok {
			if count == float64(42) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Errorf("ログに deleted_count=42 が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestRetentionJob_Run_ReturnsErrorOnDBFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: nil,
		err:    sql.ErrConnDone,
	}
	job := NewRetentionJob(mock, logger)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("DBエラー時に Run() は nil でないエラーを返すべき")
	}

	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", buf.String())
	}
}

func TestRetentionJob_Run_Idempotent_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 0},
	}
	job := NewRetentionJob(mock, logger)

	// 冪等性: 削除対象がなくてもエラーにならない
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("1回目の Run() がエラーを返した: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("2回目の Run() がエラーを返した: %v", err)
	}
}

func TestRetentionJob_CustomRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 0},
	}
	job := NewRetentionJob(mock, logger)
	job.RetentionDays = 30 // カスタム保持日数

	_ = job.Run(context.Background())

	argStr, ok := mock.args[0].(string)
	if !ok {
		t.Fatalf("第1引数が string ではない: %T", mock.args[0])
	}
	if argStr != "30 days" {
		t.Errorf("interval引数 = %q, want %q", argStr, "30 days")
	}
}

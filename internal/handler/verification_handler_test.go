package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ayaka/famauth/internal/middleware"
	"github.com/ayaka/famauth/internal/model"
)

type mockIssuer struct {
	issueFn func(ctx context.Context, caller *model.AuthUser, displayName string) error
}

func (m *mockIssuer) Issue(ctx context.Context, caller *model.AuthUser, displayName string) error {
	if m.issueFn != nil {
		return m.issueFn(ctx, caller, displayName)
	}
	return nil
}

type mockValidator struct {
	validateFn func(ctx context.Context, email, submitted string) error
}

func (m *mockValidator) Validate(ctx context.Context, email, submitted string) error {
	if m.validateFn != nil {
		return m.validateFn(ctx, email, submitted)
	}
	return nil
}

// newAuthedPost は認証済みコンテキスト付きのPOSTリクエストを生成する。
func newAuthedPost(t *testing.T, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	ctx := middleware.ContextWithAuthUser(req.Context(), &model.AuthUser{
		ID:    "auth-child",
		Email: "child@example.com",
		Name:  "たろう",
	})
	return req.WithContext(ctx)
}

func TestSendCode_Success(t *testing.T) {
	var gotCaller *model.AuthUser
	var gotDisplayName string
	issuer := &mockIssuer{
		issueFn: func(ctx context.Context, caller *model.AuthUser, displayName string) error {
			gotCaller = caller
			gotDisplayName = displayName
			return nil
		},
	}

	h := NewVerificationHandler(issuer, &mockValidator{})

	w := httptest.NewRecorder()
	h.SendCode(w, newAuthedPost(t, "/send-signup-verification-code", `{"userName":"たろう先生"}`))

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", w.Result().StatusCode, http.StatusOK, w.Body.String())
	}

	var resp okResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK {
		t.Error("ok = false, want true")
	}
	// コードはレスポンスに含まれない
	if strings.Contains(resp.Message, "code") {
		t.Errorf("response message should not contain the code: %q", resp.Message)
	}

	if gotCaller == nil || gotCaller.Email != "child@example.com" {
		t.Errorf("caller = %+v, want email child@example.com", gotCaller)
	}
	if gotDisplayName != "たろう先生" {
		t.Errorf("display name = %q, want たろう先生", gotDisplayName)
	}
}

func TestSendCode_EmptyBody_Allowed(t *testing.T) {
	var gotDisplayName string
	issuer := &mockIssuer{
		issueFn: func(ctx context.Context, caller *model.AuthUser, displayName string) error {
			gotDisplayName = displayName
			return nil
		},
	}

	h := NewVerificationHandler(issuer, &mockValidator{})

	w := httptest.NewRecorder()
	h.SendCode(w, newAuthedPost(t, "/send-signup-verification-code", ""))

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotDisplayName != "" {
		t.Errorf("display name = %q, want empty", gotDisplayName)
	}
}

func TestSendCode_NoAuthUser_Returns401(t *testing.T) {
	h := NewVerificationHandler(&mockIssuer{}, &mockValidator{})

	req := httptest.NewRequest(http.MethodPost, "/send-signup-verification-code", strings.NewReader("{}"))
	w := httptest.NewRecorder()

	h.SendCode(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestSendCode_MailFailure_Returns500(t *testing.T) {
	issuer := &mockIssuer{
		issueFn: func(ctx context.Context, caller *model.AuthUser, displayName string) error {
			return model.NewUpstreamFailureError("mail API returned status 502")
		},
	}

	h := NewVerificationHandler(issuer, &mockValidator{})

	w := httptest.NewRecorder()
	h.SendCode(w, newAuthedPost(t, "/send-signup-verification-code", "{}"))

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeUpstreamFailure {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUpstreamFailure)
	}
}

func TestVerifyCode_Success(t *testing.T) {
	var gotEmail, gotCode string
	validator := &mockValidator{
		validateFn: func(ctx context.Context, email, submitted string) error {
			gotEmail = email
			gotCode = submitted
			return nil
		},
	}

	h := NewVerificationHandler(&mockIssuer{}, validator)

	w := httptest.NewRecorder()
	h.VerifyCode(w, newAuthedPost(t, "/verify-signup-code", `{"code":"123456"}`))

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", w.Result().StatusCode, http.StatusOK, w.Body.String())
	}

	var resp okResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK {
		t.Error("ok = false, want true")
	}

	// 照合対象のメールアドレスはトークン由来。ボディからは受け取らない
	if gotEmail != "child@example.com" {
		t.Errorf("email = %q, want child@example.com", gotEmail)
	}
	if gotCode != "123456" {
		t.Errorf("code = %q, want 123456", gotCode)
	}
}

func TestVerifyCode_WrongCode_Returns400(t *testing.T) {
	validator := &mockValidator{
		validateFn: func(ctx context.Context, email, submitted string) error {
			return model.NewCodeNotFoundOrExpiredError()
		},
	}

	h := NewVerificationHandler(&mockIssuer{}, validator)

	w := httptest.NewRecorder()
	h.VerifyCode(w, newAuthedPost(t, "/verify-signup-code", `{"code":"654321"}`))

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeCodeNotFoundOrExpired {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeCodeNotFoundOrExpired)
	}
}

func TestVerifyCode_MalformedBody_Returns400(t *testing.T) {
	validatorCalled := false
	validator := &mockValidator{
		validateFn: func(ctx context.Context, email, submitted string) error {
			validatorCalled = true
			return nil
		},
	}

	h := NewVerificationHandler(&mockIssuer{}, validator)

	w := httptest.NewRecorder()
	h.VerifyCode(w, newAuthedPost(t, "/verify-signup-code", "not-json"))

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
	if validatorCalled {
		t.Error("validator should not be called for malformed body")
	}
}

func TestVerifyCode_PlainError_Returns500WithCause(t *testing.T) {
	validator := &mockValidator{
		validateFn: func(ctx context.Context, email, submitted string) error {
			return context.DeadlineExceeded
		},
	}

	h := NewVerificationHandler(&mockIssuer{}, validator)

	w := httptest.NewRecorder()
	h.VerifyCode(w, newAuthedPost(t, "/verify-signup-code", `{"code":"123456"}`))

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}

	body := decodeErrorBody(t, w)
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body.Code)
	}
	if !strings.Contains(body.Message, "deadline exceeded") {
		t.Errorf("message = %q, want cause string included", body.Message)
	}
}

// 空ボディのVerifyCodeはJSONとして不正なので400になる
func TestVerifyCode_EmptyBody_Returns400(t *testing.T) {
	h := NewVerificationHandler(&mockIssuer{}, &mockValidator{})

	w := httptest.NewRecorder()
	h.VerifyCode(w, newAuthedPost(t, "/verify-signup-code", ""))

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

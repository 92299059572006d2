// Package identity は外部IDプロバイダ（GoTrue互換API）のクライアントを提供する。
// トークン検証と、メール確認済み状態でのアカウント作成の2操作のみを扱う。
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ayaka/famauth/internal/model"
)

// Config はIDプロバイダクライアントの設定。
type Config struct {
	// APIURL はプロバイダのベースURL（例: "https://auth.example.com/auth/v1"）。
	APIURL string
	// AnonKey はトークン検証に使用する公開APIキー。
	AnonKey string
	// ServiceKey はアカウント作成に使用する管理者APIキー。
	ServiceKey string
}

// Client はIDプロバイダAPIのクライアント。
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient はClientを生成する。
func NewClient(config Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// ProviderError はIDプロバイダが返したエラーレスポンスを表す。
// Messageはプロバイダのメッセージをそのまま保持する（加工しない）。
type ProviderError struct {
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider returned status %d: %s", e.StatusCode, e.Message)
}

// authUserResponse はプロバイダのユーザーレスポンス。
type authUserResponse struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	EmailConfirmedAt string `json:"email_confirmed_at"`
	UserMetadata     struct {
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"user_metadata"`
}

// errorResponse はプロバイダのエラーレスポンス。
// GoTrueはバージョンによりmsg/message/error_descriptionを使い分ける。
type errorResponse struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

// VerifyToken はBearerトークンをプロバイダに照会し、対応するアカウントを返す。
// トークンが不正・期限切れ・未知の場合はエラーを返す。
func (c *Client) VerifyToken(ctx context.Context, token string) (*model.AuthUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.APIURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", c.config.AnonKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read verify response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(body),
		}
	}

	var userResp authUserResponse
	if err := json.Unmarshal(body, &userResp); err != nil {
		return nil, fmt.Errorf("failed to parse verify response: %w", err)
	}

	if userResp.ID == "" {
		return nil, fmt.Errorf("empty user id in verify response")
	}

	return toAuthUser(&userResp), nil
}

// CreateUserParams はアカウント作成のパラメータ。
type CreateUserParams struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// createUserRequest はアカウント作成APIのリクエストボディ。
type createUserRequest struct {
	Email        string         `json:"email"`
	Password     string         `json:"password"`
	EmailConfirm bool           `json:"email_confirm"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// CreateUser は管理者キーでアカウントを作成する。
// メールは確認済み（email_confirm: true）として作成される。
// プロバイダのエラーは*ProviderErrorとしてメッセージを加工せずに返す。
func (c *Client) CreateUser(ctx context.Context, params CreateUserParams) (*model.AuthUser, error) {
	reqBody, err := json.Marshal(createUserRequest{
		Email:        params.Email,
		Password:     params.Password,
		EmailConfirm: true,
		UserMetadata: map[string]any{
			"role": params.Role,
			"name": params.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal create user request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL+"/admin/users", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create user request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.ServiceKey)
	req.Header.Set("apikey", c.config.ServiceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create user request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read create user response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(body),
		}
	}

	var userResp authUserResponse
	if err := json.Unmarshal(body, &userResp); err != nil {
		return nil, fmt.Errorf("failed to parse create user response: %w", err)
	}

	if userResp.ID == "" {
		return nil, fmt.Errorf("empty user id in create user response")
	}

	return toAuthUser(&userResp), nil
}

// toAuthUser はプロバイダのレスポンスをドメインモデルに変換する。
func toAuthUser(resp *authUserResponse) *model.AuthUser {
	return &model.AuthUser{
		ID:             resp.ID,
		Email:          resp.Email,
		Name:           resp.UserMetadata.Name,
		Role:           resp.UserMetadata.Role,
		EmailConfirmed: resp.EmailConfirmedAt != "",
	}
}

// extractErrorMessage はプロバイダのエラーレスポンスからメッセージを取り出す。
// どのフィールドも空の場合は生のボディを返す。
func extractErrorMessage(body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch {
		case errResp.Msg != "":
			return errResp.Msg
		case errResp.Message != "":
			return errResp.Message
		case errResp.ErrorDescription != "":
			return errResp.ErrorDescription
		}
	}
	return string(body)
}

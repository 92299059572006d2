// Package mailer はメール送信コラボレータ（Resend互換API）のクライアントを提供する。
// 確認コードメールと汎用お知らせメールの2種類のテンプレートを持つ。
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/ayaka/famauth/internal/security"
)

// SendRequest はメール送信の依頼内容を表す。
// Codeが空でない場合は確認コードテンプレート、空の場合は汎用テンプレートを使用する。
type SendRequest struct {
	Email       string
	DisplayName string
	Subject     string // 空の場合はテンプレートごとの既定件名を使用
	Message     string // 汎用テンプレートの本文
	Code        string // 確認コード
}

// Sender はメール送信のインターフェース。
type Sender interface {
	Send(ctx context.Context, req SendRequest) error
}

// Config はメールクライアントの設定。
type Config struct {
	// APIURL はメールAPIのベースURL（例: "https://api.resend.com"）。
	APIURL string
	// APIKey はBearer認証に使用するAPIキー。
	APIKey string
	// From は送信元アドレス（例: "Famauth <no-reply@famauth.app>"）。
	From string
}

// Client はメールAPIのクライアント。
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	sanitizer  security.NameSanitizer
}

// NewClient はClientを生成する。
func NewClient(config Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		sanitizer:  security.NewNameSanitizer(),
	}
}

const (
	defaultDisplayName = "ユーザー"
	codeMailSubject    = "【Famauth】アカウント確認コード"
	genericMailSubject = "Famauthからのお知らせ"
)

// codeMailTemplate は確認コードメールのHTMLテンプレート。
var codeMailTemplate = template.Must(template.New("code_mail").Parse(`
<div style="font-family: 'Hiragino Sans', 'Segoe UI', sans-serif; padding: 24px; border-left: 5px solid #2E7D32; background-color: #f9f9f9;">
  <h2 style="color: #2E7D32;">{{.Name}} さん、こんにちは</h2>
  <p style="font-size: 16px; color: #333;">以下のコードを入力してアカウントを有効化してください:</p>
  <p style="font-size: 28px; font-weight: 700; letter-spacing: 8px; color: #1B5E20; margin: 20px 0;">{{.Code}}</p>
  <p style="font-size: 14px; color: #666;">コードは1回のみ、一定時間だけ有効です。心当たりがない場合はこのメールを無視してください。</p>
  <p style="font-size: 12px; color: #777;">このメールはFamauthから自動送信されています。</p>
</div>
`))

// genericMailTemplate は汎用お知らせメールのHTMLテンプレート。
var genericMailTemplate = template.Must(template.New("generic_mail").Parse(`
<div style="font-family: 'Hiragino Sans', 'Segoe UI', sans-serif; padding: 20px; border-left: 5px solid #2E7D32; background-color: #f9f9f9;">
  <h2 style="color: #2E7D32;">{{.Name}} さん、こんにちは</h2>
  <p style="font-size: 16px; color: #333;">{{.Message}}</p>
  <br />
  <p style="font-size: 12px; color: #777;">このメールはFamauthから自動送信されています。</p>
</div>
`))

// sendMailRequest はメールAPIのリクエストボディ。
type sendMailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send はメールを1通送信する。
// 宛先メールアドレスが空の場合はエラーを返す。
// APIがエラーステータスを返した場合、レスポンスボディをそのままエラーに含める。
func (c *Client) Send(ctx context.Context, req SendRequest) error {
	if req.Email == "" {
		return fmt.Errorf("recipient email is required")
	}

	html, subject, err := c.render(req)
	if err != nil {
		return fmt.Errorf("failed to render mail template: %w", err)
	}

	reqBody, err := json.Marshal(sendMailRequest{
		From:    c.config.From,
		To:      []string{req.Email},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL+"/emails", bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("メールAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("mail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("メールAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("mail API returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// render はリクエスト内容からHTML本文と件名を生成する。
// 表示名はテンプレート埋め込み前にプレーンテキストへサニタイズする。
func (c *Client) render(req SendRequest) (html, subject string, err error) {
	name := c.sanitizer.Sanitize(req.DisplayName)
	if name == "" {
		name = defaultDisplayName
	}

	var buf bytes.Buffer
	if req.Code != "" {
		subject = codeMailSubject
		err = codeMailTemplate.Execute(&buf, struct {
			Name string
			Code string
		}{Name: name, Code: req.Code})
	} else {
		subject = genericMailSubject
		err = genericMailTemplate.Execute(&buf, struct {
			Name    string
			Message string
		}{Name: name, Message: req.Message})
	}
	if err != nil {
		return "", "", err
	}

	if req.Subject != "" {
		subject = req.Subject
	}

	return buf.String(), subject, nil
}

// compile-time interface check
var _ Sender = (*Client)(nil)

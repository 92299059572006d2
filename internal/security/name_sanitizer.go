// Package security はアプリケーションのセキュリティ機能を提供する。
//
// NameSanitizer は呼び出し元が指定した表示名をメールテンプレートに
// 埋め込む前にプレーンテキストへ落とす。bluemondayの
// StrictPolicyを使用し、すべてのタグと属性を除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// NameSanitizer は表示名のサニタイズ機能のインターフェースを定義する。
type NameSanitizer interface {
	// Sanitize は表示名からすべてのHTMLタグを除去し、前後の空白を取り除く。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(name string) string
}

// nameSanitizer はNameSanitizerの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type nameSanitizer struct {
	policy *bluemonday.Policy
}

// NewNameSanitizer はNameSanitizerの新しいインスタンスを生成する。
func NewNameSanitizer() *nameSanitizer {
	return &nameSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は表示名からすべてのHTMLタグを除去し、前後の空白を取り除く。
func (s *nameSanitizer) Sanitize(name string) string {
	return strings.TrimSpace(s.policy.Sanitize(name))
}

// compile-time interface check
var _ NameSanitizer = (*nameSanitizer)(nil)

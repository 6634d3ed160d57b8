// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はプロジェクト、マイルストーン、タスクの名前と説明から
// マークアップを除去し、プレーンテキストとして保存させる。
// パスワードのハッシュ化にはbcryptを使用する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はユーザー入力テキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizerService interface {
	// Sanitize は全てのHTMLタグを除去したプレーンテキストを返す。
	// 前後の空白は取り除く。同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicyはスレッドセーフに共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses は多重にエスケープされた入力を展開する最大回数。
const maxSanitizePasses = 4

// Sanitize はタグを除去し、bluemondayがエスケープした文字実体を元に戻す。
// 実体参照で書かれたマークアップ（&lt;script&gt; など）は復元後に再度除去し、
// 出力が変化しなくなるまで繰り返す。
// 保存値はプレーンテキストであり、HTMLとしての出力時に改めてエスケープされる。
func (s *textSanitizer) Sanitize(raw string) string {
	out := strings.TrimSpace(raw)
	for i := 0; i < maxSanitizePasses && out != ""; i++ {
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(out)))
		if next == out {
			return out
		}
		out = next
	}
	return out
}

// Package guard は入力値とリクエスト元のチェックを提供します。
//
// 文字のチェックは禁止文字リスト方式です。インジェクション対策そのものではなく、
// 特定の文字を受け付けないという運用上のポリシーとして扱います。
package guard

import (
	"strings"
	"unicode/utf8"

	"github.com/yourusername/authgate/internal/password"
)

const (
	// DisallowedChars は入力に含めることを禁止する文字です。
	DisallowedChars = "<>'%"

	// MinPasswordLength はパスワードの最小文字数です。
	MinPasswordLength = 8
	// MaxPasswordBytes は bcrypt が扱える入力の上限バイト数です。
	MaxPasswordBytes = password.MaxInputBytes
)

// エラーメッセージ
const (
	MsgDisallowedChars = "<>'% characters not allowed!"
	MsgPasswordShort   = "Please use a password with 8 characters or more."
	MsgPasswordLong    = "Please use a password of 72 bytes or fewer."
	MsgRequiredFields  = "Please fill in all fields."
)

// ValidationError は入力値がポリシーに違反している場合のエラーです。
// Message はそのままフォームに表示できる文言です。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Fields はチェック対象のフォーム値です。空の値はチェックしません。
type Fields struct {
	Email    string
	Nickname string
	Password string
}

// ValidateFields は禁止文字を含むフィールドがあればエラーを返します。
func ValidateFields(f Fields) error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"email", f.Email},
		{"nickname", f.Nickname},
		{"password", f.Password},
	} {
		if field.value != "" && strings.ContainsAny(field.value, DisallowedChars) {
			return &ValidationError{Field: field.name, Message: MsgDisallowedChars}
		}
	}
	return nil
}

// CheckPasswordStrength はパスワードの長さを検証します。
func CheckPasswordStrength(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: MsgPasswordShort}
	}
	if len(password) > MaxPasswordBytes {
		return &ValidationError{Field: "password", Message: MsgPasswordLong}
	}
	return nil
}

// RequireFields は必須項目が空でないことを検証します。
func RequireFields(values ...string) error {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Message: MsgRequiredFields}
		}
	}
	return nil
}

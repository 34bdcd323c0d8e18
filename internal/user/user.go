// Package user はユーザーモデルとストアのインターフェースを提供します。
package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound は該当するユーザーが存在しない場合のエラーです。
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateKey はメールアドレスが既に登録済みの場合のエラーです。
	ErrDuplicateKey = errors.New("duplicate key")
)

// User は登録済みユーザーを表します。
type User struct {
	ID           string
	Email        string
	Nickname     string
	PasswordHash string
	CreatedAt    time.Time
}

// Sanitized はパスワードハッシュを取り除いたコピーを返します。
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp
}

// Store はユーザーの永続化を担います。
// メールアドレスの一意性はストア側で保証し、重複時は ErrDuplicateKey を返します。
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// Prepare は作成前に ID と作成日時を補完します。
func Prepare(u *User) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
}

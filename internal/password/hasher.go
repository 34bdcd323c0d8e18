// Package password はパスワードのハッシュ化と検証を提供します。
package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultCost は bcrypt の既定コストです。
	DefaultCost = 14
	// MaxInputBytes は bcrypt が評価する入力の上限バイト数です。これを超える部分は無視されます。
	MaxInputBytes = 72
)

// Hasher は bcrypt によるハッシュ計算を行います。
// bcrypt は CPU を占有するため、同時実行数をセマフォで制限します。
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewHasher は Hasher を作成します。cost や concurrency が 0 以下の場合は既定値を使います。
func NewHasher(cost, concurrency int) *Hasher {
	if cost <= 0 {
		cost = DefaultCost
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(concurrency)),
	}
}

// Cost は使用する bcrypt コストを返します。
func (h *Hasher) Cost() int {
	return h.cost
}

// ErrTooLong は平文が MaxInputBytes を超えている場合のエラーです。
var ErrTooLong = errors.New("password exceeds 72 bytes")

// Hash は平文パスワードをハッシュ化します。
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if len(plaintext) > MaxInputBytes {
		return "", ErrTooLong
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("failed to acquire hashing slot: %w", err)
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify は平文パスワードとハッシュを比較します。
// 不正な形式のハッシュやキャンセル済みのコンテキストでは false を返します。
// MaxInputBytes を超える平文は切り詰めずに不一致とします。Hash はそのような平文を受け付けません。
func (h *Hasher) Verify(ctx context.Context, plaintext, hashed string) bool {
	if hashed == "" || len(plaintext) > MaxInputBytes {
		return false
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourusername/authgate/internal/user"
)

const (
	userKeyPrefix  = "user:"
	emailKeyPrefix = "email:"
)

// redisRecord は Redis に保存するユーザーの JSON 表現です。
type redisRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Nickname     string    `json:"nickname"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RedisUserStore はユーザーを Redis に保存します。
// メールアドレスの索引キーを SETNX で確保することで一意性を保証します。
type RedisUserStore struct {
	rdb redis.UniversalClient
}

// NewRedisUserStore は RedisUserStore を作成します。
func NewRedisUserStore(rdb redis.UniversalClient) *RedisUserStore {
	return &RedisUserStore{rdb: rdb}
}

// NewRedisClient は URL からクライアントを作成し、疎通を確認します。
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Create はユーザーを保存します。
func (s *RedisUserStore) Create(ctx context.Context, u *user.User) error {
	if u == nil {
		return errors.New("user is nil")
	}
	user.Prepare(u)

	payload, err := json.Marshal(redisRecord{
		ID:           u.ID,
		Email:        u.Email,
		Nickname:     u.Nickname,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	})
	if err != nil {
		return err
	}

	claimed, err := s.rdb.SetNX(ctx, emailKey(u.Email), u.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim email: %w", err)
	}
	if !claimed {
		return user.ErrDuplicateKey
	}

	if err := s.rdb.Set(ctx, userKey(u.ID), payload, 0).Err(); err != nil {
		// 索引だけが残らないように解放する
		_ = s.rdb.Del(ctx, emailKey(u.Email)).Err()
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByID は ID でユーザーを取得します。
func (s *RedisUserStore) FindByID(ctx context.Context, id string) (*user.User, error) {
	data, err := s.rdb.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	var record redisRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", id, err)
	}
	return &user.User{
		ID:           record.ID,
		Email:        record.Email,
		Nickname:     record.Nickname,
		PasswordHash: record.PasswordHash,
		CreatedAt:    record.CreatedAt,
	}, nil
}

// FindByEmail はメールアドレスでユーザーを取得します。
func (s *RedisUserStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	id, err := s.rdb.Get(ctx, emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return s.FindByID(ctx, id)
}

func userKey(id string) string {
	return userKeyPrefix + id
}

func emailKey(email string) string {
	return emailKeyPrefix + email
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPStore keeps one-time passwords with a bounded lifetime per entry. It
// lives in a shared store rather than process memory so verification
// survives restarts and scales past a single instance.
type OTPStore interface {
	SetCode(ctx context.Context, email, code string, ttl time.Duration) error
	GetCode(ctx context.Context, email string) (string, error)
	MarkVerified(ctx context.Context, email string, ttl time.Duration) error
	IsVerified(ctx context.Context, email string) (bool, error)
	Clear(ctx context.Context, email string) error
}

type redisOTPStore struct{ client *redis.Client }

func NewRedisOTPStore(client *redis.Client) OTPStore {
	return &redisOTPStore{client: client}
}

func otpCodeKey(email string) string     { return "otp:code:" + email }
func otpVerifiedKey(email string) string { return "otp:verified:" + email }

func (s *redisOTPStore) SetCode(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, otpCodeKey(email), code, ttl).Err(); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return nil
}

func (s *redisOTPStore) GetCode(ctx context.Context, email string) (string, error) {
	code, err := s.client.Get(ctx, otpCodeKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get otp: %w", err)
	}
	return code, nil
}

func (s *redisOTPStore) MarkVerified(ctx context.Context, email string, ttl time.Duration) error {
	if err := s.client.Set(ctx, otpVerifiedKey(email), "1", ttl).Err(); err != nil {
		return fmt.Errorf("mark otp verified: %w", err)
	}
	return nil
}

func (s *redisOTPStore) IsVerified(ctx context.Context, email string) (bool, error) {
	n, err := s.client.Exists(ctx, otpVerifiedKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("check otp verified: %w", err)
	}
	return n > 0, nil
}

func (s *redisOTPStore) Clear(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, otpCodeKey(email), otpVerifiedKey(email)).Err(); err != nil {
		return fmt.Errorf("clear otp: %w", err)
	}
	return nil
}

// generateOTP returns a 6-digit code with leading zeros preserved.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

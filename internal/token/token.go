// Package token はベアラートークン（HS256署名のJWT）の発行と検証を提供する。
//
// トークンはサーバー側に保存しない。有効性は署名、発行者、対象者、有効期限のみで判定する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/taskboard/internal/model"
)

// デフォルト値
const (
	DefaultLifetime  = 5 * time.Minute
	DefaultClockSkew = 60 * time.Second

	// MinSecretLength はHS256の共有鍵として受け付ける最小バイト数。
	MinSecretLength = 32
)

var (
	// ErrTokenExpired は有効期限（許容誤差込み）を過ぎたトークンを示す。
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidToken は署名、発行者、対象者などの検証に失敗したトークンを示す。
	ErrInvalidToken = errors.New("invalid token")

	// ErrMalformedToken はデコードできない、またはsubjectを持たないトークンを示す。
	ErrMalformedToken = errors.New("malformed token")
)

// Claims はトークンに埋め込むクレーム。
// subにユーザーID、jtiにトークンごとの一意IDを持つ。ロールは含めない。
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Config はService生成時の設定。
type Config struct {
	Secret    []byte
	Issuer    string
	Audience  string
	Lifetime  time.Duration
	ClockSkew time.Duration
}

// Option はServiceの任意設定。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service はトークンの発行と検証を行う。
// 共有鍵は生成時に注入され、プロセスの生存期間中は変更されない。
type Service struct {
	secret    []byte
	issuer    string
	audience  string
	lifetime  time.Duration
	clockSkew time.Duration
	now       func() time.Time
	parser    *jwt.Parser
}

// NewService はServiceを生成する。
// Lifetime、ClockSkewが0以下の場合はデフォルト値を使用する。
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
	}

	s := &Service{
		secret:    append([]byte(nil), cfg.Secret...),
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		lifetime:  cfg.Lifetime,
		clockSkew: cfg.ClockSkew,
		now:       time.Now,
	}
	if s.lifetime <= 0 {
		s.lifetime = DefaultLifetime
	}
	if s.clockSkew <= 0 {
		s.clockSkew = DefaultClockSkew
	}
	for _, opt := range opts {
		opt(s)
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	}
	if s.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(s.audience))
	}
	s.parser = jwt.NewParser(parserOptions...)

	return s, nil
}

// Lifetime はトークンの有効期間を返す。
func (s *Service) Lifetime() time.Duration {
	return s.lifetime
}

// Issue はユーザーのトークンを発行する。
func (s *Service) Issue(user *model.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", errors.New("user with id is required")
	}

	now := s.now()
	claims := &Claims{
		Name:  user.UserName,
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate は署名、発行者、対象者、有効期限を検証してクレームを返す。
// 期限切れはErrTokenExpired、それ以外の失敗はErrInvalidTokenをラップして返す。
func (s *Service) Validate(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := s.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseSubjectID は署名を検証せずにトークンをデコードし、subjectを返す。
// 認証ミドルウェアで検証済みのトークンから呼び出し元IDを取り出す用途に限る。
func (s *Service) ParseSubjectID(raw string) (string, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}
	return claims.Subject, nil
}

// Package model はドメインモデルを定義する。
package model

import "time"

// ロール名。rolesテーブルの初期データと一致させる。
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User はサービス利用ユーザー（認証主体）を表す。
// パスワードハッシュとロックアウト状態を含み、APIレスポンスには直接出さない。
type User struct {
	ID                string
	UserName          string
	Email             string
	PasswordHash      string
	AccessFailedCount int
	LockoutEnd        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsLockedOut は指定時刻においてアカウントがロックアウト中かどうかを返す。
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

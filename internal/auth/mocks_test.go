package auth

import (
	"context"
	"time"

	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/security"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn            func(ctx context.Context, id string) (*model.User, error)
	findByUserNameFn      func(ctx context.Context, name string) (*model.User, error)
	createWithRolesFn     func(ctx context.Context, user *model.User, roles []string) error
	addToRoleFn           func(ctx context.Context, userID, role string) error
	isInRoleFn            func(ctx context.Context, userID, role string) (bool, error)
	recordAccessFailureFn func(ctx context.Context, userID string, max int, end time.Time) (*time.Time, error)
	resetAccessFailuresFn func(ctx context.Context, userID string) error
	deleteByIDFn          func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUserName(ctx context.Context, name string) (*model.User, error) {
	if m.findByUserNameFn != nil {
		return m.findByUserNameFn(ctx, name)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithRoles(ctx context.Context, user *model.User, roles []string) error {
	if m.createWithRolesFn != nil {
		return m.createWithRolesFn(ctx, user, roles)
	}
	return nil
}

func (m *mockUserRepo) AddToRole(ctx context.Context, userID, role string) error {
	if m.addToRoleFn != nil {
		return m.addToRoleFn(ctx, userID, role)
	}
	return nil
}

func (m *mockUserRepo) IsInRole(ctx context.Context, userID, role string) (bool, error) {
	if m.isInRoleFn != nil {
		return m.isInRoleFn(ctx, userID, role)
	}
	return false, nil
}

func (m *mockUserRepo) RecordAccessFailure(ctx context.Context, userID string, max int, end time.Time) (*time.Time, error) {
	if m.recordAccessFailureFn != nil {
		return m.recordAccessFailureFn(ctx, userID, max, end)
	}
	return nil, nil
}

func (m *mockUserRepo) ResetAccessFailures(ctx context.Context, userID string) error {
	if m.resetAccessFailuresFn != nil {
		return m.resetAccessFailuresFn(ctx, userID)
	}
	return nil
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

// plainHasher は "hashed:" 接頭辞を付けるだけのテスト用ハッシャー。
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (plainHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return security.ErrPasswordMismatch
	}
	return nil
}

type stubIssuer struct {
	issued []*model.User
}

func (s *stubIssuer) Issue(user *model.User) (string, error) {
	s.issued = append(s.issued, user)
	return "token-for-" + user.ID, nil
}

type countingRecorder struct {
	logins  map[string]int
	denials map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{logins: map[string]int{}, denials: map[string]int{}}
}

func (r *countingRecorder) RecordLogin(result string)       { r.logins[result]++ }
func (r *countingRecorder) RecordAuthzDenial(reason string) { r.denials[reason]++ }

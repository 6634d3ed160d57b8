package security

import (
	"errors"
	"fmt"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch はパスワードがハッシュと一致しないことを示す。
var ErrPasswordMismatch = errors.New("password does not match")

// PasswordMinLength はパスワードの最小文字数。
const PasswordMinLength = 8

// BcryptHasher はbcryptによるパスワードハッシュ化を行う。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はBcryptHasherを生成する。
// costが範囲外の場合はbcrypt.DefaultCostを使用する。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash は平文パスワードのハッシュを返す。
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

// Compare は平文パスワードがハッシュと一致するかを検証する。
// 不一致の場合はErrPasswordMismatchを返す。
func (h *BcryptHasher) Compare(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("failed to compare password: %w", err)
	}
	return nil
}

// PasswordPolicy はパスワード強度のozzo-validationルール。
// 8文字以上、数字1文字以上、英数字以外の記号1文字以上を要求する。
var PasswordPolicy = validation.By(checkPasswordPolicy)

func checkPasswordPolicy(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		// 必須チェックはvalidation.Requiredに任せる
		return nil
	}

	var hasDigit, hasSymbol bool
	length := 0
	for _, r := range s {
		length++
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r):
			hasSymbol = true
		}
	}

	if length < PasswordMinLength {
		return fmt.Errorf("must be at least %d characters", PasswordMinLength)
	}
	if !hasDigit {
		return errors.New("must contain at least one digit")
	}
	if !hasSymbol {
		return errors.New("must contain at least one non-alphanumeric character")
	}
	return nil
}

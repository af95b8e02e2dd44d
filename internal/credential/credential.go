// credential хэширует и проверяет пароли пользователей (bcrypt).
//
// Хэширование выполняется только по явной команде PasswordChange с
// Changing=true: повторное сохранение записи без смены пароля не должно
// перехэшировать уже сохранённый хэш.
package credential

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword — команда смены пароля без самого пароля.
var ErrEmptyPassword = errors.New("password is empty")

// Hasher — адаптер над bcrypt с фиксированной стоимостью.
// Безопасен для конкурентного использования.
type Hasher struct {
	cost int
}

// NewHasher создаёт Hasher. Стоимость вне [bcrypt.MinCost, bcrypt.MaxCost]
// заменяется на bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Hasher{cost: cost}
}

// Hash хэширует пароль с солью.
func (h *Hasher) Hash(plain string) (string, error) {
	const op = "credential.Hash"

	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

// Verify сравнивает пароль с хэшем средствами bcrypt (за постоянное время).
func (h *Hasher) Verify(plain, hash string) bool {
	if hash == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// PasswordChange — команда записи пароля. Changing выставляет вызывающий:
// true только при создании пользователя и при смене пароля.
type PasswordChange struct {
	Plaintext string
	Changing  bool
}

// Resolve возвращает хэш, который нужно сохранить в записи пользователя:
// при Changing=false — текущий хэш без изменений, иначе — хэш нового пароля.
func (h *Hasher) Resolve(change PasswordChange, currentHash string) (string, error) {
	const op = "credential.Resolve"

	if !change.Changing {
		return currentHash, nil
	}

	if change.Plaintext == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	hash, err := h.Hash(change.Plaintext)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return hash, nil
}

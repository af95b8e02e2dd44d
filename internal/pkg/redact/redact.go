// redact предоставляет утилиты безопасного редактирования чувствительных
// данных для логов (e-mail, логины, токены, пароли). Цель — исключить утечки
// секретов, сохранив полезный для отладки контекст (например, домен e-mail).
package redact

import "strings"

// Email маскирует e-mail для логирования.
//
// Правила:
//   - Строка должна содержать РОВНО один символ '@', иначе возвращается "***";
//   - Локальная часть заменяется на первые два символа (по рунам) + "***";
//   - Если длина локальной части ≤ 2 символов — возвращается "***@<domain>";
//   - Доменная часть возвращается без изменений.
//
// Примеры:
//
//	"foobar@example.com"   -> "fo***@example.com"
//	"ab@ex.com"            -> "***@ex.com"
//	"no-at"                -> "***"
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	return prefix(s[:i]) + "@" + s[i+1:]
}

// Login маскирует идентификатор входа: e-mail по правилам Email,
// username — до первых двух символов.
func Login(s string) string {
	if strings.Contains(s, "@") {
		return Email(s)
	}

	return prefix(s)
}

// Token возвращает литерал-заглушку для токена в логах.
func Token() string { return "[REDACTED_TOKEN]" }

// Password возвращает литерал-заглушку для пароля в логах.
func Password() string { return "[REDACTED_PASSWORD]" }

func prefix(s string) string {
	r := []rune(s)
	if len(r) > 2 {
		return string(r[:2]) + "***"
	}

	return "***"
}

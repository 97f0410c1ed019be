package expr

import "fmt"

// Kind — классификация ошибки вычисления выражения.
type Kind string

const (
	// KindUnresolvedReference — путь не найден в контексте.
	// Значение по умолчанию никогда не подставляется.
	KindUnresolvedReference Kind = "unresolved_reference"

	// KindSyntax — синтаксическая ошибка шаблона или условия.
	KindSyntax Kind = "syntax"

	// KindType — несовместимые типы операндов в условии.
	KindType Kind = "type_mismatch"
)

// Error — ошибка разрешения выражения.
//
// Node-scoped и возникает только во время выполнения; движок
// преобразует её в ошибку узла без повторных попыток.
type Error struct {
	// Kind — классификация ошибки.
	Kind Kind

	// Path — путь, который не удалось разрешить (для UnresolvedReference).
	Path string

	// Message — описание ошибки.
	Message string
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// unresolvedErr создаёт ошибку неразрешённого пути.
func unresolvedErr(path string) *Error {
	return &Error{Kind: KindUnresolvedReference, Path: path}
}

// syntaxErr создаёт синтаксическую ошибку.
func syntaxErr(format string, args ...any) *Error {
	return &Error{Kind: KindSyntax, Message: fmt.Sprintf(format, args...)}
}

// typeErr создаёт ошибку несовместимых типов.
func typeErr(format string, args ...any) *Error {
	return &Error{Kind: KindType, Message: fmt.Sprintf(format, args...)}
}

package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/sandbox"
)

// Ключи конфигурации code-узла.
const (
	configLanguage     = "language"
	configSource       = "source"
	configInputMapping = "input_mapping"
)

const defaultCodeTimeout = 60 * time.Second

// Поддерживаемые языки сниппетов.
var supportedLanguages = map[string]bool{
	"python":     true,
	"javascript": true,
}

// CodeExecutor — узел выполнения пользовательского кода.
//
// Сниппет уходит во внешний sandbox-runner; в процессе движка
// пользовательский код не исполняется никогда.
//
// Конфигурация:
//
//	{
//	    "language": "python",
//	    "source": "result = {'total': input['a'] + input['b']}",
//	    "input_mapping": {
//	        "a": "{{fetch.output.count}}",
//	        "b": "{{input.offset}}"
//	    },
//	    "timeout_sec": 30
//	}
//
// input_mapping разрешается движком до вызова и передаётся сниппету
// как его input. Output — структура, возвращённая сниппетом.
type CodeExecutor struct {
	runner *sandbox.Client
}

// NewCodeExecutor создаёт CodeExecutor поверх sandbox-клиента.
func NewCodeExecutor(runner *sandbox.Client) *CodeExecutor {
	return &CodeExecutor{runner: runner}
}

// Type возвращает тип узла.
func (e *CodeExecutor) Type() domain.NodeType {
	return domain.NodeTypeCode
}

// ValidateConfig проверяет конфигурацию code-узла.
func (e *CodeExecutor) ValidateConfig(node *domain.Node) error {
	if ConfigString(node.Config, configSource) == "" {
		return fmt.Errorf("%w: %s: source is required", ErrInvalidConfig, node.ID)
	}

	language := ConfigString(node.Config, configLanguage)
	if language == "" {
		return fmt.Errorf("%w: %s: language is required", ErrInvalidConfig, node.ID)
	}
	if !supportedLanguages[language] {
		return fmt.Errorf("%w: %s: unsupported language %q", ErrInvalidConfig, node.ID, language)
	}
	return nil
}

// Execute выполняет сниппет в sandbox и возвращает его результат.
func (e *CodeExecutor) Execute(ctx context.Context, req *Request) (*Response, error) {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = defaultCodeTimeout
	}
	if sec := ConfigInt(req.Config, configTimeoutSec); sec > 0 {
		timeout = time.Duration(sec) * time.Second
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := e.runner.Run(callCtx, &sandbox.RunRequest{
		Language:   ConfigString(req.Config, configLanguage),
		Source:     ConfigString(req.Config, configSource),
		Input:      ConfigMap(req.Config, configInputMapping),
		TimeoutSec: int(timeout / time.Second),
	})
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, Timeout(err, "code execution deadline exceeded")
		case errors.Is(err, sandbox.ErrUnavailable):
			return nil, Transient(err, "sandbox unavailable: %v", err)
		default:
			return nil, Upstream(0, err, "code execution failed: %v", err)
		}
	}

	return NewResponse(result.Output), nil
}

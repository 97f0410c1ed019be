package expr

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Маркеры выражений в шаблонах.
const (
	openMarker  = "{{"
	closeMarker = "}}"
)

// Resolve разрешает строковый шаблон с выражениями {{ path }}.
//
// Если шаблон целиком состоит из одного выражения, возвращается
// типизированное значение (map, число, bool). Смешанный текст
// конкатенируется в строку. Шаблон без выражений возвращается как есть.
//
// Отсутствующий путь — всегда ошибка: значение по умолчанию
// не подставляется никогда.
func Resolve(template string, ctx *Context) (any, error) {
	if !strings.Contains(template, openMarker) {
		return template, nil
	}

	// Шаблон из единственного выражения — сохраняем тип значения
	trimmed := strings.TrimSpace(template)
	if strings.HasPrefix(trimmed, openMarker) && strings.HasSuffix(trimmed, closeMarker) {
		inner := trimmed[len(openMarker) : len(trimmed)-len(closeMarker)]
		if !strings.Contains(inner, openMarker) && !strings.Contains(inner, closeMarker) {
			return ctx.Lookup(strings.TrimSpace(inner))
		}
	}

	return interpolate(template, ctx)
}

// ResolveString разрешает шаблон и приводит результат к строке.
func ResolveString(template string, ctx *Context) (string, error) {
	value, err := Resolve(template, ctx)
	if err != nil {
		return "", err
	}
	return Stringify(value), nil
}

// interpolate подставляет все выражения шаблона и возвращает строку.
func interpolate(template string, ctx *Context) (string, error) {
	var b strings.Builder
	rest := template

	for {
		start := strings.Index(rest, openMarker)
		if start < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}

		end := strings.Index(rest[start:], closeMarker)
		if end < 0 {
			return "", syntaxErr("unclosed expression in template %q", template)
		}
		end += start

		b.WriteString(rest[:start])

		path := strings.TrimSpace(rest[start+len(openMarker) : end])
		if path == "" {
			return "", syntaxErr("empty expression in template %q", template)
		}

		value, err := ctx.Lookup(path)
		if err != nil {
			return "", err
		}
		b.WriteString(Stringify(value))

		rest = rest[end+len(closeMarker):]
	}
}

// ResolveValue разрешает произвольное значение конфигурации.
// Рекурсивно обрабатывает map и slice; нестроковые листья
// возвращаются без изменений.
func ResolveValue(value any, ctx *Context) (any, error) {
	switch v := value.(type) {
	case string:
		return Resolve(v, ctx)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			resolved, err := ResolveValue(val, ctx)
			if err != nil {
				return nil, err
			}
			result[key] = resolved
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			resolved, err := ResolveValue(val, ctx)
			if err != nil {
				return nil, err
			}
			result[i] = resolved
		}
		return result, nil

	case map[string]string:
		result := make(map[string]string, len(v))
		for key, val := range v {
			resolved, err := ResolveString(val, ctx)
			if err != nil {
				return nil, err
			}
			result[key] = resolved
		}
		return result, nil

	default:
		return value, nil
	}
}

// ResolveConfig разрешает конфигурацию узла.
// Обёртка над ResolveValue для map[string]any.
func ResolveConfig(config map[string]any, ctx *Context) (map[string]any, error) {
	if config == nil {
		return make(map[string]any), nil
	}

	resolved, err := ResolveValue(config, ctx)
	if err != nil {
		return nil, err
	}

	return resolved.(map[string]any), nil
}

// Stringify приводит значение к строковому представлению для подстановки.
// Числа форматируются без хвостовых нулей, составные значения — как JSON.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

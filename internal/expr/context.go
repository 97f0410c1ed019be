package expr

import "strings"

// Context — контекст для разрешения выражений.
//
// Содержит накопленные данные одного job: входные данные,
// outputs завершённых узлов и секреты. Живёт только в памяти
// на время выполнения — целиком никогда не сохраняется.
//
// Пути в выражениях:
//   - {{ input.field }}          — входные данные job
//   - {{ node_id.output.field }} — output завершённого узла
//   - {{ secrets.API_KEY }}      — секреты окружения
type Context struct {
	// Input — входные данные job.
	Input map[string]any

	// Nodes — outputs завершённых узлов (nodeID → output).
	Nodes map[string]map[string]any

	// Secrets — разрешённые секреты (имя → значение).
	Secrets map[string]string
}

// NewContext создаёт новый контекст с входными данными и секретами.
func NewContext(input map[string]any, secrets map[string]string) *Context {
	if input == nil {
		input = make(map[string]any)
	}
	if secrets == nil {
		secrets = make(map[string]string)
	}
	return &Context{
		Input:   input,
		Nodes:   make(map[string]map[string]any),
		Secrets: secrets,
	}
}

// AddNodeOutput добавляет output завершённого узла в контекст.
func (c *Context) AddNodeOutput(nodeID string, output map[string]any) {
	if output == nil {
		output = make(map[string]any)
	}
	c.Nodes[nodeID] = output
}

// Snapshot возвращает копию контекста с независимой картой узлов.
// Outputs узлов после добавления не изменяются, поэтому копия
// неглубокая: её можно читать параллельно с пополнением оригинала.
func (c *Context) Snapshot() *Context {
	nodes := make(map[string]map[string]any, len(c.Nodes))
	for id, output := range c.Nodes {
		nodes[id] = output
	}
	return &Context{
		Input:   c.Input,
		Nodes:   nodes,
		Secrets: c.Secrets,
	}
}

// Lookup разрешает путь вида "a.b.c" в значение.
// Возвращает Error{Kind: UnresolvedReference} для отсутствующего пути.
func (c *Context) Lookup(path string) (any, error) {
	segments := strings.Split(path, ".")
	if len(segments) == 0 || segments[0] == "" {
		return nil, unresolvedErr(path)
	}

	var current any
	switch segments[0] {
	case "input":
		if len(segments) == 1 {
			return c.Input, nil
		}
		current = c.Input

	case "secrets":
		// Секреты — плоская карта, путь всегда secrets.NAME
		if len(segments) != 2 {
			return nil, unresolvedErr(path)
		}
		value, ok := c.Secrets[segments[1]]
		if !ok {
			return nil, unresolvedErr(path)
		}
		return value, nil

	default:
		// Путь к output узла: node_id.output.field...
		output, ok := c.Nodes[segments[0]]
		if !ok || len(segments) < 2 || segments[1] != "output" {
			return nil, unresolvedErr(path)
		}
		if len(segments) == 2 {
			return output, nil
		}
		current = output
		segments = segments[1:] // остаток обрабатывается ниже, начиная с третьего сегмента
	}

	for _, segment := range segments[1:] {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, unresolvedErr(path)
		}
		current, ok = m[segment]
		if !ok {
			return nil, unresolvedErr(path)
		}
	}

	return current, nil
}

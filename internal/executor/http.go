package executor

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Conduit/internal/domain"
)

// Ключи конфигурации http-узла.
const (
	configMethod          = "method"
	configURL             = "url"
	configHeaders         = "headers"
	configBody            = "body"
	configFollowRedirects = "follow_redirects"
	configValidateSSL     = "validate_ssl"
	configTimeoutSec      = "timeout_sec"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBody    = 10 * 1024 * 1024 // 10 MB
)

// HTTPExecutor — узел HTTP-запроса к внешнему API.
//
// Конфигурация:
//
//	{
//	    "method": "POST",
//	    "url": "https://api.example.com/tickets",
//	    "headers": {"Authorization": "Bearer {{secrets.API_TOKEN}}"},
//	    "body": {"message": "{{input.message}}"},
//	    "timeout_sec": 30
//	}
//
// Output:
//
//	{"status_code": 200, "headers": {...}, "body": {...}}
//
// Не-2xx ответ — ошибка узла: 429 и 5xx — transient (retry),
// остальные — upstream failure. Сетевой сбой — transient.
type HTTPExecutor struct{}

// NewHTTPExecutor создаёт HTTPExecutor.
func NewHTTPExecutor() *HTTPExecutor {
	return &HTTPExecutor{}
}

// Type возвращает тип узла.
func (e *HTTPExecutor) Type() domain.NodeType {
	return domain.NodeTypeHTTP
}

// ValidateConfig проверяет конфигурацию http-узла.
func (e *HTTPExecutor) ValidateConfig(node *domain.Node) error {
	if ConfigString(node.Config, configURL) == "" {
		return fmt.Errorf("%w: %s: url is required", ErrInvalidConfig, node.ID)
	}

	method := strings.ToUpper(ConfigString(node.Config, configMethod))
	switch method {
	case "", http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead:
		return nil
	default:
		return fmt.Errorf("%w: %s: unsupported method %q", ErrInvalidConfig, node.ID, method)
	}
}

// Execute выполняет HTTP-запрос.
func (e *HTTPExecutor) Execute(ctx context.Context, req *Request) (*Response, error) {
	cfg := parseHTTPConfig(req.Config)

	timeout := req.Timeout
	if timeout == 0 {
		timeout = cfg.timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := buildHTTPRequest(callCtx, cfg)
	if err != nil {
		return nil, Upstream(0, err, "build request: %v", err)
	}

	resp, err := httpClient(cfg).Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, Timeout(err, "http request deadline exceeded")
		}
		if callCtx.Err() != nil {
			return nil, callCtx.Err()
		}
		return nil, Transient(err, "http request failed: %v", err)
	}
	defer resp.Body.Close()

	output, err := parseHTTPResponse(resp)
	if err != nil {
		return nil, Transient(err, "read response: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, Transient(nil, "http request returned status %d", resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, Upstream(resp.StatusCode, nil, "http request returned status %d", resp.StatusCode)
	}

	return NewResponse(output), nil
}

// httpConfig — распарсенная конфигурация http-узла.
type httpConfig struct {
	method          string
	url             string
	headers         map[string]string
	body            any
	followRedirects bool
	validateSSL     bool
	timeout         time.Duration
}

func parseHTTPConfig(config map[string]any) *httpConfig {
	cfg := &httpConfig{
		method:          strings.ToUpper(ConfigString(config, configMethod)),
		url:             ConfigString(config, configURL),
		headers:         ConfigMapString(config, configHeaders),
		body:            config[configBody],
		followRedirects: configBool(config, configFollowRedirects, true),
		validateSSL:     configBool(config, configValidateSSL, true),
		timeout:         defaultHTTPTimeout,
	}
	if cfg.method == "" {
		cfg.method = http.MethodGet
	}
	if cfg.headers == nil {
		cfg.headers = make(map[string]string)
	}
	if sec := ConfigInt(config, configTimeoutSec); sec > 0 {
		cfg.timeout = time.Duration(sec) * time.Second
	}
	return cfg
}

func configBool(config map[string]any, key string, defaultVal bool) bool {
	if v, ok := config[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

func httpClient(cfg *httpConfig) *http.Client {
	var checkRedirect func(*http.Request, []*http.Request) error
	if !cfg.followRedirects {
		checkRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &http.Client{
		CheckRedirect: checkRedirect,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: !cfg.validateSSL,
			},
		},
	}
}

func buildHTTPRequest(ctx context.Context, cfg *httpConfig) (*http.Request, error) {
	var bodyReader io.Reader
	if cfg.body != nil {
		bodyBytes, err := serializeBody(cfg.body)
		if err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)

		if _, ok := cfg.headers["Content-Type"]; !ok {
			cfg.headers["Content-Type"] = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, cfg.method, cfg.url, bodyReader)
	if err != nil {
		return nil, err
	}
	for key, value := range cfg.headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

func serializeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// parseHTTPResponse читает ответ и собирает output узла.
func parseHTTPResponse(resp *http.Response) (map[string]any, error) {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, err
	}

	var body any
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(bodyBytes, &body); err != nil {
			body = string(bodyBytes)
		}
	} else {
		body = string(bodyBytes)
	}

	headers := make(map[string]string)
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        body,
	}, nil
}

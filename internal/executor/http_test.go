package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shaiso/Conduit/internal/sandbox"
)

func TestHTTPExecutor_Success(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"id": "t-1", "ok": true})
	}))
	defer server.Close()

	resp, err := NewHTTPExecutor().Execute(context.Background(), &Request{
		Config: map[string]any{
			"method":  "POST",
			"url":     server.URL,
			"headers": map[string]any{"Authorization": "Bearer tok"},
			"body":    map[string]any{"message": "hi"},
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if resp.Output["status_code"] != http.StatusOK {
		t.Errorf("status_code = %v", resp.Output["status_code"])
	}
	body := resp.Output["body"].(map[string]any)
	if body["id"] != "t-1" {
		t.Errorf("body.id = %v", body["id"])
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization header = %q", gotAuth)
	}
}

func TestHTTPExecutor_NonJSONBodyKeptAsString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("pong"))
	}))
	defer server.Close()

	resp, err := NewHTTPExecutor().Execute(context.Background(), &Request{
		Config: map[string]any{"url": server.URL},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Output["body"] != "pong" {
		t.Errorf("body = %v, want raw string", resp.Output["body"])
	}
}

func TestHTTPExecutor_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantKind   Kind
		wantStatus int
	}{
		{"server error is transient", http.StatusInternalServerError, KindTransient, 0},
		{"rate limit is transient", http.StatusTooManyRequests, KindTransient, 0},
		{"client error is upstream", http.StatusNotFound, KindUpstreamFailure, http.StatusNotFound},
		{"unprocessable is upstream", http.StatusUnprocessableEntity, KindUpstreamFailure, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := NewHTTPExecutor().Execute(context.Background(), &Request{
				Config: map[string]any{"url": server.URL},
			})
			if err == nil {
				t.Fatal("expected error")
			}

			nodeErr := Classify(err)
			if nodeErr.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", nodeErr.Kind, tt.wantKind)
			}
			if nodeErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", nodeErr.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestHTTPExecutor_NetworkFailureIsTransient(t *testing.T) {
	// Закрытый сервер гарантирует connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewHTTPExecutor().Execute(context.Background(), &Request{
		Config: map[string]any{"url": url},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if Classify(err).Kind != KindTransient {
		t.Errorf("Kind = %s, want %s", Classify(err).Kind, KindTransient)
	}
}

func TestCodeExecutor_Success(t *testing.T) {
	var gotReq sandbox.RunRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(sandbox.RunResult{
			Output:   map[string]any{"total": float64(7)},
			ExitCode: 0,
		})
	}))
	defer server.Close()

	e := NewCodeExecutor(sandbox.NewClient(server.URL))
	resp, err := e.Execute(context.Background(), &Request{
		Config: map[string]any{
			"language":      "python",
			"source":        "result = {'total': input['a'] + input['b']}",
			"input_mapping": map[string]any{"a": float64(3), "b": float64(4)},
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if resp.Output["total"] != float64(7) {
		t.Errorf("total = %v", resp.Output["total"])
	}
	if gotReq.Language != "python" {
		t.Errorf("language sent to runner = %q", gotReq.Language)
	}
	if gotReq.Input["a"] != float64(3) {
		t.Errorf("input_mapping not forwarded: %v", gotReq.Input)
	}
}

func TestCodeExecutor_ExecutionFailureIsUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sandbox.RunResult{
			ExitCode: 1,
			Stderr:   "NameError: name 'x' is not defined",
		})
	}))
	defer server.Close()

	e := NewCodeExecutor(sandbox.NewClient(server.URL))
	_, err := e.Execute(context.Background(), &Request{
		Config: map[string]any{"language": "python", "source": "x"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if Classify(err).Kind != KindUpstreamFailure {
		t.Errorf("Kind = %s, want %s", Classify(err).Kind, KindUpstreamFailure)
	}
}

func TestCodeExecutor_RunnerDownIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := NewCodeExecutor(sandbox.NewClient(server.URL))
	_, err := e.Execute(context.Background(), &Request{
		Config: map[string]any{"language": "python", "source": "result = {}"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if Classify(err).Kind != KindTransient {
		t.Errorf("Kind = %s, want %s", Classify(err).Kind, KindTransient)
	}
}

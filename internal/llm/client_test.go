package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient_DefaultsBaseURL(t *testing.T) {
	client := NewClient("", "key", "claude-3-7-sonnet-20250219")
	if client.BaseURL != "https://api.anthropic.com" {
		t.Errorf("BaseURL = %q, want https://api.anthropic.com", client.BaseURL)
	}
}

func TestClient_Generate(t *testing.T) {
	tests := []struct {
		name       string
		serverResp func(w http.ResponseWriter, r *http.Request)
		want       string
		wantErr    bool
	}{
		{
			name: "successful generation",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/messages" {
					t.Errorf("expected /v1/messages, got %s", r.URL.Path)
				}
				if r.Header.Get("x-api-key") != "test-key" {
					t.Error("missing x-api-key header")
				}
				if r.Header.Get("anthropic-version") == "" {
					t.Error("missing anthropic-version header")
				}
				var req MessagesRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				if req.System == "" {
					t.Error("request should carry a system prompt")
				}
				resp := MessagesResponse{
					ID:      "msg_1",
					Content: []ContentBlock{{Type: "text", Text: "Sure, here is an answer."}},
				}
				_ = json.NewEncoder(w).Encode(resp)
			},
			want: "Sure, here is an answer.",
		},
		{
			name: "bad status",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: true,
		},
		{
			name: "empty content",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(MessagesResponse{ID: "msg_2"})
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewClient(server.URL, "test-key", "claude-3-7-sonnet-20250219")
			got, err := client.Generate(context.Background(), "You are a helpful assistant.", "hello")
			if tt.wantErr {
				if err == nil {
					t.Fatal("Generate() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Generate() = %q, want %q", got, tt.want)
			}
		})
	}
}

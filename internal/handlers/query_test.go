package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	handlers_mocks "salescoach-ai/internal/handlers/mocks"
	"salescoach-ai/internal/rag"
	"salescoach-ai/internal/vectorstore"
)

func TestQueryHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		setup      func(r *handlers_mocks.MockRetriever)
		wantStatus int
		check      func(t *testing.T, body []byte)
	}{
		{
			name:   "successful query",
			method: http.MethodPost,
			body:   `{"query":"panel pricing","top_k":3,"mode":"assistant"}`,
			setup: func(r *handlers_mocks.MockRetriever) {
				r.EXPECT().Retrieve(gomock.Any(), "panel pricing", 3, "assistant").
					Return(rag.RetrievalResult{
						Context: "[Pricing]: details",
						Matches: []vectorstore.Match{
							{ID: "doc-1-chunk-0", Score: 0.9, Meta: map[string]string{
								"title": "Pricing", "type": "technical", "text": "details",
							}},
						},
					}, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var resp QueryResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp.Context != "[Pricing]: details" {
					t.Errorf("context = %q", resp.Context)
				}
				if len(resp.Matches) != 1 || resp.Matches[0].ID != "doc-1-chunk-0" {
					t.Errorf("matches = %+v", resp.Matches)
				}
				if resp.Matches[0].Title != "Pricing" || resp.Matches[0].Type != "technical" {
					t.Errorf("match metadata = %+v", resp.Matches[0])
				}
			},
		},
		{
			name:       "wrong method",
			method:     http.MethodGet,
			body:       "",
			setup:      func(r *handlers_mocks.MockRetriever) {},
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "invalid body",
			method:     http.MethodPost,
			body:       "{not json",
			setup:      func(r *handlers_mocks.MockRetriever) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty query",
			method:     http.MethodPost,
			body:       `{"query":""}`,
			setup:      func(r *handlers_mocks.MockRetriever) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			retriever := handlers_mocks.NewMockRetriever(ctrl)
			tt.setup(retriever)

			handler := NewQueryHandler(retriever)

			req := httptest.NewRequest(tt.method, "/api/indexing/query", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.check != nil {
				tt.check(t, rec.Body.Bytes())
			}
		})
	}
}

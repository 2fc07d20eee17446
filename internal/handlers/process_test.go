package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"salescoach-ai/internal/drive"
	handlers_mocks "salescoach-ai/internal/handlers/mocks"
	"salescoach-ai/internal/indexer"
)

func TestProcessHandler(t *testing.T) {
	folders := map[string]string{"technical": "folder-1"}
	docs := []drive.Document{
		{ID: "doc-1", Name: "Specs", Content: "panel specs", Category: "technical"},
	}

	tests := []struct {
		name       string
		method     string
		setup      func(f *handlers_mocks.MockDocumentFetcher, p *handlers_mocks.MockIndexer)
		wantStatus int
		check      func(t *testing.T, body []byte)
	}{
		{
			name:   "successful run",
			method: http.MethodPost,
			setup: func(f *handlers_mocks.MockDocumentFetcher, p *handlers_mocks.MockIndexer) {
				f.EXPECT().FetchAll(gomock.Any(), folders).Return(docs, nil)
				p.EXPECT().IndexDocuments(gomock.Any(), docs).
					Return(indexer.Result{Processed: 1, ChunkCount: 3, Skipped: 1, SkippedIDs: []string{"doc-0"}}, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var resp ProcessResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp.Fetched != 1 || resp.Processed != 1 || resp.ChunkCount != 3 {
					t.Errorf("response = %+v", resp)
				}
				if len(resp.SkippedIDs) != 1 || resp.SkippedIDs[0] != "doc-0" {
					t.Errorf("skipped document IDs = %v, want [doc-0]", resp.SkippedIDs)
				}
			},
		},
		{
			name:       "wrong method",
			method:     http.MethodGet,
			setup:      func(f *handlers_mocks.MockDocumentFetcher, p *handlers_mocks.MockIndexer) {},
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:   "fetch failure",
			method: http.MethodPost,
			setup: func(f *handlers_mocks.MockDocumentFetcher, p *handlers_mocks.MockIndexer) {
				f.EXPECT().FetchAll(gomock.Any(), folders).Return(nil, errors.New("drive unreachable"))
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:   "indexing failure",
			method: http.MethodPost,
			setup: func(f *handlers_mocks.MockDocumentFetcher, p *handlers_mocks.MockIndexer) {
				f.EXPECT().FetchAll(gomock.Any(), folders).Return(docs, nil)
				p.EXPECT().IndexDocuments(gomock.Any(), docs).
					Return(indexer.Result{}, errors.New("database locked"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			fetcher := handlers_mocks.NewMockDocumentFetcher(ctrl)
			pipeline := handlers_mocks.NewMockIndexer(ctrl)
			tt.setup(fetcher, pipeline)

			handler := NewProcessHandler(fetcher, pipeline, folders)

			req := httptest.NewRequest(tt.method, "/api/indexing/process", nil)
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

func TestProcessHandlerNoFolders(t *testing.T) {
	ctrl := gomock.NewController(t)
	handler := NewProcessHandler(
		handlers_mocks.NewMockDocumentFetcher(ctrl),
		handlers_mocks.NewMockIndexer(ctrl),
		nil,
	)

	req := httptest.NewRequest(http.MethodPost, "/api/indexing/process", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

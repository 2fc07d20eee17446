package drive

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"salescoach-ai/internal/contextutil"
)

const (
	mimeTypeGoogleDoc = "application/vnd.google-apps.document"
	exportMimeText    = "text/plain"

	// maxExportSize caps exported document content (5MB).
	maxExportSize = 5 * 1024 * 1024

	listPageSize = 100

	// requestsPerSecond keeps the source under the Drive API default quota.
	requestsPerSecond = 10
	fetchWorkers      = 4
)

// Document is a Google Doc fetched from a category folder, ready for indexing.
type Document struct {
	ID       string
	Name     string
	Content  string
	Category string
}

// Source lists and exports Google Docs from the configured Drive folders.
type Source struct {
	svc     *drive.Service
	limiter *rate.Limiter
}

// NewSource creates a Drive source authenticated with a service account.
// credentials is either inline service account JSON or a path to a JSON file.
func NewSource(ctx context.Context, credentials string) (*Source, error) {
	var opt option.ClientOption
	if strings.HasPrefix(strings.TrimSpace(credentials), "{") {
		opt = option.WithCredentialsJSON([]byte(credentials))
	} else {
		opt = option.WithCredentialsFile(credentials)
	}

	svc, err := drive.NewService(ctx, opt, option.WithScopes(drive.DriveReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &Source{
		svc:     svc,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

// ListFolder returns all Google Docs directly inside the folder, without
// content. Pagination is followed to the end.
func (s *Source) ListFolder(ctx context.Context, folderID, category string) ([]Document, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false and mimeType='%s'", folderID, mimeTypeGoogleDoc)

	var docs []Document
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name)").
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list folder %s: %w", folderID, WrapError(err))
		}

		for _, f := range page.Files {
			docs = append(docs, Document{ID: f.Id, Name: f.Name, Category: category})
		}

		if page.NextPageToken == "" {
			return docs, nil
		}
		pageToken = page.NextPageToken
	}
}

// FetchContent exports a Google Doc as plain text.
func (s *Source) FetchContent(ctx context.Context, fileID string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := s.svc.Files.Export(fileID, exportMimeText).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("failed to export file %s: %w", fileID, WrapError(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxExportSize))
	if err != nil {
		return "", fmt.Errorf("failed to read export of %s: %w", fileID, err)
	}
	return string(data), nil
}

// FetchAll lists every configured category folder and exports the content of
// each document. folders maps category name to folder ID. A document whose
// export fails is skipped with a warning; bad credentials abort the whole
// fetch. Results are ordered by category, then name.
func (s *Source) FetchAll(ctx context.Context, folders map[string]string) ([]Document, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var listed []Document
	for category, folderID := range folders {
		docs, err := s.ListFolder(ctx, folderID, category)
		if err != nil {
			if IsUnauthorized(err) {
				return nil, err
			}
			logger.WarnContext(ctx, "skipping folder", "category", category, "folder_id", folderID, "error", err)
			continue
		}
		logger.InfoContext(ctx, "listed folder", "category", category, "documents", len(docs))
		listed = append(listed, docs...)
	}

	type fetched struct {
		doc Document
		err error
	}

	jobs := make(chan Document)
	results := make(chan fetched, len(listed))

	var wg sync.WaitGroup
	for i := 0; i < fetchWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				content, err := s.FetchContent(ctx, doc.ID)
				doc.Content = content
				results <- fetched{doc: doc, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, doc := range listed {
			select {
			case jobs <- doc:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var docs []Document
	for r := range results {
		if r.err != nil {
			if IsUnauthorized(r.err) {
				return nil, r.err
			}
			logger.WarnContext(ctx, "skipping document", "file_id", r.doc.ID, "name", r.doc.Name, "error", r.err)
			continue
		}
		docs = append(docs, r.doc)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Category != docs[j].Category {
			return docs[i].Category < docs[j].Category
		}
		return docs[i].Name < docs[j].Name
	})
	return docs, nil
}

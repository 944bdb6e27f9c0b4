package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/api/option"

	"github.com/BartekS5/commentflow/pkg/models"
)

func thread(id, text string, likes int64) map[string]any {
	return map[string]any{
		"id": id,
		"snippet": map[string]any{
			"topLevelComment": map[string]any{
				"snippet": map[string]any{"textDisplay": text, "likeCount": likes},
			},
		},
	}
}

func newTestSource(t *testing.T, h http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s, err := NewSource(context.Background(), Config{APIKey: "test-key"},
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	return s
}

func TestListCommentThreads(t *testing.T) {
	var got map[string]string
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{
			"videoId":    q.Get("videoId"),
			"pageToken":  q.Get("pageToken"),
			"maxResults": q.Get("maxResults"),
			"textFormat": q.Get("textFormat"),
			"part":       q.Get("part"),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"nextPageToken": "CURSOR2",
			"items": []any{
				thread("a", "Great video!", 12),
				thread("b", "line one\nline two", 0),
			},
		})
	})

	page, err := s.ListCommentThreads(context.Background(), models.PageRequest{VideoID: "vid123", PageToken: "CURSOR1", MaxResults: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{"videoId": "vid123", "pageToken": "CURSOR1", "maxResults": "100", "textFormat": "plainText", "part": "snippet"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("query %s = %q, want %q", k, got[k], v)
		}
	}
	if page.NextPageToken != "CURSOR2" {
		t.Errorf("expected next token CURSOR2, got %q", page.NextPageToken)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	if page.Items[0] != (models.CommentRecord{Text: "Great video!", LikeCount: 12}) {
		t.Errorf("unexpected first item %+v", page.Items[0])
	}
}

func TestListCommentThreadsRejectsThreadWithoutSnippet(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []any{
				thread("a", "Great video!", 12),
				map[string]any{"id": "broken"},
			},
		})
	})
	page, err := s.ListCommentThreads(context.Background(), models.PageRequest{VideoID: "vid123", MaxResults: 100})
	if err == nil {
		t.Fatal("expected error for a thread without a snippet")
	}
	if len(page.Items) != 0 {
		t.Errorf("expected no items on failure, got %d", len(page.Items))
	}
}

func TestListCommentThreadsAPIError(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"commentsDisabled"}}`))
	})
	if _, err := s.ListCommentThreads(context.Background(), models.PageRequest{VideoID: "v", MaxResults: 100}); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestNewSourceRequiresKey(t *testing.T) {
	if _, err := NewSource(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestRateLimiterHonoursContext(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	})
	s2, _ := NewSource(context.Background(), Config{APIKey: "k", RateLimit: 0.001})
	s2.svc = s.svc
	ctx := context.Background()
	if _, err := s2.ListCommentThreads(ctx, models.PageRequest{VideoID: "v", MaxResults: 1}); err != nil {
		t.Fatalf("first call should use the burst token: %v", err)
	}
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s2.ListCommentThreads(cctx, models.PageRequest{VideoID: "v", MaxResults: 1}); err == nil {
		t.Fatal("expected rate limiter to fail on a cancelled context")
	}
}

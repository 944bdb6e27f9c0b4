package youtube

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/BartekS5/commentflow/pkg/logger"
	"github.com/BartekS5/commentflow/pkg/models"
)

// Config controls how the comment API is called.
type Config struct {
	APIKey    string
	RateLimit float64 // requests per second; <= 0 disables throttling
	RateBurst int
}

// Source lists top-level comment threads through the YouTube Data API.
type Source struct {
	svc         *yt.Service
	rateLimiter *rate.Limiter
}

// NewSource builds a Source. Extra options are appended after the API key,
// which lets tests point it at a local endpoint.
func NewSource(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Source, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("youtube api key is required")
	}
	svc, err := yt.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	s := &Source{svc: svc}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.rateLimiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s, nil
}

// ListCommentThreads fetches one page as plain text.
func (s *Source) ListCommentThreads(ctx context.Context, req models.PageRequest) (models.Page, error) {
	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return models.Page{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	call := s.svc.CommentThreads.List([]string{"snippet"}).
		VideoId(req.VideoID).
		TextFormat("plainText").
		MaxResults(req.MaxResults).
		Context(ctx)
	if req.PageToken != "" {
		call = call.PageToken(req.PageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return models.Page{}, fmt.Errorf("list comment threads of %s: %w", req.VideoID, err)
	}

	page := models.Page{NextPageToken: resp.NextPageToken, Items: make([]models.CommentRecord, 0, len(resp.Items))}
	for i, item := range resp.Items {
		rec, ok := toRecord(item)
		if !ok {
			id := ""
			if item != nil {
				id = item.Id
			}
			logger.Named("youtube").Error().Str("thread", id).Int("index", i).Msg("comment thread without top-level comment snippet")
			return models.Page{}, fmt.Errorf("comment thread %q at index %d of %s has no top-level comment snippet", id, i, req.VideoID)
		}
		page.Items = append(page.Items, rec)
	}
	return page, nil
}

func toRecord(t *yt.CommentThread) (models.CommentRecord, bool) {
	if t == nil || t.Snippet == nil || t.Snippet.TopLevelComment == nil || t.Snippet.TopLevelComment.Snippet == nil {
		return models.CommentRecord{}, false
	}
	sn := t.Snippet.TopLevelComment.Snippet
	return models.CommentRecord{Text: sn.TextDisplay, LikeCount: sn.LikeCount}, true
}

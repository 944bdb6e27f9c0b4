package etl

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/BartekS5/commentflow/pkg/logger"
	"github.com/BartekS5/commentflow/pkg/models"
)

// MaxPageSize is the largest page the comment API serves.
const MaxPageSize = 100

// Harvester pulls every top-level comment of a video through a PageSource.
type Harvester struct {
	Source   PageSource
	PageSize int64
}

func NewHarvester(src PageSource, pageSize int64) *Harvester {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &Harvester{Source: src, PageSize: pageSize}
}

// Harvest returns all pages folded into one dataset, or a HarvestFailed error.
// A failure on any page discards everything fetched so far.
func (h *Harvester) Harvest(ctx context.Context, videoID string) (models.TabularDataset, error) {
	if videoID == "" {
		return models.TabularDataset{}, errorf(KindHarvestFailed, "harvest", "video id is required")
	}
	if h.Source == nil {
		return models.TabularDataset{}, errorf(KindHarvestFailed, "harvest", "no page source configured")
	}
	return Collect(Pages(ctx, h.Source, videoID, h.PageSize))
}

// Pages lazily walks the cursor chain of videoID. Every range over the
// returned sequence starts again from the first page. Iteration ends after
// the page without a next token, at the first error, or when the consumer
// stops early.
func Pages(ctx context.Context, src PageSource, videoID string, pageSize int64) iter.Seq2[models.Page, error] {
	return func(yield func(models.Page, error) bool) {
		log := logger.Named("harvester")
		seen := make(map[string]struct{})
		token := ""
		for n := 1; ; n++ {
			op := fmt.Sprintf("page %d", n)
			if err := ctx.Err(); err != nil {
				yield(models.Page{}, newError(KindHarvestFailed, op, err))
				return
			}

			page, err := src.ListCommentThreads(ctx, models.PageRequest{
				VideoID:    videoID,
				PageToken:  token,
				MaxResults: pageSize,
			})
			if err != nil {
				yield(models.Page{}, newError(KindHarvestFailed, op, err))
				return
			}
			log.Debug().Int("page", n).Int("items", len(page.Items)).Bool("more", page.NextPageToken != "").Msg("page fetched")

			if !yield(page, nil) {
				return
			}
			if page.NextPageToken == "" {
				return
			}
			// A cursor we already followed would make the walk loop forever.
			if _, dup := seen[page.NextPageToken]; dup {
				yield(models.Page{}, newError(KindHarvestFailed, op, errors.New("page cursor repeated")))
				return
			}
			seen[page.NextPageToken] = struct{}{}
			token = page.NextPageToken
		}
	}
}

// Collect folds pages into a dataset in page order, then item order.
// Items are not deduplicated.
func Collect(pages iter.Seq2[models.Page, error]) (models.TabularDataset, error) {
	var records []models.CommentRecord
	for page, err := range pages {
		if err != nil {
			return models.TabularDataset{}, err
		}
		records = append(records, page.Items...)
	}
	return models.TabularDataset{Records: records}, nil
}

package refresh

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/dashboard-feed-service/internal/cache"
	"github.com/kjstillabower/dashboard-feed-service/internal/client"
	"github.com/kjstillabower/dashboard-feed-service/internal/models"
)

// NewsFetcher replaces the news snapshot with the head of the feed.
// On failure the previous snapshot is kept.
type NewsFetcher struct {
	client client.NewsClient
	store  *cache.Store
	limit  int
	logger *zap.Logger
}

// NewNewsFetcher creates a NewsFetcher retaining up to limit items.
func NewNewsFetcher(c client.NewsClient, store *cache.Store, limit int, logger *zap.Logger) *NewsFetcher {
	return &NewsFetcher{client: c, store: store, limit: limit, logger: loggerOrNop(logger)}
}

func (f *NewsFetcher) Name() string { return FetcherNews }

// Fetch implements Fetcher.
func (f *NewsFetcher) Fetch(ctx context.Context) error {
	items, err := f.client.GetLatest(ctx, f.limit)
	if err != nil {
		f.logger.Warn("news fetch failed, keeping previous items", zap.Error(err))
		return fmt.Errorf("news: %w", err)
	}
	if err := f.store.PutNews(ctx, models.NewsSnapshot{Items: items, FetchedAt: time.Now().UTC()}); err != nil {
		f.logger.Error("news store failed", zap.Error(err))
		return fmt.Errorf("news: %w", err)
	}
	f.logger.Debug("news updated", zap.Int("items", len(items)))
	return nil
}

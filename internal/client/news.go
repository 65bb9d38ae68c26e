package client

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
)

// NewsClient fetches the latest items of a feed.
type NewsClient interface {
	GetLatest(ctx context.Context, limit int) ([]*gofeed.Item, error)
}

// RelayFeedClient fetches an RSS/Atom feed through an allorigins-style
// CORS relay: GET <relay>?url=<feed>, answered with {"contents": "<xml>"}.
type RelayFeedClient struct {
	up      *upstream
	feedURL string
	parser  *gofeed.Parser
}

func NewRelayFeedClient(relayURL, feedURL, userAgent string, timeout time.Duration) (*RelayFeedClient, error) {
	up, err := newUpstream(ProviderNews, relayURL, userAgent, timeout)
	if err != nil {
		return nil, err
	}
	if _, err := url.Parse(feedURL); err != nil {
		return nil, &ParseError{Provider: ProviderNews, Field: "feed_url", Err: err}
	}
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	return &RelayFeedClient{up: up, feedURL: feedURL, parser: fp}, nil
}

type relayEnvelope struct {
	Contents *string `json:"contents"`
}

// GetLatest returns at most limit items in feed order.
func (c *RelayFeedClient) GetLatest(ctx context.Context, limit int) ([]*gofeed.Item, error) {
	params := url.Values{}
	params.Set("url", c.feedURL)

	resp, err := c.up.getOK(ctx, params, nil)
	if err != nil {
		return nil, c.up.fail(err)
	}

	var env relayEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, c.up.fail(&ParseError{Provider: ProviderNews, Err: err})
	}
	if env.Contents == nil || *env.Contents == "" {
		return nil, c.up.fail(missingField(ProviderNews, "contents"))
	}

	feed, err := c.parser.ParseString(*env.Contents)
	if err != nil {
		return nil, c.up.fail(&ParseError{Provider: ProviderNews, Field: "contents", Err: err})
	}
	items := feed.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

package events

import "context"

type Publisher interface {
	PublishFeedRefreshed(ctx context.Context, e FeedRefreshed) error
}

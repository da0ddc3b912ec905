package events

import "context"

type NoopPublisher struct{}

func (NoopPublisher) PublishFeedRefreshed(context.Context, FeedRefreshed) error {
	return nil
}

var _ Publisher = (*NoopPublisher)(nil)

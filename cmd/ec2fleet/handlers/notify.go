package handlers

import (
	"context"
)

// Notify publishes a message to the topic whose ARN contains topic.
func Notify(ctx context.Context, opts Options, topic, subject, message string) error {
	return run(opts, func(s *session) error {
		return s.fleet.Notify.NotifyTopic(ctx, topic, subject, message)
	})
}

package notify

import (
	"context"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/talentexchange/backend/internal/events"
)

// JobInserter is the slice of river.Client the publisher needs.
type JobInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Publisher enqueues one delivery job per event. Called only after the
// engine's transaction has committed, so an enqueued event always refers to
// durable state.
type Publisher struct {
	Client JobInserter
}

func NewPublisher(client JobInserter) *Publisher {
	return &Publisher{Client: client}
}

var _ events.Publisher = (*Publisher)(nil)

func (p *Publisher) Publish(ctx context.Context, ev events.Event) error {
	_, err := p.Client.Insert(ctx, DeliverNotificationArgs{Event: ev}, nil)
	return err
}

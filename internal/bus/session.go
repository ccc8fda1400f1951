// Package bus models the topic-addressed publish/subscribe and query/reply
// messaging fabric the backend speaks to frontends over. The wire transport
// itself (the actual pub/sub broker a deployment plugs in) is out of scope;
// Session is the contract every backend component programs against, and
// Memory is an in-process implementation suitable for a single-process
// deployment or for tests, generalizing the topic/subscriber/replay pattern
// the rest of this codebase uses for its internal watch topics.
package bus

import (
	"context"
	"time"
)

// Sample is one published value on a topic, tagged with the wall-clock time
// it was published.
type Sample struct {
	Topic       string
	Payload     any
	PublishedAt time.Time
}

// PublisherOptions configures a topic's replay and liveliness behavior.
type PublisherOptions struct {
	// HistoryDepth is how many past samples a new subscriber replays before
	// receiving live updates. Zero means no replay -- best-effort delivery
	// only, matching the bandwidth topic's "none, best-effort" policy.
	HistoryDepth int
	// HeartbeatInterval, if nonzero, causes Publisher.Publish to be called
	// internally on this cadence even without an explicit caller publish,
	// so subscribers can detect a silently-stalled publisher. Zero disables
	// the heartbeat.
	HeartbeatInterval time.Duration
}

// Publisher publishes samples to one topic.
type Publisher interface {
	// Publish delivers payload to every current subscriber and, if
	// HistoryDepth > 0, appends it to the topic's replay buffer.
	Publish(payload any) error
	// Close stops any heartbeat goroutine associated with this publisher.
	// It does not tear down the topic -- other publishers/subscribers on
	// the same topic name are unaffected.
	Close() error
}

// QueryHandler answers queries sent to a query topic.
type QueryHandler func(ctx context.Context, request any) (any, error)

// Session is the messaging fabric contract: declare publishers, subscribe
// to topics (with replay), register query handlers, issue queries, and
// declare liveliness tokens.
type Session interface {
	// DeclarePublisher returns a Publisher bound to topic, configured per
	// opts. Declaring the same topic twice returns independent Publisher
	// handles that share the same underlying topic state.
	DeclarePublisher(topic string, opts PublisherOptions) (Publisher, error)

	// Subscribe returns a channel of samples published on topic, preceded
	// by up to HistoryDepth replayed samples if the topic has any history.
	// The channel closes when ctx is done.
	Subscribe(ctx context.Context, topic string) (<-chan Sample, error)

	// RegisterQueryHandler binds handler to answer queries sent to topic.
	// Only one handler may be registered per topic at a time.
	RegisterQueryHandler(topic string, handler QueryHandler) error

	// Query sends request to topic and waits for a reply or for ctx to
	// expire. Returns a *tcproto.Error with kind QueryTimeout on timeout.
	Query(ctx context.Context, topic string, request any) (any, error)

	// DeclareLiveliness registers token as alive for the lifetime of ctx;
	// subscribers to the corresponding liveliness view observe it flip to
	// not-alive once ctx is done or the process exits uncleanly.
	DeclareLiveliness(ctx context.Context, token string) error

	// Close tears down the session: all subscriber channels close and all
	// query handlers are unregistered. Publishers are not closed by it; each
	// Publisher's own Close stops its heartbeat.
	Close() error
}

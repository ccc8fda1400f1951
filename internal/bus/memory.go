package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tcmesh/internal/check"
	"tcmesh/internal/tcproto"
)

const subscriberBufferCap = 128

// Memory is an in-process Session: every publish, subscribe, and query
// happens via Go channels and maps within this process. It is the
// transport BackendHost uses when no external messaging fabric is
// configured, and what every component's tests run against.
type Memory struct {
	mu     sync.Mutex
	topics map[string]*topicState

	handlersMu sync.Mutex
	handlers   map[string]QueryHandler

	liveMu sync.Mutex
	live   map[string]bool

	closed bool
}

type topicState struct {
	mu      sync.Mutex
	subs    map[uint64]chan Sample
	nextID  uint64
	replay  []Sample
	depth   int
}

// NewMemory constructs an empty in-process session.
func NewMemory() *Memory {
	return &Memory{
		topics:   make(map[string]*topicState),
		handlers: make(map[string]QueryHandler),
		live:     make(map[string]bool),
	}
}

func (m *Memory) topicFor(name string) *topicState {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topics[name]
	if !ok {
		t = &topicState{subs: make(map[uint64]chan Sample)}
		m.topics[name] = t
	}
	return t
}

// DeclarePublisher implements Session.
func (m *Memory) DeclarePublisher(topic string, opts PublisherOptions) (Publisher, error) {
	check.Assert(topic != "", "bus.Memory.DeclarePublisher: topic must not be empty")
	t := m.topicFor(topic)
	t.mu.Lock()
	t.depth = opts.HistoryDepth
	t.mu.Unlock()

	p := &memPublisher{topic: topic, state: t, stop: make(chan struct{})}
	if opts.HeartbeatInterval > 0 {
		p.wg.Add(1)
		go p.heartbeatLoop(opts.HeartbeatInterval)
	}
	return p, nil
}

// Subscribe implements Session.
func (m *Memory) Subscribe(ctx context.Context, topic string) (<-chan Sample, error) {
	check.Assert(topic != "", "bus.Memory.Subscribe: topic must not be empty")
	t := m.topicFor(topic)

	ch := make(chan Sample, subscriberBufferCap)
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	// Replay is queued under the topic lock, before the subscriber becomes
	// visible to publishers, so no live sample can overtake it.
	for _, s := range t.replay {
		select {
		case ch <- s:
		default:
		}
	}
	t.subs[id] = ch
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		if sub, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(sub)
		}
		t.mu.Unlock()
	}()

	return ch, nil
}

// RegisterQueryHandler implements Session.
func (m *Memory) RegisterQueryHandler(topic string, handler QueryHandler) error {
	check.Assert(handler != nil, "bus.Memory.RegisterQueryHandler: handler must not be nil")
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.handlers[topic] = handler
	return nil
}

// Query implements Session. Dispatch is synchronous and in-process; ctx
// cancellation is honored by racing the handler call against ctx.Done.
func (m *Memory) Query(ctx context.Context, topic string, request any) (any, error) {
	m.handlersMu.Lock()
	handler, ok := m.handlers[topic]
	m.handlersMu.Unlock()
	if !ok {
		return nil, tcproto.NewError(tcproto.QueryTimeout, fmt.Sprintf("no query handler registered for %q", topic), nil)
	}

	type result struct {
		resp any
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := handler(ctx, request)
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, tcproto.NewError(tcproto.QueryTimeout, "query timed out", ctx.Err())
	}
}

// DeclareLiveliness implements Session. The token is marked alive
// immediately and flips to not-alive once ctx is done, monotonically --
// once cleared, IsAlive never reports true again for that token without a
// fresh DeclareLiveliness call (a restart establishing a new identity).
func (m *Memory) DeclareLiveliness(ctx context.Context, token string) error {
	m.liveMu.Lock()
	m.live[token] = true
	m.liveMu.Unlock()

	go func() {
		<-ctx.Done()
		m.liveMu.Lock()
		m.live[token] = false
		m.liveMu.Unlock()
	}()
	return nil
}

// IsAlive reports the last-declared liveliness state of token. It exists
// for tests and for a health query handler to introspect peer liveliness.
func (m *Memory) IsAlive(token string) bool {
	m.liveMu.Lock()
	defer m.liveMu.Unlock()
	return m.live[token]
}

// Close implements Session.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, t := range m.topics {
		t.mu.Lock()
		for id, ch := range t.subs {
			delete(t.subs, id)
			close(ch)
		}
		t.mu.Unlock()
	}
	m.handlersMu.Lock()
	m.handlers = make(map[string]QueryHandler)
	m.handlersMu.Unlock()
	return nil
}

type memPublisher struct {
	topic string
	state *topicState

	mu       sync.Mutex
	last     any
	hasLast  bool
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func (p *memPublisher) Publish(payload any) error {
	p.mu.Lock()
	p.last = payload
	p.hasLast = true
	p.mu.Unlock()

	sample := Sample{Topic: p.topic, Payload: payload, PublishedAt: time.Now()}

	p.state.mu.Lock()
	if p.state.depth > 0 {
		p.state.replay = appendReplay(p.state.replay, sample, p.state.depth)
	}
	for _, sub := range p.state.subs {
		select {
		case sub <- sample:
		default:
		}
	}
	p.state.mu.Unlock()
	return nil
}

func (p *memPublisher) Close() error {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
	return nil
}

func (p *memPublisher) heartbeatLoop(interval time.Duration) {
	defer p.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			payload, ok := p.last, p.hasLast
			p.mu.Unlock()
			if ok {
				_ = p.Publish(payload)
			}
		}
	}
}

func appendReplay(replay []Sample, s Sample, depth int) []Sample {
	if len(replay) < depth {
		return append(replay, s)
	}
	copy(replay, replay[1:])
	replay[len(replay)-1] = s
	return replay
}

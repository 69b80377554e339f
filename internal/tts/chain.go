package tts

import (
	"container/list"
	"context"
	"log/slog"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/nadzzz/agrivoice/internal/fallback"
)

// Tier is one ranked speech strategy.
type Tier = fallback.Attempt[Request, *Delivery]

// Chain is one client's speech session.
type Chain struct {
	tiers   []Tier
	observe fallback.Observer

	// speakMu serializes Speak calls; mu guards the active session.
	speakMu sync.Mutex
	mu      sync.Mutex
	cancel  context.CancelFunc
	current Playback
}

// NewChain creates a chain that tries tiers in the given order.
func NewChain(observe fallback.Observer, tiers ...Tier) *Chain {
	return &Chain{tiers: tiers, observe: observe}
}

// Speak stops whatever this session is doing, then tries each tier once.
// A newer Speak or a Stop cancels an in-flight attempt.
func (c *Chain) Speak(ctx context.Context, req Request) (*Delivery, error) {
	if req.Text == "" {
		return nil, eris.New("tts: empty text")
	}
	c.Stop()

	c.speakMu.Lock()
	defer c.speakMu.Unlock()

	// A Speak queued behind another one must also silence what that one
	// started.
	c.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	d, tier, err := fallback.Run(ctx, req, c.observe, c.tiers...)
	if err != nil {
		return nil, eris.Wrap(err, "tts: speak")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		if d.Playback != nil {
			d.Playback.Stop()
		}
		return nil, eris.Wrap(ctx.Err(), "tts: superseded")
	}
	c.cancel = nil
	c.current = d.Playback
	slog.Debug("speech started", "tier", tier, "locale", d.Locale, "rate", d.Rate)
	return d, nil
}

// Stop cancels any in-flight attempt and silences the active stream.
func (c *Chain) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.current != nil {
		c.current.Stop()
		c.current = nil
	}
}

// Wait blocks until the active stream finishes or ctx is done.
func (c *Chain) Wait(ctx context.Context) error {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	if current == nil {
		return nil
	}
	select {
	case <-current.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sessions keeps one Chain per client, evicting the least recently used
// session (and silencing it) beyond max.
type Sessions struct {
	mu       sync.Mutex
	max      int
	newChain func() *Chain
	order    *list.List // front = most recent; values are *session
	byClient map[string]*list.Element
}

type session struct {
	client string
	chain  *Chain
}

// NewSessions creates a bounded session table. newChain builds the chain
// for a client seen for the first time.
func NewSessions(max int, newChain func() *Chain) *Sessions {
	if max <= 0 {
		max = 1024
	}
	return &Sessions{
		max:      max,
		newChain: newChain,
		order:    list.New(),
		byClient: make(map[string]*list.Element),
	}
}

// Get returns the client's chain, creating it if needed.
func (s *Sessions) Get(client string) *Chain {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.byClient[client]; ok {
		s.order.MoveToFront(el)
		return el.Value.(*session).chain
	}

	c := s.newChain()
	s.byClient[client] = s.order.PushFront(&session{client: client, chain: c})
	for s.order.Len() > s.max {
		oldest := s.order.Back()
		old := oldest.Value.(*session)
		s.order.Remove(oldest)
		delete(s.byClient, old.client)
		old.chain.Stop()
		slog.Debug("speech session evicted", "client_id", old.client)
	}
	return c
}

// Speak speaks req in the client's session.
func (s *Sessions) Speak(ctx context.Context, client string, req Request) (*Delivery, error) {
	return s.Get(client).Speak(ctx, req)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// StopAll silences every session.
func (s *Sessions) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for el := s.order.Front(); el != nil; el = el.Next() {
		el.Value.(*session).chain.Stop()
	}
}

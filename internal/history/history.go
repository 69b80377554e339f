// Package history is the in-memory conversation log.
//
// Entries are appended per client and never edited. Each client keeps at
// most a fixed number of entries, and the log keeps at most a fixed number
// of clients, dropping the least recently active one. Nothing is persisted.
package history

import (
	"container/list"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nadzzz/agrivoice/internal/message"
)

const (
	defaultPerClient  = 200
	defaultMaxClients = 1024
)

// Log is safe for concurrent use.
type Log struct {
	mu         sync.Mutex
	perClient  int
	maxClients int
	order      *list.List // front = most recently appended; values are *thread
	byClient   map[string]*list.Element
	now        func() time.Time
}

type thread struct {
	client  string
	entries []message.Entry
}

// New creates a log keeping up to perClient entries for each of up to
// maxClients clients. Non-positive values select the defaults.
func New(perClient, maxClients int) *Log {
	if perClient <= 0 {
		perClient = defaultPerClient
	}
	if maxClients <= 0 {
		maxClients = defaultMaxClients
	}
	return &Log{
		perClient:  perClient,
		maxClients: maxClients,
		order:      list.New(),
		byClient:   make(map[string]*list.Element),
		now:        time.Now,
	}
}

// Append records one displayed entry.
func (l *Log) Append(client string, role message.Role, text string) message.Entry {
	e := message.Entry{Role: role, Text: text, At: l.now()}
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.byClient[client]
	if ok {
		l.order.MoveToFront(el)
	} else {
		el = l.order.PushFront(&thread{client: client})
		l.byClient[client] = el
		for l.order.Len() > l.maxClients {
			oldest := l.order.Back()
			l.order.Remove(oldest)
			delete(l.byClient, oldest.Value.(*thread).client)
			slog.Debug("conversation log evicted", "client_id", oldest.Value.(*thread).client)
		}
	}

	th := el.Value.(*thread)
	th.entries = append(th.entries, e)
	if over := len(th.entries) - l.perClient; over > 0 {
		th.entries = slices.Clone(th.entries[over:])
	}
	return e
}

// Entries returns a copy of the client's log, oldest first.
func (l *Log) Entries(client string) []message.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	el, ok := l.byClient[client]
	if !ok {
		return nil
	}
	return slices.Clone(el.Value.(*thread).entries)
}

// Clients returns the number of clients with a log.
func (l *Log) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

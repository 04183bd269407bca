package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many messages a subscriber may fall behind before
	// it is dropped.
	sendBuffer = 16
)

// Conn is the part of *websocket.Conn the manager writes through.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type subscriber struct {
	conn Conn
	send chan []byte
	done chan struct{}
}

// writeLoop is the only goroutine writing to conn.
func (s *subscriber) writeLoop(m *Manager, id string) {
	for {
		select {
		case <-s.done:
			return
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				m.Unregister(id)
				return
			}
		}
	}
}

// Manager keeps track of UI clients subscribed to the live reading feed.
// Broadcast never waits on a subscriber's socket.
type Manager struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
}

func NewManager() *Manager {
	return &Manager{subscribers: make(map[string]*subscriber)}
}

// Register adds a connection and returns the id it was filed under.
func (m *Manager) Register(conn Conn) string {
	id := uuid.NewString()
	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	m.mu.Lock()
	m.subscribers[id] = sub
	m.mu.Unlock()

	go sub.writeLoop(m, id)
	return id
}

// Unregister closes and forgets a subscriber. Unknown ids are ignored.
func (m *Manager) Unregister(id string) {
	m.mu.Lock()
	sub, ok := m.subscribers[id]
	delete(m.subscribers, id)
	m.mu.Unlock()
	if ok {
		close(sub.done)
		_ = sub.conn.Close()
	}
}

// Broadcast queues payload for every subscriber and returns how many
// accepted it. Subscribers whose queue is full are dropped.
func (m *Manager) Broadcast(payload []byte) int {
	var lagging []string
	sent := 0

	m.mu.RLock()
	for id, sub := range m.subscribers {
		select {
		case sub.send <- payload:
			sent++
		default:
			lagging = append(lagging, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range lagging {
		m.Unregister(id)
	}
	return sent
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers)
}

// List returns a copy of current subscriber ids.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.subscribers))
	for id := range m.subscribers {
		ids = append(ids, id)
	}
	return ids
}

// CloseAll disconnects every subscriber, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	subs := m.subscribers
	m.subscribers = make(map[string]*subscriber)
	m.mu.Unlock()
	for _, sub := range subs {
		close(sub.done)
		_ = sub.conn.Close()
	}
}

package history

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian/internal/models"
)

// Client represents a connected WebSocket client.
type Client struct {
	id     uuid.UUID
	orgID  uuid.UUID
	conn   *websocket.Conn
	send   chan *models.HistoryEntry
	feed   *Feed
	filter *ClientFilter
	mu     sync.Mutex
}

// ClientFilter holds the filter preferences for a connected client.
type ClientFilter struct {
	EntityTypes []models.HistoryEntityType `json:"entity_types,omitempty"`
	Actions     []models.HistoryAction     `json:"actions,omitempty"`
}

// Matches checks if an entry matches the client's filter.
func (f *ClientFilter) Matches(entry *models.HistoryEntry) bool {
	if f == nil {
		return true
	}

	if len(f.EntityTypes) > 0 {
		found := false
		for _, t := range f.EntityTypes {
			if t == entry.EntityType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if a == entry.Action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// FeedConfig holds configuration for the Feed.
type FeedConfig struct {
	// PingInterval is how often to send ping messages to clients.
	PingInterval time.Duration
	// WriteTimeout is the timeout for writing to a client.
	WriteTimeout time.Duration
	// ReadTimeout is the timeout for reading from a client.
	ReadTimeout time.Duration
	// MaxMessageSize is the maximum size of a message from a client.
	MaxMessageSize int64
	// SendBufferSize is the size of the send buffer per client.
	SendBufferSize int
}

// DefaultFeedConfig returns a FeedConfig with sensible defaults.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		MaxMessageSize: 512,
		SendBufferSize: 256,
	}
}

// Feed broadcasts committed history entries to connected clients, scoped
// by organization. Persistence happens upstream in the store transactions;
// the feed only fans out.
type Feed struct {
	config   FeedConfig
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	clients    map[uuid.UUID]*Client
	clientsMu  sync.RWMutex
	orgClients map[uuid.UUID]map[uuid.UUID]*Client // orgID -> clientID -> client

	broadcast  chan *models.HistoryEntry
	register   chan *Client
	unregister chan *Client

	done chan struct{}
	wg   sync.WaitGroup
}

// NewFeed creates a new Feed with the given configuration.
func NewFeed(cfg FeedConfig, logger zerolog.Logger) *Feed {
	return &Feed{
		config: cfg,
		logger: logger.With().Str("component", "history_feed").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:    make(map[uuid.UUID]*Client),
		orgClients: make(map[uuid.UUID]map[uuid.UUID]*Client),
		broadcast:  make(chan *models.HistoryEntry, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Start begins processing entries and client management.
func (f *Feed) Start() {
	f.wg.Add(1)
	go f.run()
	f.logger.Info().Msg("history feed started")
}

// Stop stops the feed and closes all client connections.
func (f *Feed) Stop() {
	close(f.done)
	f.wg.Wait()
	f.logger.Info().Msg("history feed stopped")
}

func (f *Feed) run() {
	defer f.wg.Done()

	for {
		select {
		case <-f.done:
			f.closeAllClients()
			return

		case client := <-f.register:
			f.addClient(client)

		case client := <-f.unregister:
			f.removeClient(client)

		case entry := <-f.broadcast:
			f.broadcastEntry(entry)
		}
	}
}

func (f *Feed) addClient(client *Client) {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()

	f.clients[client.id] = client

	if _, ok := f.orgClients[client.orgID]; !ok {
		f.orgClients[client.orgID] = make(map[uuid.UUID]*Client)
	}
	f.orgClients[client.orgID][client.id] = client

	f.logger.Debug().
		Str("client_id", client.id.String()).
		Str("org_id", client.orgID.String()).
		Msg("client connected")
}

func (f *Feed) removeClient(client *Client) {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()

	if _, ok := f.clients[client.id]; !ok {
		return
	}

	delete(f.clients, client.id)

	if orgClients, ok := f.orgClients[client.orgID]; ok {
		delete(orgClients, client.id)
		if len(orgClients) == 0 {
			delete(f.orgClients, client.orgID)
		}
	}

	close(client.send)

	f.logger.Debug().
		Str("client_id", client.id.String()).
		Str("org_id", client.orgID.String()).
		Msg("client disconnected")
}

func (f *Feed) closeAllClients() {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()

	for _, client := range f.clients {
		close(client.send)
	}
	f.clients = make(map[uuid.UUID]*Client)
	f.orgClients = make(map[uuid.UUID]map[uuid.UUID]*Client)
}

// broadcastEntry sends an entry to all clients in the same organization.
func (f *Feed) broadcastEntry(entry *models.HistoryEntry) {
	f.clientsMu.RLock()
	orgClients := f.orgClients[entry.OrgID]
	f.clientsMu.RUnlock()

	for _, client := range orgClients {
		client.mu.Lock()
		matched := client.filter.Matches(entry)
		client.mu.Unlock()
		if matched {
			select {
			case client.send <- entry:
			default:
				// Client's send buffer is full, skip
				f.logger.Warn().
					Str("client_id", client.id.String()).
					Msg("client send buffer full, dropping entry")
			}
		}
	}
}

// Publish fans out an already-committed history entry. It never blocks the
// mutation path: if the broadcast buffer is full the entry is dropped from
// the live feed (it remains readable via List).
func (f *Feed) Publish(entry *models.HistoryEntry) {
	select {
	case f.broadcast <- entry:
	default:
		f.logger.Warn().Msg("broadcast buffer full, dropping entry")
	}
}

// HandleWebSocket handles a WebSocket connection upgrade and client management.
func (f *Feed) HandleWebSocket(w http.ResponseWriter, r *http.Request, orgID uuid.UUID) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	client := &Client{
		id:     uuid.New(),
		orgID:  orgID,
		conn:   conn,
		send:   make(chan *models.HistoryEntry, f.config.SendBufferSize),
		feed:   f,
		filter: &ClientFilter{},
	}

	f.register <- client

	go client.writePump()
	go client.readPump()
}

// ClientCount returns the number of connected clients for an organization.
func (f *Feed) ClientCount(orgID uuid.UUID) int {
	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()

	if orgClients, ok := f.orgClients[orgID]; ok {
		return len(orgClients)
	}
	return 0
}

// readPump reads messages from the client.
func (c *Client) readPump() {
	defer func() {
		c.feed.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.feed.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.feed.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.feed.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.feed.logger.Debug().Err(err).Msg("websocket read error")
			}
			break
		}

		// Parse filter update message
		var filterUpdate struct {
			Type   string       `json:"type"`
			Filter ClientFilter `json:"filter"`
		}
		if err := json.Unmarshal(message, &filterUpdate); err == nil && filterUpdate.Type == "filter" {
			c.mu.Lock()
			c.filter = &filterUpdate.Filter
			c.mu.Unlock()
		}
	}
}

// writePump writes messages to the client.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.feed.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case entry, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.feed.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			data, _ := json.Marshal(entry)
			w.Write(data)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.feed.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

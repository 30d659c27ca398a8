// Package websockets pushes upload events to connected admin clients,
// scoped to their organization.
package websockets

import (
	"sync"

	"server/config"
	"server/internal/database"
	"server/internal/events"
	"server/internal/logger"
	"server/internal/models"

	"github.com/gofiber/websocket/v2"
)

type Manager struct {
	log logger.Logger

	mu          sync.Mutex
	connections map[*websocket.Conn]string // conn -> organization id
}

func New(db database.DB, eventBus *events.EventBus, config config.Config) (*Manager, error) {
	manager := &Manager{
		log:         logger.New("websockets"),
		connections: make(map[*websocket.Conn]string),
	}

	eventBus.Subscribe(events.ChannelVoterUpload, manager.broadcast)

	return manager, nil
}

// HandleWebSocket owns the connection for its lifetime. The auth middleware
// has already placed the admin user in locals.
func (m *Manager) HandleWebSocket(conn *websocket.Conn) {
	log := m.log.Function("HandleWebSocket")

	admin, ok := conn.Locals("admin").(*models.AdminUser)
	if !ok || admin == nil {
		log.Warn("websocket connection without admin user, closing")
		_ = conn.Close()
		return
	}

	m.mu.Lock()
	m.connections[conn] = admin.OrganizationID
	m.mu.Unlock()

	log.Info("Admin client connected", "organizationID", admin.OrganizationID)

	defer func() {
		m.mu.Lock()
		delete(m.connections, conn)
		m.mu.Unlock()
		_ = conn.Close()
	}()

	// Clients only listen; the read loop just detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (m *Manager) broadcast(event events.Event) {
	log := m.log.Function("broadcast")

	m.mu.Lock()
	defer m.mu.Unlock()

	for conn, organizationID := range m.connections {
		if event.OrganizationID != "" && event.OrganizationID != organizationID {
			continue
		}
		if err := conn.WriteJSON(event); err != nil {
			log.Warn("failed to write event to client", "error", err)
			delete(m.connections, conn)
			_ = conn.Close()
		}
	}
}

package events

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Event is the (action, entity, outcome) record emitted on every payment
// mutation. External audit collaborators subscribe over the websocket feed;
// nothing here is persisted.
type Event struct {
	Action   string    `json:"action"`
	Entity   string    `json:"entity"`
	EntityID string    `json:"entity_id"`
	Outcome  string    `json:"outcome"`
	At       time.Time `json:"at"`
}

type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
}

var clients = make(map[uuid.UUID]*websocket.Conn)
var clientsMu sync.RWMutex
var Register = make(chan *Client)
var Unregister = make(chan *Client)
var broadcast = make(chan Event, 64)

// Publish never blocks the caller; when the feed is saturated the event is
// dropped and logged.
func Publish(action, entity, entityID, outcome string) {
	evt := Event{Action: action, Entity: entity, EntityID: entityID, Outcome: outcome, At: time.Now()}
	select {
	case broadcast <- evt:
	default:
		log.Printf("⚠️ Event feed saturated, dropping event %s/%s", action, entityID)
	}
}

func RunHub() {
	for {
		select {
		case client := <-Register:
			log.Printf("Feed client registered: %s", client.UserID)
			clientsMu.Lock()
			clients[client.UserID] = client.Conn
			clientsMu.Unlock()
		case client := <-Unregister:
			log.Printf("Feed client unregistered: %s", client.UserID)
			clientsMu.Lock()
			if conn, ok := clients[client.UserID]; ok && conn == client.Conn {
				delete(clients, client.UserID)
			}
			clientsMu.Unlock()
		case evt := <-broadcast:
			clientsMu.RLock()
			var stale []uuid.UUID
			for userID, conn := range clients {
				if err := conn.WriteJSON(evt); err != nil {
					log.Printf("Error sending event to client %s: %v", userID, err)
					conn.Close()
					stale = append(stale, userID)
				}
			}
			clientsMu.RUnlock()
			if len(stale) > 0 {
				clientsMu.Lock()
				for _, userID := range stale {
					delete(clients, userID)
				}
				clientsMu.Unlock()
			}
		}
	}
}

package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/kevinmwangi/nyumbani/events"
)

// RequireWebsocketUpgrade rejects plain HTTP requests on the feed route.
func RequireWebsocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// PaymentFeedSocket streams payment audit events to a connected admin client.
func PaymentFeedSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		token, ok := conn.Locals("user").(*jwt.Token)
		if !ok {
			conn.Close()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			conn.Close()
			return
		}
		idStr, _ := claims["user_id"].(string)
		userID, err := uuid.Parse(idStr)
		if err != nil {
			conn.Close()
			return
		}

		client := &events.Client{UserID: userID, Conn: conn}
		events.Register <- client
		defer func() {
			events.Unregister <- client
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}

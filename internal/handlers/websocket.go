package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"plinko-backend/internal/models"
	"plinko-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler pushes settlement results to the connected player and
// jackpot announcements to everyone. It implements services.Broadcaster;
// the engine calls it only after the account lock is released.
type WebSocketHandler struct {
	accounts *services.RedisService
	hub      *WebSocketHub
}

type WebSocketHub struct {
	clients    map[string]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	UserID string
	Conn   *websocket.Conn
}

type Message struct {
	Type   string      `json:"type"`
	UserID string      `json:"user_id,omitempty"`
	Data   interface{} `json:"data"`
}

func NewWebSocketHandler(accounts *services.RedisService) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run()

	return &WebSocketHandler{
		accounts: accounts,
		hub:      hub,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("failed to upgrade to WebSocket")
		return
	}

	client := &Client{UserID: userID, Conn: conn}
	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendBalance(c, client)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Debug("websocket read error")
			}
			break
		}
		if msg.Type == "PING" {
			client.Conn.WriteJSON(Message{Type: "PONG", Data: gin.H{"timestamp": time.Now().Unix()}})
		}
	}
}

func (h *WebSocketHandler) sendBalance(c *gin.Context, client *Client) {
	acct, err := h.accounts.GetAccount(c.Request.Context(), client.UserID)
	if err != nil {
		log.WithError(err).Debug("failed to get account for WS")
		return
	}

	client.Conn.WriteJSON(Message{
		Type: "BALANCE_UPDATE",
		Data: gin.H{
			"balance":          acct.Balance,
			"cumulative_wins":  acct.CumulativeWins,
			"jackpot_unlocked": acct.JackpotUnlocked,
		},
	})
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.add(client)

		case client := <-hub.unregister:
			hub.remove(client)

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

func (hub *WebSocketHub) add(client *Client) {
	hub.clients[client.UserID] = client.Conn
}

// remove drops the mapping only while it still points at the departing
// connection; a reconnect that already replaced it keeps receiving pushes.
func (hub *WebSocketHub) remove(client *Client) {
	if conn, ok := hub.clients[client.UserID]; ok && conn == client.Conn {
		delete(hub.clients, client.UserID)
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	if message.UserID != "" {
		if conn, ok := hub.clients[message.UserID]; ok {
			conn.WriteJSON(message)
		}
		return
	}
	for _, conn := range hub.clients {
		conn.WriteJSON(message)
	}
}

func (h *WebSocketHandler) BroadcastPlayResult(userID string, result *models.PlayResult) {
	select {
	case h.hub.broadcast <- &Message{Type: "PLAY_RESULT", UserID: userID, Data: result}:
	default:
		// Hub backed up; dropping a push beats blocking a settlement.
	}
}

func (h *WebSocketHandler) BroadcastJackpot(username string, amount int64) {
	select {
	case h.hub.broadcast <- &Message{
		Type: "JACKPOT",
		Data: gin.H{"username": username, "amount": amount, "timestamp": time.Now().Unix()},
	}:
	default:
	}
}

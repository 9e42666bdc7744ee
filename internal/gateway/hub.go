package gateway

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client 一条已认证的 websocket 连接
type Client struct {
	ID     string
	UserID int64

	conn *websocket.Conn
	mu   sync.Mutex // gorilla 的 WriteJSON 不允许并发写
}

func NewClient(id string, userID int64, conn *websocket.Conn) *Client {
	return &Client{ID: id, UserID: userID, conn: conn}
}

// Send 线程安全地写一帧 JSON
func (c *Client) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Hub 本进程内的连接注册表
// 同一用户只保留最新的一条连接，旧连接被顶掉时直接关闭
type Hub struct {
	mu     sync.RWMutex
	byUser map[int64]*Client
	byConn map[string]int64
}

func NewHub() *Hub {
	return &Hub{
		byUser: make(map[int64]*Client),
		byConn: make(map[string]int64),
	}
}

// Register 登记连接，返回被顶掉的旧连接（可能为 nil）
func (h *Hub) Register(client *Client) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	old := h.byUser[client.UserID]
	if old != nil {
		delete(h.byConn, old.ID)
	}
	h.byUser[client.UserID] = client
	h.byConn[client.ID] = client.UserID
	return old
}

// Unregister 注销连接，只有 connID 仍然匹配时才摘除
func (h *Hub) Unregister(userID int64, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.byUser[userID]
	if !ok || current.ID != connID {
		return
	}
	delete(h.byUser, userID)
	delete(h.byConn, connID)
}

// Get 取某个用户当前的连接
func (h *Hub) Get(userID int64) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.byUser[userID]
	return client, ok
}

// HasConn 某个连接ID是否还活着
func (h *Hub) HasConn(connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.byConn[connID]
	return ok
}

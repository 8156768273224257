package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"backend/internal/guard"
	"backend/internal/model"
	"backend/internal/permission"
	"backend/internal/session"
)

// navigateMessage is what a shell sends when the user follows a link.
// Seq increases per tab; replies carry it back so the shell can drop
// answers to navigations it has already abandoned.
type navigateMessage struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	Path string `json:"path"`
}

type decisionMessage struct {
	Type     string                 `json:"type"`
	Seq      uint64                 `json:"seq"`
	Path     string                 `json:"path"`
	Allowed  bool                   `json:"allowed"`
	Reason   string                 `json:"reason,omitempty"`
	Redirect string                 `json:"redirect,omitempty"`
	Menu     []permission.MenuEntry `json:"menu,omitempty"`
	After    int                    `json:"redirect_after,omitempty"`
}

// Client is one connected navigation shell (one browser tab).
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	eval   *permission.Evaluator
	audit  guard.Recorder
	logger *zap.Logger

	sess   *model.Session
	userID uuid.UUID
	role   model.Role

	mu      sync.Mutex
	lastSeq uint64
	pending *guard.RedirectTimer
}

// writePump handles writing messages from the Hub to the connection
func (c *Client) writePump() {
	defer func() {
		_ = c.conn.Close()
	}()
	for message := range c.send {
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(message)

		// Fast track writing queued messages
		n := len(c.send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-c.send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump pumps navigation requests from the connection to the evaluator
func (c *Client) readPump() {
	defer func() {
		c.cancelPending()
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("shell read", zap.Error(err))
			}
			break
		}

		var msg navigateMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "navigate":
			c.handleNavigate(msg)
		case "cancel_redirect":
			c.cancelPending()
		}
	}
}

func (c *Client) handleNavigate(msg navigateMessage) {
	c.mu.Lock()
	if msg.Seq <= c.lastSeq {
		// A newer navigation already superseded this one.
		c.mu.Unlock()
		return
	}
	c.lastSeq = msg.Seq
	c.mu.Unlock()

	c.cancelPending()

	d := c.eval.Decide(c.role, msg.Path)
	reply := decisionMessage{
		Type:     "decision",
		Seq:      msg.Seq,
		Path:     c.eval.ResolvePath(c.role, msg.Path),
		Allowed:  d.Allowed,
		Reason:   d.Reason,
		Redirect: d.Redirect,
	}
	if d.Allowed {
		reply.Menu = permission.MenuForRole(c.eval, c.role)
	} else {
		reply.After = guard.RedirectDelaySeconds
		if c.audit != nil {
			c.audit.RecordDenied(context.Background(), c.sess, msg.Path, d.Reason)
		}
	}
	c.push(reply)

	if !d.Allowed && d.Redirect != "" {
		seq := msg.Seq
		target := d.Redirect
		timer := guard.NewRedirectTimer(guard.RedirectDelaySeconds*time.Second, func() {
			c.push(decisionMessage{Type: "redirect", Seq: seq, Path: target})
		})
		c.mu.Lock()
		c.pending = timer
		c.mu.Unlock()
	}
}

func (c *Client) cancelPending() {
	c.mu.Lock()
	timer := c.pending
	c.pending = nil
	c.mu.Unlock()
	if timer != nil {
		timer.Cancel()
	}
}

func (c *Client) push(msg decisionMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// ServeShell upgrades a navigation-shell connection. The access token
// arrives as a query parameter because browsers cannot set headers on
// websocket dials.
func ServeShell(hub *Hub, eval *permission.Evaluator, auth session.Authenticator, audit guard.Recorder, logger *zap.Logger, c *gin.Context) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tokenString := c.Query("token")
	if tokenString == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	sess, err := auth.Validate(tokenString)
	if err != nil {
		logger.Debug("shell rejected", zap.Error(err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if !sess.Role.Valid() {
		if audit != nil {
			audit.RecordUnknownRole(c.Request.Context(), sess, c.Request.URL.Path)
		}
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("shell upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		eval:   eval,
		audit:  audit,
		logger: logger,
		sess:   sess,
		userID: sess.UserID,
		role:   sess.Role,
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

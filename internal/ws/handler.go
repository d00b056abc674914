// Package ws serves danmu over a websocket: inbound frames post captions,
// outbound frames deliver the live subscription for the video.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"vidhub/internal/auth"
	"vidhub/internal/danmu"
	"vidhub/pkg/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

type client struct {
	conn        *websocket.Conn
	send        <-chan models.DanmuMessage
	cancel      context.CancelFunc
	broadcaster *danmu.Broadcaster
	videoID     string
	username    string
	log         *logrus.Entry
}

// HandleDanmu upgrades the connection and wires both pumps. The identity
// comes from an optional bearer token (set by auth.OptionalJWT) and is
// anonymous otherwise.
func HandleDanmu(b *danmu.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		videoID := c.Param("id")

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logrus.WithError(err).Warn("websocket upgrade failed")
			return
		}

		username := c.GetString(auth.CtxUsernameKey)

		ctx, cancel := context.WithCancel(context.Background())
		cl := &client{
			conn:        conn,
			send:        b.Subscribe(ctx, videoID),
			cancel:      cancel,
			broadcaster: b,
			videoID:     videoID,
			username:    username,
			log:         logrus.WithFields(logrus.Fields{"component": "ws", "video": videoID}),
		}

		go cl.readPump()
		go cl.writePump()
	}
}

// readPump receives caption posts from the client. Its exit cancels the
// subscription, which in turn ends writePump.
func (c *client) readPump() {
	defer func() {
		c.cancel()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("websocket read")
			}
			return
		}

		var post struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(messageBytes, &post); err != nil {
			c.log.WithError(err).Warn("bad danmu frame")
			continue
		}
		if err := c.broadcaster.Post(c.videoID, post.Text, c.username); err != nil {
			c.log.WithError(err).Debug("danmu post rejected")
		}
	}
}

// writePump delivers the subscription and keeps the connection alive with
// pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

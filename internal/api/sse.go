package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/pokerjest/showshelf/internal/event"
)

// Events streams bus events to the browser as Server-Sent Events.
func (h *Handler) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	clientChan := make(chan event.Event, 32)

	// 非阻塞发送，避免慢客户端阻塞总线
	bridgeHandler := func(e event.Event) {
		select {
		case clientChan <- e:
		default:
		}
	}

	subIDs := make(map[event.EventType]string)
	for _, t := range event.Topics() {
		subIDs[t] = h.bus.Subscribe(t, bridgeHandler)
	}
	defer func() {
		for t, id := range subIDs {
			h.bus.Unsubscribe(t, id)
		}
		h.log.Debug("SSE client disconnected")
	}()

	c.SSEvent("message", "connected")
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case evt := <-clientChan:
			data, err := json.Marshal(evt.Payload)
			if err != nil {
				h.log.Warn("SSE marshal failed", "error", err)
				continue
			}
			// 事件名即为 Topic
			c.SSEvent(string(evt.Type), string(data))
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}

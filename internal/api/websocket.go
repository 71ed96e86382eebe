package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/fleetpredict/fleetpredict-go/internal/errors"
	"github.com/fleetpredict/fleetpredict-go/internal/logger"
)

const (
	// closeInvalidToken is the close code sent when the ingest token is
	// missing or wrong.
	closeInvalidToken = 4001

	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// upgrader accepts cross-origin connections; vehicle gateways and the
// dashboard run on different hosts than the API.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ingestAck is the per-message reply on the ingest socket.
type ingestAck struct {
	OK    bool   `json:"ok"`
	Ack   bool   `json:"ack,omitempty"`
	Error string `json:"error,omitempty"`
}

// TelemetryIngestSocket accepts a stream of telemetry payloads. Each
// message is answered with an ack or an error; a rejected payload keeps
// the connection open.
func (c *Controller) TelemetryIngestSocket(ctx echo.Context) error {
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if token := c.deps.Settings.Server.TelemetryToken; token != "" {
		if ctx.QueryParam("token") != token {
			msg := websocket.FormatCloseMessage(closeInvalidToken, "invalid token")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
			return nil
		}
	}

	conn.SetReadLimit(maxPayloadBytes)
	reqCtx := ctx.Request().Context()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logErrorIfEnabled("ingest socket closed unexpectedly", logger.Error(err))
			}
			return nil
		}

		ack := ingestAck{OK: true, Ack: true}
		if _, err := c.ingest(reqCtx, data); err != nil {
			var rej *ingestError
			if errors.As(err, &rej) {
				ack = ingestAck{OK: false, Error: rej.message}
			} else {
				c.logErrorIfEnabled("telemetry ingest failed", logger.Error(err))
				ack = ingestAck{OK: false, Error: "internal error"}
			}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(ack); err != nil {
			return nil
		}
	}
}

// TelemetrySubscribeSocket streams accepted readings for one vehicle to
// the client as JSON messages.
func (c *Controller) TelemetrySubscribeSocket(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid vehicle ID"})
	}

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := c.deps.Hub.Subscribe(id)
	defer sub.Close()

	if c.deps.Metrics != nil {
		c.deps.Metrics.WebsocketClients.Inc()
		defer c.deps.Metrics.WebsocketClients.Dec()
	}

	// Reader goroutine: drives pong handling and signals client close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(maxPayloadBytes)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case payload, ok := <-sub.C:
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-done:
			return nil
		case <-ctx.Request().Context().Done():
			return nil
		}
	}
}

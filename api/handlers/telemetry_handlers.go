package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"fusionguard/core/telemetry"
	"fusionguard/core/utils"

	"github.com/gorilla/websocket"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamPongWait     = 60 * time.Second
	streamPingPeriod   = streamPongWait * 9 / 10
)

// FeedSource is the server-wide feed backing the snapshot and events
// endpoints.
type FeedSource interface {
	Poll(ctx context.Context) telemetry.Snapshot
	Events() []telemetry.Event
}

type StreamFrame struct {
	Snapshot telemetry.Snapshot `json:"snapshot"`
	Nodes    []telemetry.Node   `json:"nodes"`
	Events   []telemetry.Event  `json:"events"`
}

type TelemetryHandler struct {
	ambient  FeedSource
	newFeed  func() *telemetry.Feed
	upgrader websocket.Upgrader
	streams  atomic.Int64
	logger   *utils.Logger

	// life ends every open stream when cancelled.
	life    context.Context
	endLife context.CancelFunc
}

func NewTelemetryHandler(ambient FeedSource, newFeed func() *telemetry.Feed, logger *utils.Logger) *TelemetryHandler {
	life, endLife := context.WithCancel(context.Background())
	return &TelemetryHandler{
		life:    life,
		endLife: endLife,
		ambient: ambient,
		newFeed: newFeed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger,
	}
}

func (h *TelemetryHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.ambient.Poll(r.Context())
	writeJSON(w, http.StatusOK, StreamFrame{Snapshot: snap, Nodes: snap.Nodes(), Events: []telemetry.Event{}})
}

func (h *TelemetryHandler) Events(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": h.ambient.Events()})
}

// CloseStreams stops the feed of every open stream and makes later streams
// close right after the upgrade. http.Server.Shutdown leaves hijacked
// connections alone, so the server calls this on shutdown.
func (h *TelemetryHandler) CloseStreams() {
	h.endLife()
}

// ActiveStreams is the number of connected dashboard streams.
func (h *TelemetryHandler) ActiveStreams() int {
	return int(h.streams.Load())
}

// Stream upgrades to a websocket and pushes one frame per tick from a feed
// owned by this connection. The feed stops when the client goes away or the
// server shuts down.
func (h *TelemetryHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("telemetry stream upgrade: %v", err)
		return
	}
	defer conn.Close()
	h.streams.Add(1)
	defer h.streams.Add(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer context.AfterFunc(h.life, cancel)()
	go h.readUntilClosed(conn, cancel)

	feed := h.newFeed()
	lastPing := time.Now()
	err = feed.Run(ctx, func(snap telemetry.Snapshot) error {
		now := time.Now()
		if now.Sub(lastPing) >= streamPingPeriod {
			lastPing = now
			if err := conn.WriteControl(websocket.PingMessage, nil, now.Add(streamWriteTimeout)); err != nil {
				return err
			}
		}
		_ = conn.SetWriteDeadline(now.Add(streamWriteTimeout))
		return conn.WriteJSON(StreamFrame{Snapshot: snap, Nodes: snap.Nodes(), Events: feed.Events()})
	})
	if h.life.Err() != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(time.Second))
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		h.logger.Printf("telemetry stream closed: %v", err)
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// readUntilClosed drains client frames so close and pong control messages
// are processed, and cancels the stream once the peer is gone.
func (h *TelemetryHandler) readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	}
}

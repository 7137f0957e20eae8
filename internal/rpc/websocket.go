package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yieldprotocol/principald/internal/journal"
)

// WebSocketServer pushes committed redemption records to subscribed
// connections and answers the same methods as the HTTP server.
type WebSocketServer struct {
	upgrader         websocket.Upgrader
	registry         *MethodRegistry
	services         *Services
	connections      map[string]*WebSocketConnection
	connectionsMutex sync.RWMutex
}

// WebSocketConnection represents a single WebSocket connection.
type WebSocketConnection struct {
	ID           string
	conn         *websocket.Conn
	subscribed   bool
	sendChannel  chan []byte
	closeChannel chan struct{}
	mutex        sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewWebSocketServer creates a WebSocket server sharing the HTTP
// server's method registry.
func NewWebSocketServer(services *Services) *WebSocketServer {
	ws := &WebSocketServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		registry:    NewMethodRegistry(),
		services:    services,
		connections: make(map[string]*WebSocketConnection),
	}

	server := &Server{registry: ws.registry, services: services}
	server.registerAllMethods()

	return ws
}

// ServeHTTP handles WebSocket upgrade requests.
func (ws *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.services.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())

	wsConn := &WebSocketConnection{
		ID:           generateConnectionID(),
		conn:         conn,
		sendChannel:  make(chan []byte, 256),
		closeChannel: make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}

	ws.connectionsMutex.Lock()
	ws.connections[wsConn.ID] = wsConn
	ws.connectionsMutex.Unlock()

	go ws.handleConnection(wsConn)
	go ws.handleSend(wsConn)
}

func (ws *WebSocketServer) handleConnection(wsConn *WebSocketConnection) {
	defer ws.closeConnection(wsConn)

	wsConn.conn.SetReadLimit(64 * 1024)
	wsConn.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	wsConn.conn.SetPongHandler(func(string) error {
		wsConn.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-wsConn.ctx.Done():
			return
		default:
			_, message, err := wsConn.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					ws.services.Log.WithError(err).Debug("websocket read error")
				}
				return
			}

			ws.handleMessage(wsConn, message)
		}
	}
}

func (ws *WebSocketServer) handleSend(wsConn *WebSocketConnection) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-wsConn.ctx.Done():
			return
		case <-wsConn.closeChannel:
			return
		case <-ticker.C:
			wsConn.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := wsConn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case message := <-wsConn.sendChannel:
			wsConn.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := wsConn.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one command. The command and id sit at the
// top level; everything else is passed through as method params.
func (ws *WebSocketServer) handleMessage(wsConn *WebSocketConnection, message []byte) {
	var cmdMap map[string]interface{}
	if err := json.Unmarshal(message, &cmdMap); err != nil {
		ws.sendError(wsConn, RpcErrorInvalidParams("Invalid JSON: "+err.Error()), nil)
		return
	}

	command, ok := cmdMap["command"].(string)
	if !ok || command == "" {
		ws.sendError(wsConn, NewRpcError(RpcMISSING_COMMAND, "missingCommand", "Missing command field"), nil)
		return
	}

	id := cmdMap["id"]
	delete(cmdMap, "command")
	delete(cmdMap, "id")

	switch command {
	case "subscribe":
		ws.handleSubscribe(wsConn, id, true)
		return
	case "unsubscribe":
		ws.handleSubscribe(wsConn, id, false)
		return
	}

	var params json.RawMessage
	if len(cmdMap) > 0 {
		paramsBytes, _ := json.Marshal(cmdMap)
		params = paramsBytes
	}

	rpcCtx := &RpcContext{
		Context:  wsConn.ctx,
		Services: ws.services,
		ClientIP: wsConn.conn.RemoteAddr().String(),
	}

	handler, exists := ws.registry.Get(command)
	if !exists {
		ws.sendError(wsConn, RpcErrorMethodNotFound(command), id)
		return
	}

	result, rpcErr := handler.Handle(rpcCtx, params)
	if rpcErr != nil {
		ws.sendError(wsConn, rpcErr, id)
		return
	}

	ws.sendResponse(wsConn, WebSocketResponse{
		Type:   "response",
		ID:     id,
		Status: "success",
		Result: result,
	})
}

func (ws *WebSocketServer) handleSubscribe(wsConn *WebSocketConnection, id interface{}, subscribe bool) {
	wsConn.mutex.Lock()
	wsConn.subscribed = subscribe
	wsConn.mutex.Unlock()

	key := "subscribed"
	if !subscribe {
		key = "unsubscribed"
	}

	ws.sendResponse(wsConn, WebSocketResponse{
		Type:   "response",
		ID:     id,
		Status: "success",
		Result: map[string]interface{}{key: true},
	})
}

func (ws *WebSocketServer) sendResponse(wsConn *WebSocketConnection, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		ws.services.Log.WithError(err).Error("failed to marshal websocket response")
		return
	}
	ws.send(wsConn, data)
}

// sendError sends an error response with flat error fields.
func (ws *WebSocketServer) sendError(wsConn *WebSocketConnection, rpcErr *RpcError, id interface{}) {
	response := map[string]interface{}{
		"type":          "response",
		"status":        "error",
		"error":         rpcErr.ErrorString,
		"error_code":    rpcErr.Code,
		"error_message": rpcErr.Message,
	}
	if id != nil {
		response["id"] = id
	}

	data, err := json.Marshal(response)
	if err != nil {
		ws.services.Log.WithError(err).Error("failed to marshal websocket error response")
		return
	}
	ws.send(wsConn, data)
}

func (ws *WebSocketServer) send(wsConn *WebSocketConnection, data []byte) {
	select {
	case wsConn.sendChannel <- data:
	case <-wsConn.ctx.Done():
	default:
		// Channel full, close the connection.
		ws.services.Log.WithField("conn", wsConn.ID).Warn("websocket send channel full, closing")
		ws.closeConnection(wsConn)
	}
}

func (ws *WebSocketServer) closeConnection(wsConn *WebSocketConnection) {
	wsConn.cancel()

	ws.connectionsMutex.Lock()
	delete(ws.connections, wsConn.ID)
	ws.connectionsMutex.Unlock()

	wsConn.conn.Close()
}

// BroadcastRecord pushes a committed redemption record to every
// subscribed connection. Slow connections are skipped rather than
// allowed to stall the caller.
func (ws *WebSocketServer) BroadcastRecord(rec journal.Record) {
	msg := RecordMessage{
		Type:       "record",
		Seq:        rec.Seq,
		From:       rec.From,
		To:         rec.To,
		Principal:  rec.Principal.String(),
		Underlying: rec.Underlying.String(),
		Time:       rec.Time.UTC().Format(time.RFC3339Nano),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		ws.services.Log.WithError(err).Error("failed to marshal record broadcast")
		return
	}

	ws.connectionsMutex.RLock()
	defer ws.connectionsMutex.RUnlock()

	for _, conn := range ws.connections {
		conn.mutex.RLock()
		subscribed := conn.subscribed
		conn.mutex.RUnlock()
		if !subscribed {
			continue
		}
		select {
		case conn.sendChannel <- data:
		default:
			ws.services.Log.WithField("conn", conn.ID).Debug("skipping slow websocket connection")
		}
	}
}

var connSeq atomic.Uint64

func generateConnectionID() string {
	return fmt.Sprintf("conn_%d", connSeq.Add(1))
}

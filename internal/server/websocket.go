package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/veridoc-io/veridoc/internal/capability"
	"github.com/veridoc-io/veridoc/internal/classify"
	"github.com/veridoc-io/veridoc/internal/pipeline"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// WebSocketVerifyRequest is a verification request sent over the socket. The
// document travels base64-encoded inside the JSON payload.
type WebSocketVerifyRequest struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	RollNumber  string `json:"roll_no"`
	Skill       string `json:"skill,omitempty"`
	Description string `json:"description,omitempty"`
	Document    []byte `json:"document"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketVerifyResponse is a frame sent back to the client while a
// verification runs.
type WebSocketVerifyResponse struct {
	Type      string            `json:"type"`
	Status    string            `json:"status"` // "processing", "completed", "error"
	Progress  float64           `json:"progress,omitempty"`
	Result    *pipeline.Outcome `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	ErrorType string            `json:"error_type,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// verifyWebSocketHandler handles WebSocket connections for streaming
// verification.
func (s *Server) verifyWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	// The request context stays alive for the duration of the handler, so
	// closing the server cancels in-flight verifications.
	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection processes messages from a WebSocket connection.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	// Set read deadline to prevent hanging connections
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Send ping messages to keep the connection alive
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// handleWebSocketMessage processes one verification request frame.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketVerifyRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	// Request IDs let clients pair frames with requests on a shared socket
	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)

	s.sendWebSocketResponse(conn, WebSocketVerifyResponse{
		Type:      "verify_response",
		Status:    "processing",
		Progress:  0.0,
		RequestID: requestID,
	})

	s.processWebSocketVerify(ctx, conn, req, requestID)
}

// processWebSocketVerify validates the request frame, runs the verification
// and streams the outcome.
func (s *Server) processWebSocketVerify(ctx context.Context, conn WebSocketConnWriter, req WebSocketVerifyRequest, requestID string) {
	if len(req.Document) == 0 {
		s.sendWebSocketError(conn, "invalid_request", "No document data provided")
		return
	}

	kind, err := classify.ParseKind(req.Kind)
	if err != nil {
		s.sendWebSocketError(conn, "invalid_request", err.Error())
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		s.sendWebSocketError(conn, "invalid_request", "student name is required")
		return
	}

	verifyReq := pipeline.Request{
		RawDocument: req.Document,
		Kind:        kind,
		Name:        name,
		RollNumber:  strings.TrimSpace(req.RollNumber),
		Skill:       strings.TrimSpace(req.Skill),
		Description: strings.TrimSpace(req.Description),
	}

	s.sendWebSocketResponse(conn, WebSocketVerifyResponse{
		Type:      "verify_response",
		Status:    "processing",
		Progress:  0.5,
		RequestID: requestID,
	})

	outcome, err := s.resolveOutcome(ctx, "websocket", verifyReq)
	if err != nil {
		var unavailable *capability.ModelUnavailableError
		if errors.As(err, &unavailable) {
			s.sendWebSocketError(conn, "model_unavailable", fmt.Sprintf("Verification capability unavailable: %v", err))
			return
		}
		s.sendWebSocketError(conn, "processing_error", fmt.Sprintf("Verification failed: %v", err))
		return
	}

	s.sendWebSocketResponse(conn, WebSocketVerifyResponse{
		Type:      "verify_response",
		Status:    "completed",
		Progress:  1.0,
		Result:    outcome,
		RequestID: requestID,
	})
}

// sendWebSocketResponse sends a response frame over the socket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketVerifyResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error frame over the socket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, errorType, message string) {
	response := WebSocketVerifyResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
	}

	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket error response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket error message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

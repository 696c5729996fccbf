package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/frontier/internal/modules/simulation"
	"nhooyr.io/websocket"
)

const (
	streamReadTimeout  = 30 * time.Second
	streamWriteTimeout = 10 * time.Second
)

// streamDone is the final message of a streamed run.
type streamDone struct {
	Done bool `json:"done"`
	*simulation.StreamSummary
}

// streamError is sent instead of streamDone when the run fails.
type streamError struct {
	Error string `json:"error"`
}

// HandleStream handles GET /api/simulation/stream.
//
// The first client message is a RunRequest. The server answers with one
// Chunk message per block of draws, then a streamDone message, and closes.
// Disconnecting cancels the run.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.defaults.OriginPatterns,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected exit")

	readCtx, cancel := context.WithTimeout(r.Context(), streamReadTimeout)
	msgType, data, err := conn.Read(readCtx)
	cancel()
	if err != nil {
		h.log.Debug().Err(err).Msg("No run request received")
		return
	}
	if msgType != websocket.MessageText {
		conn.Close(websocket.StatusUnsupportedData, "expected JSON text message")
		return
	}

	var body RunRequest
	if err := json.Unmarshal(data, &body); err != nil {
		conn.Close(websocket.StatusInvalidFramePayloadData, "invalid run request")
		return
	}
	req, err := h.toRequest(body)
	if err != nil {
		h.sendStreamError(r.Context(), conn, err)
		return
	}

	// Any further client message, or a disconnect, cancels ctx.
	ctx := conn.CloseRead(r.Context())

	summary, err := h.simulator.RunStream(ctx, req, h.defaults.StreamChunk, func(c simulation.Chunk) error {
		return h.send(ctx, conn, c)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			h.log.Debug().Err(err).Msg("Stream abandoned by client")
			return
		}
		h.sendStreamError(ctx, conn, err)
		return
	}

	if err := h.send(ctx, conn, streamDone{Done: true, StreamSummary: summary}); err != nil {
		h.log.Debug().Err(err).Msg("Failed to send stream summary")
		return
	}

	h.log.Debug().
		Str("run_id", summary.RunID).
		Int("count", summary.Count).
		Msg("Stream completed")

	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

func (h *Handler) sendStreamError(ctx context.Context, conn *websocket.Conn, err error) {
	msg := "simulation failed"
	status := websocket.StatusInternalError
	if isClientError(err) {
		msg = err.Error()
		status = websocket.StatusPolicyViolation
	} else {
		h.log.Error().Err(err).Msg("Streamed simulation failed")
	}

	if sendErr := h.send(ctx, conn, streamError{Error: msg}); sendErr != nil {
		h.log.Debug().Err(sendErr).Msg("Failed to send stream error")
	}
	conn.Close(status, "")
}

package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/wwwzy/RagAgent/internal/agent"
)

type wsReply struct {
	Answer    string `json:"answer,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Model     string `json:"model,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// ChatSocket 在一条 WebSocket 连接上逐帧处理问答，每个文本帧为一个 chatRequest。
// 帧中未带 session_id 时沿用本连接上一次返回的会话。
func (h *Handler) ChatSocket(w http.ResponseWriter, r *http.Request) {
	// 模式含 scheme 时按 scheme://host 匹配，可直接复用 CORS 来源列表
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.allowedOrigins,
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	ctx := r.Context()
	var sessionID string
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.logger.Debug("WebSocket closed by client", "session_id", sessionID)
			} else {
				h.logger.Warn("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if err := writeWS(ctx, ws, wsReply{Detail: "invalid request body"}); err != nil {
				return
			}
			continue
		}
		if req.SessionID == "" {
			req.SessionID = sessionID
		}

		// 客户端断开不应打断已开始的作答与会话写入
		resp, err := h.svc.Answer(context.WithoutCancel(ctx), agent.Request{
			Question:  req.Question,
			SessionID: req.SessionID,
			ModelID:   req.Model,
		})
		reply := wsReply{Answer: resp.Answer, SessionID: resp.SessionID, Model: resp.ModelID}
		if err != nil {
			h.logger.ErrorContext(ctx, "websocket chat failed", "session_id", req.SessionID, "error", err)
			reply = wsReply{SessionID: req.SessionID, Detail: chatErrorDetail}
		} else {
			sessionID = resp.SessionID
		}
		if err := writeWS(ctx, ws, reply); err != nil {
			h.logger.Debug("WebSocket write error", "error", err)
			return
		}
	}
}

func writeWS(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}

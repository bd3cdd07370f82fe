package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/claims-api/internal/domain/tool"
	"jan-server/services/claims-api/internal/infrastructure/metrics"
)

// Event types written to the chat stream.
const (
	EventStart               = "start"
	EventStepStart           = "step-start"
	EventTextDelta           = "text-delta"
	EventToolCallProposed    = "tool-call-proposed"
	EventToolOutputAvailable = "tool-call-output-available"
	EventToolInputError      = "tool-input-error"
	EventFinish              = "finish"
	EventError               = "error"
)

type startEvent struct {
	ConversationID string `json:"conversationId,omitempty"`
	MessageID      string `json:"messageId"`
}

type toolCallEvent struct {
	ToolName string          `json:"toolName"`
	CallID   string          `json:"callId"`
	Input    json.RawMessage `json:"input"`
	Mode     tool.Mode       `json:"mode"`
}

type toolOutputEvent struct {
	CallID string          `json:"callId"`
	Output json.RawMessage `json:"output"`
}

type toolInputErrorEvent struct {
	ToolName string `json:"toolName"`
	CallID   string `json:"callId"`
	Error    string `json:"error"`
}

// sseStream writes server-sent events. Headers and the start event are deferred
// to the first write so a turn failing before any output can still answer with JSON.
type sseStream struct {
	writer   gin.ResponseWriter
	start    startEvent
	log      zerolog.Logger
	mu       sync.Mutex
	started  bool
	terminal bool
}

func newSSEStream(w gin.ResponseWriter, start startEvent, log zerolog.Logger) *sseStream {
	return &sseStream{
		writer: w,
		start:  start,
		log:    log,
	}
}

// Started reports whether any event has been written.
func (s *sseStream) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *sseStream) send(name string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal {
		return
	}
	s.writeLocked(name, payload)
}

// Finish writes the terminal finish event.
func (s *sseStream) Finish(reason tool.FinishReason) {
	s.terminate(EventFinish, map[string]string{"finishReason": string(reason)})
}

// Fail writes the terminal error event.
func (s *sseStream) Fail(message string) {
	s.terminate(EventError, map[string]string{"error": message})
}

func (s *sseStream) terminate(name string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal {
		return
	}
	s.writeLocked(name, payload)
	s.terminal = true
}

func (s *sseStream) writeLocked(name string, payload any) {
	if !s.started {
		header := s.writer.Header()
		header.Set("Content-Type", "text/event-stream")
		header.Set("Cache-Control", "no-cache")
		header.Set("Connection", "keep-alive")
		header.Set("X-Accel-Buffering", "no")
		s.writer.WriteHeader(http.StatusOK)
		s.started = true
		s.emit(EventStart, s.start)
	}
	s.emit(name, payload)
}

func (s *sseStream) emit(name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", name).Msg("marshal SSE payload")
		return
	}

	fmt.Fprintf(s.writer, "event: %s\n", name)
	fmt.Fprintf(s.writer, "data: %s\n\n", data)
	s.writer.Flush()
}

// chatObserver forwards orchestrator events to the stream and records tool metrics.
type chatObserver struct {
	stream  *sseStream
	pending map[string]pendingCall
}

type pendingCall struct {
	name    string
	started time.Time
}

func newChatObserver(stream *sseStream) *chatObserver {
	return &chatObserver{
		stream:  stream,
		pending: make(map[string]pendingCall),
	}
}

func (o *chatObserver) OnStepStart(step int) {
	o.stream.send(EventStepStart, map[string]int{"step": step})
}

func (o *chatObserver) OnTextDelta(delta string) {
	o.stream.send(EventTextDelta, map[string]string{"delta": delta})
}

func (o *chatObserver) OnToolCall(call tool.Call, mode tool.Mode) {
	if mode == tool.ModeGated {
		metrics.RecordToolCall(call.Name, "proposed")
	} else {
		o.pending[call.ID] = pendingCall{name: call.Name, started: time.Now()}
	}
	o.stream.send(EventToolCallProposed, toolCallEvent{
		ToolName: call.Name,
		CallID:   call.ID,
		Input:    call.Arguments,
		Mode:     mode,
	})
}

func (o *chatObserver) OnToolResult(callID string, output json.RawMessage, isError bool) {
	if call, ok := o.pending[callID]; ok {
		status := "success"
		if isError {
			status = "error"
		}
		metrics.RecordToolCall(call.name, status)
		metrics.RecordToolDuration(call.name, time.Since(call.started).Seconds())
		delete(o.pending, callID)
	}
	o.stream.send(EventToolOutputAvailable, toolOutputEvent{CallID: callID, Output: output})
}

func (o *chatObserver) OnToolInputError(call tool.Call, err error) {
	metrics.RecordToolCall(call.Name, "invalid_input")
	o.stream.send(EventToolInputError, toolInputErrorEvent{
		ToolName: call.Name,
		CallID:   call.ID,
		Error:    err.Error(),
	})
}

var _ tool.StreamObserver = (*chatObserver)(nil)

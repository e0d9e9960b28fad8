package streaming

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/gptbots-qa/agent-tester/common/logger"
)

// Framing selects the wire format of a StreamWriter.
type Framing int

const (
	// FramingSSE writes "data: <json>\n\n".
	FramingSSE Framing = iota
	// FramingNDJSON writes one JSON object per line.
	FramingNDJSON
)

func (f Framing) ContentType() string {
	if f == FramingNDJSON {
		return "application/x-ndjson"
	}
	return "text/event-stream"
}

// StreamWriter publishes events to an HTTP response. After the first write
// error the consumer is considered gone and further events are dropped.
type StreamWriter struct {
	w       io.Writer
	flusher http.Flusher
	framing Framing
	lg      glog.Logger
	gone    bool
}

// NewStreamWriter logs to lg, or to the default logger when lg is nil.
func NewStreamWriter(w io.Writer, framing Framing, lg glog.Logger) *StreamWriter {
	if lg == nil {
		lg = logger.Logger.Named("stream")
	}
	sw := &StreamWriter{w: w, framing: framing, lg: lg}
	if f, ok := w.(http.Flusher); ok {
		sw.flusher = f
	}
	return sw
}

// SetupStreamHeaders prepares c for a long-lived event stream.
func SetupStreamHeaders(c *gin.Context, framing Framing) {
	c.Writer.Header().Set("Content-Type", framing.ContentType())
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
}

func (s *StreamWriter) Publish(ev Event) {
	if s.gone {
		return
	}
	if err := s.write(ev); err != nil {
		s.gone = true
		s.lg.Info("stream consumer gone, dropping further events",
			zap.String("event", string(ev.Type)), zap.Error(err))
	}
}

// Gone reports whether the consumer stopped receiving.
func (s *StreamWriter) Gone() bool { return s.gone }

func (s *StreamWriter) write(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	switch s.framing {
	case FramingNDJSON:
		data = append(data, '\n')
	default:
		framed := make([]byte, 0, len(data)+8)
		framed = append(framed, "data: "...)
		framed = append(framed, data...)
		data = append(framed, '\n', '\n')
	}

	if _, err = s.w.Write(data); err != nil {
		return errors.Wrap(err, "write event")
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// landmark-replay streams landmark frames to a running go-tryon service over
// /ws/landmarks, either from a JSONL recording or from a synthetic swaying head.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-tryon/internal/log"
	"github.com/teslashibe/go-tryon/pkg/landmark"
	"github.com/teslashibe/go-tryon/pkg/protocol"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws/landmarks", "Landmark websocket URL")
	file := flag.String("file", "", "JSONL recording (default: synthetic head)")
	fps := flag.Int("fps", 30, "Frames per second")
	loop := flag.Bool("loop", false, "Replay the recording forever")
	frames := flag.Int("frames", 0, "Synthetic frames to send (0 = until interrupted)")
	width := flag.Float64("width", 640, "Viewport width to report (0 = don't report)")
	height := flag.Float64("height", 480, "Viewport height to report")
	dpr := flag.Float64("dpr", 1, "Viewport device pixel ratio")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*logLevel)

	if *fps <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -fps must be positive")
		os.Exit(1)
	}

	var next func(i int) (landmark.Frame, bool)
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			log.Error("open recording", "error", err)
			os.Exit(1)
		}
		recorded, err := readFrames(f)
		f.Close()
		if err != nil {
			log.Error("read recording", "file", *file, "error", err)
			os.Exit(1)
		}
		log.Info("recording loaded", "file", *file, "frames", len(recorded))
		next = func(i int) (landmark.Frame, bool) {
			if len(recorded) == 0 || (!*loop && i >= len(recorded)) {
				return nil, false
			}
			return recorded[i%len(recorded)], true
		}
	} else {
		next = func(i int) (landmark.Frame, bool) {
			if *frames > 0 && i >= *frames {
				return nil, false
			}
			return syntheticFrame(i, *fps, 5*(*fps), *fps/2), true
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := replay(ctx, *url, *fps, *width, *height, *dpr, next); err != nil {
		log.Error("replay failed", "error", err)
		os.Exit(1)
	}
}

func replay(ctx context.Context, url string, fps int, width, height, dpr float64, next func(int) (landmark.Frame, bool)) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	defer conn.Close()
	log.Info("connected", "url", url)

	go readReplies(conn)

	if width > 0 && height > 0 {
		if err := send(conn)(protocol.NewViewportMessage(width, height, dpr)); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	pings := time.NewTicker(5 * time.Second)
	defer pings.Stop()

	sent := 0
	for {
		select {
		case <-ctx.Done():
			log.Info("interrupted", "frames", sent)
			return closeConn(conn)

		case <-pings.C:
			if err := send(conn)(protocol.NewPingMessage(fmt.Sprintf("replay-%d", sent))); err != nil {
				return err
			}

		case <-ticker.C:
			frame, ok := next(sent)
			if !ok {
				log.Info("replay finished", "frames", sent)
				return closeConn(conn)
			}
			if err := send(conn)(protocol.NewLandmarksMessage(frame, uint64(sent))); err != nil {
				return err
			}
			sent++
		}
	}
}

// send returns a writer that accepts a protocol constructor's results directly.
func send(conn *websocket.Conn) func(*protocol.Message, error) error {
	return func(msg *protocol.Message, err error) error {
		if err != nil {
			return err
		}
		data, err := msg.Bytes()
		if err != nil {
			return err
		}
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteMessage(websocket.TextMessage, data)
	}
}

func readReplies(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("connection closed", "error", err)
			}
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Warn("unreadable reply", "error", err)
			continue
		}
		switch msg.Type {
		case protocol.TypePong:
			if d, err := msg.GetPongData(); err == nil {
				log.Info("pong", "id", d.ID, "latency_ms", d.LatencyMs)
			}
		case protocol.TypeError:
			if d, err := msg.GetErrorData(); err == nil {
				log.Warn("service rejected message", "error", d.Message)
			}
		}
	}
}

func closeConn(conn *websocket.Conn) error {
	return conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

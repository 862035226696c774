package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"

	jsoniter "github.com/json-iterator/go"

	"github.com/teslashibe/go-tryon/pkg/landmark"
	"github.com/teslashibe/go-tryon/pkg/protocol"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// readFrames parses a JSONL recording. Each line is either a protocol landmarks
// message or a bare landmark array; blank lines are skipped.
func readFrames(r io.Reader) ([]landmark.Frame, error) {
	var frames []landmark.Frame
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		frame, err := parseFrame(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		frames = append(frames, frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}

func parseFrame(data []byte) (landmark.Frame, error) {
	if data[0] == '[' {
		var lms []landmark.Landmark
		if err := json.Unmarshal(data, &lms); err != nil {
			return nil, err
		}
		return landmark.Frame(lms), nil
	}
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return nil, err
	}
	if msg.Type != protocol.TypeLandmarks {
		return nil, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	d, err := msg.GetLandmarksData()
	if err != nil {
		return nil, err
	}
	return d.Frame(), nil
}

// syntheticFrame returns frame i of a head slowly swaying in front of the camera.
// Every gapEvery frames the face disappears for gapLength frames.
func syntheticFrame(i, fps, gapEvery, gapLength int) landmark.Frame {
	if gapEvery > 0 && i%gapEvery >= gapEvery-gapLength {
		return nil
	}
	t := float64(i) / float64(fps)
	return landmark.Synthetic(landmark.Head{
		X:        0.5 + 0.1*math.Sin(0.5*t),
		Y:        0.45 + 0.03*math.Sin(0.9*t),
		Depth:    0.02 * math.Sin(0.3*t),
		EyeWidth: 0.16 + 0.02*math.Sin(0.2*t),
		Yaw:      0.3 * math.Sin(0.7*t),
		Roll:     0.08 * math.Sin(1.3*t),
	})
}

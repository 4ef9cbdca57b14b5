package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// buildMessage is one JSON message from the Docker build output stream.
type buildMessage struct {
	Stream      string          `json:"stream"`
	Error       string          `json:"error"`
	ErrorDetail json.RawMessage `json:"errorDetail"`
	Aux         struct {
		ID string `json:"ID"`
	} `json:"aux"`
}

// successLine matches the classic builder's success marker. The expected
// grammar is a line of the form "Successfully built <hex image id>"; it is
// the fallback when no aux.ID message was streamed.
var successLine = regexp.MustCompile(`(?m)^Successfully built ([0-9a-f]+)`)

// scanBuildOutput consumes the engine's streamed output, logging build steps
// and capturing the produced image ID. Every stream line is also collected so
// failures can surface the full output. A stream that finishes without an
// identifiable image ID is a contract violation and fails the build even
// though the engine reported no error.
func scanBuildOutput(reader io.Reader, logger *slog.Logger) (string, error) {
	decoder := json.NewDecoder(reader)
	var imageID string
	var captured strings.Builder

	for {
		var msg buildMessage
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("decoding build output: %w", err)
		}

		if msg.Error != "" {
			return "", fmt.Errorf("build failed: %s\noutput:\n%s", msg.Error, captured.String())
		}

		if msg.Aux.ID != "" {
			imageID = msg.Aux.ID
		}

		if msg.Stream != "" {
			captured.WriteString(msg.Stream)
			line := strings.TrimSpace(msg.Stream)
			if line != "" && (strings.HasPrefix(line, "Step") ||
				strings.HasPrefix(line, "Successfully") ||
				strings.HasPrefix(line, "---")) {
				logger.Debug("build output", "line", line)
			}
		}
	}

	if imageID == "" {
		if m := successLine.FindStringSubmatch(captured.String()); m != nil {
			imageID = m[1]
		}
	}
	if imageID == "" {
		return "", fmt.Errorf("no image ID in build output:\n%s", captured.String())
	}

	return imageID, nil
}

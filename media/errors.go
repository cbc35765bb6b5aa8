package media

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrVideoIDRequired is returned when no video ID is given.
	ErrVideoIDRequired = errors.New("video id is required")

	// ErrAudioNotCreated is returned when yt-dlp exits cleanly without
	// producing an audio file.
	ErrAudioNotCreated = errors.New("audio file not created")

	// ErrNoTranscript is returned when a video has no usable captions.
	ErrNoTranscript = errors.New("no transcript available")
)

// maxStderr bounds the tool output kept on a CommandError.
const maxStderr = 400

// CommandError describes a failed external tool invocation.
type CommandError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if len(msg) > maxStderr {
		msg = msg[len(msg)-maxStderr:]
	}
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s failed (exit %d): %s", e.Tool, e.ExitCode, msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

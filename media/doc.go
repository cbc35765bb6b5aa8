// Package media wraps the external tools that turn a sermon video into
// podcast audio and caption segments: yt-dlp, ffmpeg and ffprobe.
//
// Tools run behind a commandRunner so callers only ever see Go errors; a
// failed invocation is reported as a *CommandError carrying the tool name,
// exit code and the tail of its stderr.
package media

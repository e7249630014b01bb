// Package logging builds the process log sink: stdout plus an optional log
// file, both fed by one slog handler.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Options configures Open.
type Options struct {
	Verbose bool
	// File is appended to when non-empty.
	File string
	// Stdout defaults to os.Stdout.
	Stdout *os.File
}

// Sink owns the logger and the file behind it.
type Sink struct {
	logger *slog.Logger
	level  *slog.LevelVar
	file   *os.File

	closeOnce sync.Once
	closeErr  error
}

// Open creates the sink. The caller must Close it at shutdown.
func Open(opts Options) (*Sink, error) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	level := &slog.LevelVar{}
	if opts.Verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	var (
		out  io.Writer = stdout
		file *os.File
	)
	if opts.File != "" {
		if dir := filepath.Dir(opts.File); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log directory %q: %w", dir, err)
			}
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		out = io.MultiWriter(stdout, f)
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(stdout) {
		handler = slog.NewTextHandler(out, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	return &Sink{
		logger: slog.New(handler),
		level:  level,
		file:   file,
	}, nil
}

// Logger returns the sink's logger.
func (s *Sink) Logger() *slog.Logger {
	return s.logger
}

// Level exposes the level so it can be changed at runtime.
func (s *Sink) Level() *slog.LevelVar {
	return s.level
}

// Close flushes and closes the log file. Safe to call more than once.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		if s.file == nil {
			return
		}
		if err := s.file.Sync(); err != nil {
			s.closeErr = fmt.Errorf("sync log file: %w", err)
		}
		if err := s.file.Close(); err != nil && s.closeErr == nil {
			s.closeErr = fmt.Errorf("close log file: %w", err)
		}
	})
	return s.closeErr
}

// Discard returns a logger that drops everything. Components use it when
// constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// OrDiscard returns l, or a discard logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

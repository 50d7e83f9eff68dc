package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FollowOptions configures a Follow cursor.
type FollowOptions struct {
	FromStart bool          // yield existing content before waiting for more
	Rotate    bool          // reopen after the file is removed or renamed
	Window    time.Duration // stop following after this long (0 = no limit)
}

// Follow is a cursor that keeps yielding lines as a file grows, in the
// manner of tail -f. Next blocks until a line arrives; the stream ends
// cleanly when the context is cancelled, the window elapses, or the
// file disappears with rotation following disabled. A line is yielded
// only once its terminator has been written; a trailing partial line is
// held back until the writer completes it.
type Follow struct {
	ch  chan string
	err error

	path    string
	file    *os.File
	watcher *fsnotify.Watcher
	offset  int64
	opts    FollowOptions
	logger  *slog.Logger
}

// NewFollow opens path and starts following it. The context owns the
// cursor's lifetime.
func NewFollow(ctx context.Context, path string, opts FollowOptions, logger *slog.Logger) (*Follow, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	var offset int64
	if !opts.FromStart {
		stat, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, err
		}
		offset = stat.Size()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		file.Close()
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		file.Close()
		watcher.Close()
		return nil, err
	}

	f := &Follow{
		ch:      make(chan string, 64),
		path:    path,
		file:    file,
		watcher: watcher,
		offset:  offset,
		opts:    opts,
		logger:  logger,
	}
	go f.run(ctx)
	return f, nil
}

// Next returns the next line, blocking until one arrives or the stream
// ends.
func (f *Follow) Next() (string, bool) {
	line, ok := <-f.ch
	return line, ok
}

// Err returns the error that ended the stream, nil for a clean end.
// Only valid after Next has returned false.
func (f *Follow) Err() error { return f.err }

// run owns the watch loop. It is the only writer to f.err and closes
// f.ch when the stream ends.
func (f *Follow) run(ctx context.Context) {
	defer func() {
		close(f.ch)
		if f.file != nil {
			f.file.Close()
		}
		f.watcher.Close()
	}()

	var window <-chan time.Time
	if f.opts.Window > 0 {
		t := time.NewTimer(f.opts.Window)
		defer t.Stop()
		window = t.C
	}

	// Existing content first: everything from the starting offset.
	if err := f.drain(ctx, false); err != nil {
		f.err = err
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-window:
			f.logger.Debug("follow window elapsed", "path", f.path)
			return

		case event, ok := <-f.watcher.Events:
			if !ok {
				f.err = errors.New("watcher closed unexpectedly")
				return
			}
			done, err := f.handleEvent(ctx, event)
			if err != nil {
				f.err = err
				return
			}
			if done {
				return
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				f.err = errors.New("watcher error channel closed")
				return
			}
			f.err = fmt.Errorf("watcher error: %w", err)
			return
		}
	}
}

// handleEvent processes one file system event. done reports that the
// stream ended cleanly.
func (f *Follow) handleEvent(ctx context.Context, event fsnotify.Event) (done bool, err error) {
	switch {
	case event.Op&fsnotify.Write == fsnotify.Write:
		return false, f.drain(ctx, false)

	case event.Op&fsnotify.Remove == fsnotify.Remove || event.Op&fsnotify.Rename == fsnotify.Rename:
		if !f.opts.Rotate {
			// The writer is gone, so a pending partial line will never
			// be completed; flush it.
			f.logger.Info("file rotated, ending stream", "path", f.path)
			return true, f.drain(ctx, true)
		}
		return false, f.reopen(ctx)

	case event.Op&fsnotify.Chmod == fsnotify.Chmod:
		return false, nil
	}
	return false, nil
}

// reopen follows a rotation: wait for the path to reappear, then start
// from the top of the new file.
func (f *Follow) reopen(ctx context.Context) error {
	if f.file != nil {
		f.file.Close()
		f.file = nil
	}

	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timeout:
			return fmt.Errorf("timed out waiting for rotated file %s", f.path)

		case <-ticker.C:
			file, err := os.Open(f.path)
			if err != nil {
				break
			}
			f.file = file
			f.offset = 0
			if err := f.watcher.Add(f.path); err != nil {
				return fmt.Errorf("watch rotated file: %w", err)
			}
			f.logger.Info("following rotated file", "path", f.path)
			return f.drain(ctx, false)
		}
	}
}

// drain reads complete lines from the current offset and sends them. A
// trailing line without a terminator stays unread unless emitPartial is
// set, so a half-written line is picked up whole by the next write
// event. A truncated file rewinds to the start.
func (f *Follow) drain(ctx context.Context, emitPartial bool) error {
	if f.file == nil {
		return nil
	}

	stat, err := f.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() < f.offset {
		f.offset = 0
	}

	if _, err := f.file.Seek(f.offset, io.SeekStart); err != nil {
		return err
	}

	r := bufio.NewReaderSize(f.file, 64*1024)
	for {
		line, err := r.ReadString('\n')
		switch {
		case err == nil:
			f.offset += int64(len(line))
			if !f.send(ctx, strings.TrimRight(line, "\r\n")) {
				return nil
			}
		case errors.Is(err, io.EOF):
			if emitPartial && line != "" {
				f.offset += int64(len(line))
				f.send(ctx, line)
			}
			return nil
		default:
			return err
		}
	}
}

// send delivers one line, giving up when the context ends.
func (f *Follow) send(ctx context.Context, line string) bool {
	select {
	case f.ch <- line:
		return true
	case <-ctx.Done():
		return false
	}
}

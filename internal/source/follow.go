package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/udpship/internal/domain"
	"github.com/bft-labs/udpship/internal/ports"
	"github.com/bft-labs/udpship/pkg/log"
)

// DefaultPollInterval is how often a followed file is checked when no
// filesystem notification arrives.
const DefaultPollInterval = time.Second

// FollowerConfig configures a Follower.
type FollowerConfig struct {
	// Path of the newline-delimited JSON file to follow.
	Path string

	// Store persists the read offset. Optional.
	Store ports.OffsetStore

	// PollInterval bounds the wait between reads. Defaults to DefaultPollInterval.
	PollInterval time.Duration

	// Clock stamps saved offsets. Defaults to time.Now.
	Clock func() time.Time
}

// Follower tails a newline-delimited JSON file like tail -F: it resumes from
// the stored offset, only consumes complete lines, starts over when the file
// is truncated and reopens it when it is replaced.
type Follower struct {
	cfg    FollowerConfig
	logger ports.Logger

	file   *os.File
	reader *bufio.Reader
	offset domain.Offset
	saved  int64
}

// NewFollower creates a follower. Nothing is opened until Run.
func NewFollower(cfg FollowerConfig, logger ports.Logger) *Follower {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Follower{cfg: cfg, logger: logger}
}

// Run follows the file until ctx is done or p reports domain.ErrClosed.
// It returns ctx.Err() on cancellation, like any long-running loop.
func (f *Follower) Run(ctx context.Context, p Pusher) (Stats, error) {
	var stats Stats

	if err := f.open(ctx); err != nil {
		return stats, err
	}
	defer f.close(ctx)

	wake := f.watch(ctx)
	ticker := time.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := f.checkRotation(); err != nil {
			f.logger.Warn("follow: stat failed", ports.Err(err), ports.String("path", f.cfg.Path))
		}

		if err := f.drain(ctx, p, &stats); err != nil {
			return stats, err
		}
		f.save(ctx)

		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-wake:
		case <-ticker.C:
		}
	}
}

// Offset returns the position just past the last consumed line.
func (f *Follower) Offset() domain.Offset {
	return f.offset
}

func (f *Follower) open(ctx context.Context) error {
	file, err := os.Open(f.cfg.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.cfg.Path, err)
	}
	f.file = file
	f.reader = bufio.NewReader(file)
	f.offset = domain.Offset{File: f.cfg.Path}

	if f.cfg.Store == nil {
		return nil
	}

	stored, err := f.cfg.Store.Load(ctx)
	if err != nil {
		f.logger.Warn("follow: ignoring unreadable offset", ports.Err(err))
		return nil
	}
	if !stored.Matches(f.cfg.Path) {
		return nil
	}

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", f.cfg.Path, err)
	}
	if stored.Offset > info.Size() {
		f.logger.Info("follow: stored offset past end of file, starting over",
			ports.Int64("offset", stored.Offset),
			ports.Int64("size", info.Size()),
		)
		return nil
	}

	f.offset = stored
	f.saved = stored.Offset
	f.logger.Info("follow: resuming", ports.String("path", f.cfg.Path), ports.Int64("offset", stored.Offset))
	return nil
}

func (f *Follower) close(ctx context.Context) {
	// a cancelled ctx must not prevent the final save
	f.save(context.WithoutCancel(ctx))
	if f.file != nil {
		f.file.Close()
	}
}

// watch returns a channel that receives when the followed file changes.
// Without a watcher the follower still polls.
func (f *Follower) watch(ctx context.Context) <-chan struct{} {
	wake := make(chan struct{}, 1)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.logger.Warn("follow: fsnotify unavailable, polling only", ports.Err(err))
		return wake
	}
	if err := watcher.Add(filepath.Dir(f.cfg.Path)); err != nil {
		f.logger.Warn("follow: cannot watch directory, polling only", ports.Err(err))
		watcher.Close()
		return wake
	}

	target := filepath.Clean(f.cfg.Path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Warn("follow: watcher error", ports.Err(err))
			}
		}
	}()

	return wake
}

// checkRotation reopens the path when it now names a different file and
// rewinds when the file shrank below the current offset.
func (f *Follower) checkRotation() error {
	pathInfo, err := os.Stat(f.cfg.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// removed; keep reading the open handle until it comes back
			return nil
		}
		return err
	}

	openInfo, err := f.file.Stat()
	if err != nil {
		return err
	}

	if !os.SameFile(pathInfo, openInfo) {
		file, err := os.Open(f.cfg.Path)
		if err != nil {
			return err
		}
		f.file.Close()
		f.file = file
		f.reader.Reset(file)
		f.offset.Offset = 0
		f.logger.Info("follow: file replaced, reopening", ports.String("path", f.cfg.Path))
		return nil
	}

	if openInfo.Size() < f.offset.Offset {
		f.logger.Info("follow: file truncated, starting over",
			ports.String("path", f.cfg.Path),
			ports.Int64("offset", f.offset.Offset),
			ports.Int64("size", openInfo.Size()),
		)
		f.offset.Offset = 0
	}
	return nil
}

// drain pushes every complete line past the current offset. A trailing
// partial line is left for the next round.
func (f *Follower) drain(ctx context.Context, p Pusher, stats *Stats) error {
	if _, err := f.file.Seek(f.offset.Offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w", f.cfg.Path, err)
	}
	f.reader.Reset(f.file)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := f.reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read %s: %w", f.cfg.Path, err)
		}

		if err := pushJSON(ctx, line, p, f.logger, stats); err != nil {
			return err
		}
		f.offset.Advance(int64(len(line)), f.cfg.Clock())
	}
}

func (f *Follower) save(ctx context.Context) {
	if f.cfg.Store == nil || f.offset.Offset == f.saved {
		return
	}
	if err := f.cfg.Store.Save(ctx, f.offset); err != nil {
		f.logger.Warn("follow: saving offset failed", ports.Err(err))
		return
	}
	f.saved = f.offset.Offset
}

package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap/zapcore"
)

const (
	logtailQueueSize = 64
	// logtailMaxRetained bounds the lines kept in memory while ingestion fails.
	logtailMaxRetained = 4096
)

var errLogtailClosed = fmt.Errorf("logtail sink is closed")

type logtailFlush struct {
	batch [][]byte
	done  chan error
}

// LogtailSink is a zapcore.WriteSyncer shipping JSON log lines to a Logtail
// (Better Stack) HTTP ingestion endpoint. Lines are buffered and handed to a
// background shipper as a JSON array once flushEvery lines are pending. Sync
// waits until everything written so far has been posted.
//
// Write never performs network I/O. When the shipper queue is full, or the
// endpoint keeps failing, the oldest lines beyond a fixed bound are dropped
// and counted in Dropped.
type LogtailSink struct {
	client     *http.Client
	url        string
	apiKey     string
	flushEvery int

	mu      sync.Mutex
	pending [][]byte

	batches chan [][]byte
	flushes chan logtailFlush
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once

	dropped atomic.Uint64

	// owned by the shipper goroutine
	retained [][]byte
	lastErr  error
}

var _ zapcore.WriteSyncer = (*LogtailSink)(nil)

// NewLogtailSink returns a sink posting to url authenticated with apiKey and
// starts its shipper. A nil client defaults to one with a 5s timeout. Call
// Close to stop the shipper.
func NewLogtailSink(client *http.Client, url, apiKey string, flushEvery int) *LogtailSink {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if flushEvery <= 0 {
		flushEvery = 1
	}

	s := &LogtailSink{
		client:     client,
		url:        url,
		apiKey:     apiKey,
		flushEvery: flushEvery,
		batches:    make(chan [][]byte, logtailQueueSize),
		flushes:    make(chan logtailFlush),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go s.run()

	return s
}

// Write buffers a single encoded entry. zap calls Write once per entry.
func (s *LogtailSink) Write(p []byte) (int, error) {
	line := bytes.TrimSpace(p)
	if len(line) == 0 {
		return len(p), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, append([]byte(nil), line...))
	if len(s.pending) < s.flushEvery {
		return len(p), nil
	}

	select {
	case s.batches <- s.pending:
		s.pending = nil
	default:
		// shipper is behind: keep buffering up to the bound
		s.pending = s.trim(s.pending)
	}

	return len(p), nil
}

// Sync hands over whatever is pending and waits for the shipper to post it
// along with any queued batches. It reports the last ingestion failure seen
// since the previous Sync.
func (s *LogtailSink) Sync() error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	req := logtailFlush{batch: batch, done: make(chan error, 1)}
	select {
	case s.flushes <- req:
	case <-s.stopped:
		return errLogtailClosed
	}

	return <-req.done
}

// Close flushes pending lines and stops the shipper. It is safe to call more
// than once.
func (s *LogtailSink) Close() error {
	var err error
	s.once.Do(func() {
		err = s.Sync()
		close(s.quit)
		<-s.stopped
	})

	return err
}

// Dropped returns how many lines were discarded because they could not be
// queued or shipped in time.
func (s *LogtailSink) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *LogtailSink) trim(lines [][]byte) [][]byte {
	if over := len(lines) - logtailMaxRetained; over > 0 {
		s.dropped.Add(uint64(over))
		lines = append([][]byte(nil), lines[over:]...)
	}

	return lines
}

func (s *LogtailSink) run() {
	defer close(s.stopped)

	for {
		select {
		case batch := <-s.batches:
			s.ship(batch)
		case req := <-s.flushes:
			s.drain()
			if len(req.batch) > 0 || len(s.retained) > 0 {
				s.ship(req.batch)
			}
			req.done <- s.lastErr
			s.lastErr = nil
		case <-s.quit:
			return
		}
	}
}

func (s *LogtailSink) drain() {
	for {
		select {
		case batch := <-s.batches:
			s.ship(batch)
		default:
			return
		}
	}
}

// ship posts batch after any lines retained from failed attempts. On failure
// the lines are retained for the next attempt.
func (s *LogtailSink) ship(batch [][]byte) {
	lines := batch
	if len(s.retained) > 0 {
		lines = append(s.retained, batch...)
		s.retained = nil
	}

	if err := s.post(lines); err != nil {
		s.lastErr = err
		s.retained = s.trim(lines)
	}
}

func (s *LogtailSink) post(batch [][]byte) error {
	var body bytes.Buffer
	body.WriteByte('[')
	body.Write(bytes.Join(batch, []byte{','}))
	body.WriteByte(']')

	ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout+time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &body)
	if err != nil {
		return fmt.Errorf("could not create logtail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not ship logs: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("logtail rejected %d entries: status %d", len(batch), resp.StatusCode)
	}

	return nil
}

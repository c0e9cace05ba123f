package logger_test

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"multiapi/pkg/logger"

	"github.com/stretchr/testify/require"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func accepted() *http.Response {
	return &http.Response{StatusCode: http.StatusAccepted, Body: io.NopCloser(strings.NewReader(""))}
}

func TestLogtailSink_FlushesOnThreshold(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	posted := func() []string {
		mu.Lock()
		defer mu.Unlock()

		return append([]string(nil), bodies...)
	}
	client := &http.Client{Transport: rtFunc(func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost || r.Header.Get("Authorization") != "Bearer key-1" ||
			r.Header.Get("Content-Type") != "application/json" {
			return nil, fmt.Errorf("unexpected request %s %v", r.Method, r.Header)
		}
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()

		return accepted(), nil
	})}

	sink := logger.NewLogtailSink(client, "https://in.logs.example", "key-1", 2)
	t.Cleanup(func() { _ = sink.Close() })

	_, err := sink.Write([]byte(`{"msg":"one"}` + "\n"))
	require.NoError(t, err)
	require.Empty(t, posted(), "nothing posted below threshold")

	_, err = sink.Write([]byte(`{"msg":"two"}` + "\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(posted()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{`[{"msg":"one"},{"msg":"two"}]`}, posted())

	_, err = sink.Write([]byte(`{"msg":"three"}`))
	require.NoError(t, err)
	require.NoError(t, sink.Sync())
	require.Equal(t, `[{"msg":"three"}]`, posted()[1])

	// nothing pending: no request
	require.NoError(t, sink.Sync())
	require.Len(t, posted(), 2)
}

func TestLogtailSink_RejectedStatus(t *testing.T) {
	client := &http.Client{Transport: rtFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusUnauthorized, Body: io.NopCloser(strings.NewReader("nope"))}, nil
	})}

	sink := logger.NewLogtailSink(client, "https://in.logs.example", "bad", 10)
	t.Cleanup(func() { _ = sink.Close() })
	_, err := sink.Write([]byte(`{"msg":"x"}`))
	require.NoError(t, err)

	err = sink.Sync()
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 401")
}

func TestLogtailSink_RetriesFailedBatch(t *testing.T) {
	var (
		mu     sync.Mutex
		fail   = true
		bodies []string
	)
	client := &http.Client{Transport: rtFunc(func(r *http.Request) (*http.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, fmt.Errorf("connection refused")
		}
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))

		return accepted(), nil
	})}

	sink := logger.NewLogtailSink(client, "https://in.logs.example", "key", 10)
	t.Cleanup(func() { _ = sink.Close() })

	_, err := sink.Write([]byte(`{"msg":"lost?"}`))
	require.NoError(t, err)
	require.ErrorContains(t, sink.Sync(), "connection refused")

	mu.Lock()
	fail = false
	mu.Unlock()

	_, err = sink.Write([]byte(`{"msg":"next"}`))
	require.NoError(t, err)
	require.NoError(t, sink.Sync())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{`[{"msg":"lost?"},{"msg":"next"}]`}, bodies)
}

func TestLogtailSink_WriteDoesNotWaitForIngestion(t *testing.T) {
	release := make(chan struct{})
	var (
		mu    sync.Mutex
		lines int
	)
	client := &http.Client{Transport: rtFunc(func(r *http.Request) (*http.Response, error) {
		<-release
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		lines += strings.Count(string(b), `"msg"`)
		mu.Unlock()

		return accepted(), nil
	})}

	sink := logger.NewLogtailSink(client, "https://in.logs.example", "key", 1)
	t.Cleanup(func() { _ = sink.Close() })

	const total = 6000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range total {
			_, _ = sink.Write([]byte(fmt.Sprintf(`{"msg":"%d"}`, i)))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		close(release)
		t.Fatal("Write blocked on a stalled ingestion endpoint")
	}
	require.Positive(t, sink.Dropped())

	close(release)
	require.NoError(t, sink.Sync())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, total-int(sink.Dropped()), lines)
}

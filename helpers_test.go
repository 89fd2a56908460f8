package stt_gateway

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnivade/stt_gateway/audio"
	"github.com/agnivade/stt_gateway/config"
	"github.com/agnivade/stt_gateway/logger"
	"github.com/agnivade/stt_gateway/metrics"
	"github.com/agnivade/stt_gateway/providers"
)

const testSampleRate = 16000

// fakeEngine reads a job number from the first sample of the clip and
// returns "job <n>". It records how many calls overlap.
type fakeEngine struct {
	delay time.Duration
	// segments overrides the default transcript when set.
	segments func(id int) []providers.Segment

	mu     sync.Mutex
	active int
	peak   int
	calls  int
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Transcribe(ctx context.Context, samples []float32, sampleRate int, opts providers.Options) ([]providers.Segment, error) {
	e.mu.Lock()
	e.active++
	e.calls++
	if e.active > e.peak {
		e.peak = e.active
	}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
	}()

	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	id := clipID(samples)
	if e.segments != nil {
		return e.segments(id), nil
	}
	return []providers.Segment{{Text: fmt.Sprintf("job %d", id)}}, nil
}

func (e *fakeEngine) Close() error { return nil }

func (e *fakeEngine) Peak() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peak
}

func (e *fakeEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// clip returns a short WAV whose first sample carries id.
func clip(t *testing.T, id int) []byte {
	t.Helper()
	samples := make([]int16, 160)
	samples[0] = int16(id * 100)
	data, err := audio.EncodeWAV(samples, testSampleRate)
	require.NoError(t, err)
	return data
}

func clipID(samples []float32) int {
	if len(samples) == 0 {
		return 0
	}
	return int(math.Round(float64(samples[0]) * 32768 / 100))
}

// recordingSender collects transcripts in place of a session.
type recordingSender struct {
	id  string
	err error

	mu    sync.Mutex
	texts []string
}

func (s *recordingSender) Send(text string) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *recordingSender) String() string { return s.id }

func (s *recordingSender) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func newTestMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Gateway.ListenHost = "127.0.0.1"
	cfg.Gateway.ListenPort = 0
	return cfg
}

// startTestServer serves a Server on a random port and returns it with its
// WebSocket URL. It is stopped when the test ends.
func startTestServer(t *testing.T, engine providers.Engine, mutate func(*config.Config)) (*Server, string) {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	server := New(cfg, engine, audio.NewWAVDecoder(), logger.Nop(), prometheus.NewRegistry())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	t.Cleanup(func() {
		assert.NoError(t, server.Stop())
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("Serve() did not return after Stop()")
		}
	})

	return server, "ws://" + ln.Addr().String() + cfg.Gateway.Path
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readTexts reads n text frames from conn.
func readTexts(t *testing.T, conn *websocket.Conn, n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	for len(out) < n {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		msgType, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, websocket.TextMessage, msgType)
		out = append(out, string(data))
	}
	return out
}

// expectNoMessage asserts nothing arrives on conn within d.
func expectNoMessage(t *testing.T, conn *websocket.Conn, d time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(d)))
	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("unexpected message %q", data)
	}
	var netErr net.Error
	assert.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

// newSessionPair returns a server-side Session and the client conn talking
// to it.
func newSessionPair(t *testing.T, writeTimeout time.Duration) (*Session, *websocket.Conn) {
	t.Helper()

	ready := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ready <- conn
	}))
	t.Cleanup(srv.Close)

	client := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))

	select {
	case conn := <-ready:
		s := newSession(conn, writeTimeout)
		t.Cleanup(func() { s.Close() })
		return s, client
	case <-time.After(2 * time.Second):
		t.Fatal("server side of the connection was not established")
		return nil, nil
	}
}

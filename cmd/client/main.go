package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	flag "github.com/spf13/pflag"

	"github.com/agnivade/stt_gateway/audio"
	"github.com/agnivade/stt_gateway/logger"
)

const drainTimeout = 10 * time.Second

type recorder interface {
	Start() error
	Stop() ([]int16, error)
}

// Client records clips on demand, sends each one as a WAV message and prints
// transcripts as they arrive. Replies may come back in any order.
type Client struct {
	conn *websocket.Conn
	rec  recorder
	log  *logger.Logger

	outMu     sync.Mutex
	out       io.Writer
	bufWriter *bufio.Writer

	pending atomic.Int64
	wg      sync.WaitGroup
}

func main() {
	serverURL := flag.String("url", "ws://localhost:5000/", "WebSocket server URL")
	outputPath := flag.String("output", "", "Output file path for transcriptions (optional)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log := logger.New(*debug)
	defer log.Sync()

	rec, err := NewMicrophoneRecorder()
	if err != nil {
		log.Errorw("Failed to open microphone", "err", err)
		return
	}
	defer rec.Close()

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Errorw("WebSocket dial failed", "url", *serverURL, "err", err)
		return
	}

	client := &Client{
		conn: conn,
		rec:  rec,
		log:  log,
		out:  os.Stdout,
	}

	if *outputPath != "" {
		outputFile, err := os.Create(*outputPath)
		if err != nil {
			log.Errorw("Failed to create output file", "path", *outputPath, "err", err)
			conn.Close()
			return
		}
		defer outputFile.Close()

		client.bufWriter = bufio.NewWriter(outputFile)
		defer client.bufWriter.Flush()
	}

	client.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- client.Run(os.Stdin)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Errorw("Client stopped", "err", err)
		}
		client.Drain(drainTimeout)
	case <-ctx.Done():
	}

	client.Close()
	fmt.Println("\nDone.")
}

// Start launches the reader goroutine.
func (c *Client) Start() {
	c.wg.Add(1)
	go c.reader()
}

// Run drives the record/send cycle from the lines of in: an empty line
// starts recording, the next line stops it and sends the clip. "exit" quits.
func (c *Client) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)

	for {
		c.print("Press Enter to start recording, type exit to quit.\n")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if isExit(scanner.Text()) {
			return nil
		}

		if err := c.rec.Start(); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}
		c.print("Recording... press Enter to stop.\n")

		scanned := scanner.Scan()
		samples, err := c.rec.Stop()
		if !scanned {
			return scanner.Err()
		}
		if isExit(scanner.Text()) {
			return nil
		}
		if err != nil {
			c.log.Warnw("Recording failed", "err", err)
			continue
		}

		if err := c.send(samples); err != nil {
			return err
		}
	}
}

func (c *Client) send(samples []int16) error {
	if len(samples) == 0 {
		c.print("Nothing recorded.\n")
		return nil
	}

	data, err := audio.EncodeWAV(samples, sampleRate)
	if err != nil {
		return fmt.Errorf("failed to encode recording: %w", err)
	}

	c.pending.Add(1)
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		c.pending.Add(-1)
		return fmt.Errorf("failed to send recording: %w", err)
	}

	seconds := float64(len(samples)) / sampleRate
	c.log.Debugw("Sent recording", "bytes", len(data), "seconds", seconds)
	c.print(fmt.Sprintf("Sent %.1fs of audio.\n", seconds))
	return nil
}

func (c *Client) reader() {
	defer c.wg.Done()

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) &&
				!errors.Is(err, net.ErrClosed) {
				c.log.Warnw("WebSocket read error", "err", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.pending.Add(-1)

		text := string(data)
		if text == "" {
			text = "(no speech)"
		}
		timestamp := time.Now().Format("15:04:05")
		line := fmt.Sprintf("[%s] %s\n", timestamp, strings.TrimSpace(text))
		c.print(line)

		if c.bufWriter != nil {
			c.outMu.Lock()
			if _, err := c.bufWriter.WriteString(line); err != nil {
				c.log.Warnw("Failed to write to output file", "err", err)
			} else {
				c.bufWriter.Flush()
			}
			c.outMu.Unlock()
		}
	}
}

// Drain waits until every sent clip has been answered or timeout passes.
func (c *Client) Drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for c.pending.Load() > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
}

// Close closes the connection and waits for the reader to return.
func (c *Client) Close() {
	c.log.Debug("Closing client...")
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.conn.Close()
	c.wg.Wait()
}

func (c *Client) print(s string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprint(c.out, s)
}

func isExit(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), "exit")
}

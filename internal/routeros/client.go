package routeros

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"
)

// VersionModern marks RouterOS builds (6.45.1 and later) that accept the
// plain-password login. Older builds require the MD5 challenge handshake.
const VersionModern = "6.45.1+"

// DefaultTimeout bounds a whole API conversation; the call always resolves
// within it.
const DefaultTimeout = 8 * time.Second

var errTimeout = errors.New("timed out waiting for router response")

// Client talks to one router. Each call opens its own TCP socket, so a
// Client is safe to use concurrently.
type Client struct {
	Address    string // host:port, API port is normally 8728
	Username   string
	Password   string
	APIVersion string // VersionModern or anything else for challenge login
	Timeout    time.Duration
}

// TestResult is the outcome of a connection test. Message carries a
// specific human-readable diagnostic on failure.
type TestResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Identity  string `json:"identity,omitempty"`
	Version   string `json:"version,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// TestConnection dials the router, runs the login handshake for the
// configured API version and collects the router's identity and version.
// It never hangs: socket errors, protocol surprises and the deadline all
// resolve the call.
func (c *Client) TestConnection() TestResult {
	start := time.Now()
	fail := func(msg string) TestResult {
		return TestResult{Message: msg, LatencyMs: time.Since(start).Milliseconds()}
	}

	conv, err := dialConversation(c.Address, c.timeout())
	if err != nil {
		return fail(fmt.Sprintf("cannot reach router: %v", err))
	}
	defer conv.close()

	deadline := time.NewTimer(c.timeout())
	defer deadline.Stop()

	if err := c.login(conv, deadline.C); err != nil {
		return fail(err.Error())
	}

	result := TestResult{Success: true, Message: "connected"}

	rows, err := conv.run([]string{"/system/identity/print"}, deadline.C)
	if err == nil && len(rows) > 0 {
		result.Identity = rows[0]["name"]
	}
	rows, err = conv.run([]string{"/system/resource/print"}, deadline.C)
	if err == nil && len(rows) > 0 {
		result.Version = rows[0]["version"]
	}

	result.LatencyMs = time.Since(start).Milliseconds()
	return result
}

// ExecuteCommand logs in and runs one command sentence, returning the
// accumulated !re rows. On !trap the rows read so far are still returned
// alongside the error.
func (c *Client) ExecuteCommand(command string, params map[string]string) ([]map[string]string, error) {
	conv, err := dialConversation(c.Address, c.timeout())
	if err != nil {
		return nil, fmt.Errorf("cannot reach router: %w", err)
	}
	defer conv.close()

	deadline := time.NewTimer(c.timeout())
	defer deadline.Stop()

	if err := c.login(conv, deadline.C); err != nil {
		return nil, err
	}

	sentence := []string{command}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sentence = append(sentence, "="+k+"="+params[k])
	}

	return conv.run(sentence, deadline.C)
}

// CheckReachability is a bare TCP connect probe: true iff the API port
// accepts a connection before the timeout. No protocol exchange.
func CheckReachability(address string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (c *Client) login(conv *conversation, deadline <-chan time.Time) error {
	if c.APIVersion == VersionModern {
		if err := conv.send([]string{"/login", "=name=" + c.Username, "=password=" + c.Password}); err != nil {
			return fmt.Errorf("failed to send login: %w", err)
		}
		sentence, err := conv.next(deadline)
		if err != nil {
			return fmt.Errorf("no login response: %w", err)
		}
		switch sentence[0] {
		case "!done":
			return nil
		case "!trap":
			return errors.New("authentication failed: invalid API username or password")
		default:
			return fmt.Errorf("unexpected login response %q", sentence[0])
		}
	}

	// Pre-6.45 challenge login: bare /login first, expect =ret=<hex>.
	if err := conv.send([]string{"/login"}); err != nil {
		return fmt.Errorf("failed to send login: %w", err)
	}
	sentence, err := conv.next(deadline)
	if err != nil {
		return fmt.Errorf("no login response: %w", err)
	}
	if sentence[0] == "!trap" {
		return errors.New("authentication failed: router rejected login")
	}
	challenge := sentenceValue(sentence, "ret")
	if challenge == "" {
		return errors.New("router did not send challenge - switch API version to " + VersionModern)
	}
	challengeBytes, err := hex.DecodeString(challenge)
	if err != nil {
		return fmt.Errorf("malformed login challenge %q", challenge)
	}

	h := md5.New()
	h.Write([]byte{0})
	h.Write([]byte(c.Password))
	h.Write(challengeBytes)
	response := "00" + hex.EncodeToString(h.Sum(nil))

	if err := conv.send([]string{"/login", "=name=" + c.Username, "=response=" + response}); err != nil {
		return fmt.Errorf("failed to send challenge response: %w", err)
	}
	sentence, err = conv.next(deadline)
	if err != nil {
		return fmt.Errorf("no challenge response: %w", err)
	}
	switch sentence[0] {
	case "!done":
		return nil
	case "!trap":
		return errors.New("authentication failed: invalid API username or password")
	default:
		return fmt.Errorf("unexpected login response %q", sentence[0])
	}
}

// conversation is one TCP exchange with a router. A dedicated read loop
// feeds decoded sentences into a channel so the caller can race them
// against errors and the deadline; whichever fires first settles the call,
// and close tears the socket down exactly once.
type conversation struct {
	conn      net.Conn
	sentences chan []string
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
}

func dialConversation(address string, timeout time.Duration) (*conversation, error) {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, err
	}
	conv := &conversation{
		conn:      conn,
		sentences: make(chan []string, 16),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
	}
	go conv.readLoop()
	return conv, nil
}

// close tears down the socket and releases the read loop. Safe to call
// more than once.
func (cv *conversation) close() {
	cv.closeOnce.Do(func() {
		close(cv.done)
		cv.conn.Close()
	})
}

func (cv *conversation) readLoop() {
	dec := &Decoder{}
	buf := make([]byte, 4096)
	for {
		n, err := cv.conn.Read(buf)
		if n > 0 {
			dec.Write(buf[:n])
			for {
				words, ok := dec.Next()
				if !ok {
					break
				}
				if len(words) == 0 {
					continue
				}
				select {
				case cv.sentences <- words:
				case <-cv.done:
					return
				}
			}
		}
		if err != nil {
			select {
			case cv.errs <- err:
			default:
			}
			return
		}
	}
}

func (cv *conversation) send(words []string) error {
	_, err := cv.conn.Write(EncodeSentence(words))
	return err
}

func (cv *conversation) next(deadline <-chan time.Time) ([]string, error) {
	select {
	case words := <-cv.sentences:
		return words, nil
	case err := <-cv.errs:
		return nil, err
	case <-deadline:
		return nil, errTimeout
	}
}

// run sends one sentence and accumulates !re rows until !done or !trap.
func (cv *conversation) run(sentence []string, deadline <-chan time.Time) ([]map[string]string, error) {
	if err := cv.send(sentence); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	var rows []map[string]string
	for {
		reply, err := cv.next(deadline)
		if err != nil {
			return rows, err
		}
		switch reply[0] {
		case "!re":
			rows = append(rows, parseRow(reply[1:]))
		case "!done":
			return rows, nil
		case "!trap":
			msg := sentenceValue(reply, "message")
			if msg == "" {
				msg = "command rejected by router"
			}
			return rows, errors.New(msg)
		case "!fatal":
			return rows, fmt.Errorf("router closed the session: %s", strings.Join(reply[1:], " "))
		}
	}
}

// parseRow turns "=key=value" words into a map, splitting each word on the
// first '=' after the leading one.
func parseRow(words []string) map[string]string {
	row := make(map[string]string, len(words))
	for _, w := range words {
		if !strings.HasPrefix(w, "=") {
			continue
		}
		parts := strings.SplitN(w[1:], "=", 2)
		if len(parts) == 2 {
			row[parts[0]] = parts[1]
		} else {
			row[parts[0]] = ""
		}
	}
	return row
}

func sentenceValue(words []string, key string) string {
	prefix := "=" + key + "="
	for _, w := range words {
		if strings.HasPrefix(w, prefix) {
			return strings.TrimPrefix(w, prefix)
		}
	}
	return ""
}

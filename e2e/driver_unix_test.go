//go:build e2e && unix

package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

// binPath is set by TestMain once the binary is built
var binPath = "cheesefinder_e2e"

const (
	keyEnter = "\r"
	keyCtrlC = "\x03"
	keyEsc   = "\x1b"
	keyCtrlO = "\x0f"
	keyDown  = "\x1b[B"
)

// maxOutput caps how much terminal output a session keeps
const maxOutput = 1 << 20

// ansiRe matches the escape sequences stripped from plain output
var ansiRe = regexp.MustCompile(
	`(?:\x1b\[[0-9;?]*[ -/]*[@-~])|` + // CSI
		`(?:\x1b\][^\x07]*\x07)|` + // OSC
		`(?:\x1b[\(\)][A-Za-z])|` + // charset
		`(?:\x1b=|\x1b>)|` + // keypad mode
		`\r`,
)

// output collects everything the app writes to its terminal
type output struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	dropped int // bytes trimmed from the front
}

func (o *output) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.buf.Write(p)
	if over := o.buf.Len() - maxOutput; over > 0 {
		o.buf.Next(over)
		o.dropped += over
	}
	return len(p), nil
}

// since returns the plain output written after mark
func (o *output) since(mark int) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	b := o.buf.Bytes()
	if skip := mark - o.dropped; skip > 0 {
		if skip > len(b) {
			skip = len(b)
		}
		b = b[skip:]
	}
	return ansiRe.ReplaceAllString(string(b), "")
}

func (o *output) mark() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped + o.buf.Len()
}

// session is one run of the TUI in a pseudo terminal
type session struct {
	t    *testing.T
	dir  string
	pty  *os.File
	cmd  *exec.Cmd
	out  *output

	exited  chan struct{} // closed once the process is gone
	exitErr error
}

// start launches the app in a 120x40 terminal inside a fresh directory,
// which also serves as $HOME so no user config leaks in
func start(t *testing.T, args ...string) *session {
	t.Helper()
	s := &session{t: t, dir: t.TempDir(), out: &output{}, exited: make(chan struct{})}

	s.cmd = exec.Command(binPath, append([]string{"--log-file="}, args...)...)
	s.cmd.Dir = s.dir
	s.cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"LC_ALL=C",
		"LANG=C",
		"HOME="+s.dir,
		"XDG_CONFIG_HOME="+filepath.Join(s.dir, ".config"),
		"CHEESEFINDER_E2E_TEST=1",
	)

	f, err := pty.StartWithSize(s.cmd, &pty.Winsize{Rows: 40, Cols: 120})
	require.NoError(t, err, "start app in a pty")
	s.pty = f

	go func() {
		// returns once the pty is closed
		_ = s.out.copyFrom(f)
	}()
	go func() {
		s.exitErr = s.cmd.Wait()
		close(s.exited)
	}()

	t.Cleanup(s.close)
	s.expect("__READY__", 5*time.Second, "app never became ready")
	return s
}

// copyFrom copies the pty into the output until reading fails
func (o *output) copyFrom(f *os.File) error {
	chunk := make([]byte, 8192)
	for {
		n, err := f.Read(chunk)
		if n > 0 {
			_, _ = o.Write(chunk[:n])
		}
		if err != nil {
			return err
		}
	}
}

func (s *session) press(keys ...string) {
	s.t.Helper()
	for _, k := range keys {
		_, err := s.pty.Write([]byte(k))
		require.NoError(s.t, err)
	}
}

// typeText sends text one key at a time, the way a user types
func (s *session) typeText(text string) {
	s.t.Helper()
	for _, r := range text {
		s.press(string(r))
		time.Sleep(20 * time.Millisecond)
	}
}

// seeSince reports whether text shows up after mark within timeout
func (s *session) seeSince(mark int, text string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if strings.Contains(s.out.since(mark), text) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func (s *session) see(text string, timeout time.Duration) bool {
	return s.seeSince(0, text, timeout)
}

// expect fails the test with the screen tail unless text shows up
func (s *session) expect(text string, timeout time.Duration, msg string) {
	s.t.Helper()
	s.expectSince(0, text, timeout, msg)
}

func (s *session) expectSince(mark int, text string, timeout time.Duration, msg string) {
	s.t.Helper()
	if s.seeSince(mark, text, timeout) {
		return
	}
	tail := s.out.since(mark)
	if len(tail) > 4096 {
		tail = tail[len(tail)-4096:]
	}
	s.t.Fatalf("%s: %q not shown\n--- tail ---\n%s", msg, text, tail)
}

// waitExit waits for the process to end
func (s *session) waitExit(timeout time.Duration) (exited bool, err error) {
	select {
	case <-s.exited:
		return true, s.exitErr
	case <-time.After(timeout):
		return false, nil
	}
}

func (s *session) close() {
	// closing the pty hangs up the app
	_ = s.pty.Close()
	_ = s.cmd.Process.Kill()
	select {
	case <-s.exited:
	case <-time.After(2 * time.Second):
	}
}

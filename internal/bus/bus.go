// Package bus is the control socket between the CLI and the daemon. A
// request is one line: the verb byte, then an optional space and argument.
package bus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const SockName = "control.sock"
const PidName = "hyprcaptions.pid"
const ProtoVer = "0.2"

const (
	CmdToggle     byte = 't'
	CmdStatus     byte = 's'
	CmdSummary    byte = 'm'
	CmdAutoVoice  byte = 'a'
	CmdLanguage   byte = 'l'
	CmdTranscript byte = 'p'
	CmdSummaries  byte = 'P'
	CmdSpeak      byte = 'y'
	CmdVersion    byte = 'v'
	CmdQuit       byte = 'q'
)

var ErrEmpty = errors.New("empty request")

type Request struct {
	Verb byte
	Arg  string
}

func (r Request) String() string {
	if r.Arg == "" {
		return string(r.Verb)
	}
	return string(r.Verb) + " " + r.Arg
}

func ParseRequest(line string) (Request, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Request{}, ErrEmpty
	}
	req := Request{Verb: line[0]}
	if len(line) > 1 {
		if line[1] != ' ' {
			return Request{}, fmt.Errorf("malformed request %q", line)
		}
		req.Arg = strings.TrimSpace(line[2:])
	}
	return req, nil
}

// Endpoint locates the socket and PID file of one daemon.
type Endpoint struct {
	Dir string
}

// DefaultEndpoint is ~/.cache/hyprcaptions.
func DefaultEndpoint() (Endpoint, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{Dir: filepath.Join(dir, "hyprcaptions")}, nil
}

func (e Endpoint) SockPath() string { return filepath.Join(e.Dir, SockName) }
func (e Endpoint) PidPath() string  { return filepath.Join(e.Dir, PidName) }

func (e Endpoint) sockets() *socketManager { return &socketManager{path: e.SockPath()} }
func (e Endpoint) pids() *pidManager       { return &pidManager{path: e.PidPath()} }

func (e Endpoint) Listen() (net.Listener, error) { return e.sockets().listen() }
func (e Endpoint) Dial() (net.Conn, error)       { return e.sockets().dial() }

func (e Endpoint) CheckExistingDaemon() error { return e.pids().checkExisting() }
func (e Endpoint) CreatePidFile() error       { return e.pids().create() }
func (e Endpoint) RemovePidFile() error       { return e.pids().remove() }

// Send writes one request and returns everything the daemon answers before
// it closes the connection.
func (e Endpoint) Send(verb byte, arg string) (string, error) {
	c, err := e.Dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	req := Request{Verb: verb, Arg: arg}
	if _, err := io.WriteString(c, req.String()+"\n"); err != nil {
		return "", err
	}

	resp, err := io.ReadAll(bufio.NewReader(c))
	return string(resp), err
}

// SendCommand sends an argument-less verb to the default endpoint.
func SendCommand(cmd byte) (string, error) {
	e, err := DefaultEndpoint()
	if err != nil {
		return "", err
	}
	return e.Send(cmd, "")
}

type socketManager struct {
	path string
}

func (m *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(m.path) // stale socket from last run
	return net.Listen("unix", m.path)
}

func (m *socketManager) dial() (net.Conn, error) {
	return net.DialTimeout("unix", m.path, 2*time.Second)
}

type pidManager struct {
	path string
}

func (m *pidManager) checkExisting() error {
	pidData, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		_ = os.Remove(m.path) // invalid pid file
		return nil
	}

	if !m.isProcessAlive(pid) {
		_ = os.Remove(m.path)
		return nil
	}

	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (m *pidManager) isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func (m *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(m.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (m *pidManager) remove() error {
	return os.Remove(m.path)
}

package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leonardotrapani/hyprcaptions/internal/audio"
	"go.uber.org/zap"
)

// SystemDevices opens the microphone through PipeWire and the camera
// through V4L2.
type SystemDevices struct {
	logger *zap.Logger
}

func NewSystemDevices(logger *zap.Logger) *SystemDevices {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemDevices{logger: logger.Named("devices")}
}

func (d *SystemDevices) OpenAudio(ctx context.Context, c Constraints) (AudioSource, error) {
	return openPipeWire(ctx, c, d.logger)
}

func (d *SystemDevices) OpenVideo(ctx context.Context, c Constraints) (Track, error) {
	return openV4L2(c.VideoDevice)
}

// pipeWireTrack reads mono f32 samples from a pw-record child process.
type pipeWireTrack struct {
	id     string
	target string
	logger *zap.Logger

	cmd    *exec.Cmd
	stdout *bufio.Reader
	stderr *tailBuffer
	buf    []byte
	cancel context.CancelFunc

	stopOnce sync.Once
	waitOnce sync.Once
	waitErr  error
}

func openPipeWire(ctx context.Context, c Constraints, logger *zap.Logger) (*pipeWireTrack, error) {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return nil, &PermissionError{Kind: DeviceNotFound, Err: fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)}
	}
	if err := checkPipeWireRunning(ctx); err != nil {
		return nil, err
	}

	// The process outlives ctx; Stop ends it.
	procCtx, cancel := context.WithCancel(context.Background())
	args := buildPwRecordArgs(c)
	cmd := exec.CommandContext(procCtx, "pw-record", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start pw-record: %w", err)
	}

	t := &pipeWireTrack{
		id:     uuid.NewString(),
		target: targetOf(c),
		logger: logger,
		cmd:    cmd,
		stdout: bufio.NewReaderSize(stdout, c.FrameSize*4*2),
		stderr: stderr,
		buf:    make([]byte, c.FrameSize*4),
		cancel: cancel,
	}
	logger.Debug("pw-record started", zap.Strings("args", args), zap.String("track", t.id))
	return t, nil
}

func (t *pipeWireTrack) ID() string { return t.id }
func (t *pipeWireTrack) Kind() Kind { return KindAudio }

func (t *pipeWireTrack) Label() string {
	if t.target == "" {
		return "pipewire:default"
	}
	return "pipewire:" + t.target
}

func (t *pipeWireTrack) ReadFrame() ([]float32, error) {
	if _, err := io.ReadFull(t.stdout, t.buf); err != nil {
		waitErr := t.wait()
		if msg := t.stderr.String(); msg != "" {
			return nil, fmt.Errorf("pw-record: %s: %w", msg, err)
		}
		if waitErr != nil {
			return nil, fmt.Errorf("pw-record exited: %w", waitErr)
		}
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return audio.DecodeFloat32LE(t.buf)
}

func (t *pipeWireTrack) Stop() error {
	t.stopOnce.Do(func() {
		t.cancel()
		t.wait()
		t.logger.Debug("pw-record stopped", zap.String("track", t.id))
	})
	return nil
}

// wait reaps the child process once.
func (t *pipeWireTrack) wait() error {
	t.waitOnce.Do(func() {
		t.waitErr = t.cmd.Wait()
	})
	return t.waitErr
}

func buildPwRecordArgs(c Constraints) []string {
	args := []string{
		"--format", "f32",
		"--rate", strconv.Itoa(c.SampleRate),
		"--channels", "1",
	}
	if target := targetOf(c); target != "" {
		args = append(args, "--target", target)
	}
	if c.EchoCancellation || c.NoiseSuppression {
		// lets the session manager route us through its voice filters
		args = append(args, "--properties", `{ "media.role": "Communication" }`)
	}
	return append(args, "-")
}

func targetOf(c Constraints) string {
	if c.AudioTarget != "" {
		return c.AudioTarget
	}
	if c.EchoCancellation {
		return c.EchoCancelTarget
	}
	return ""
}

func checkPipeWireRunning(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(checkCtx, "pw-cli", "info").CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("PipeWire not running or accessible: %w", err)
		}
		return fmt.Errorf("PipeWire not running or accessible: %s: %w", msg, err)
	}
	return nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Write(p)
	if over := b.buf.Len() - b.max; over > 0 {
		b.buf.Next(over)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(b.buf.String())
}

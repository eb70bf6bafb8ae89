package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Player plays one encoded audio payload to completion.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// DefaultPlayerCommand reads audio from stdin and exits when done.
var DefaultPlayerCommand = []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", "-"}

// ExecPlayer pipes the payload into an external player process.
type ExecPlayer struct {
	command []string
}

func NewExecPlayer(command []string) (*ExecPlayer, error) {
	if len(command) == 0 {
		command = DefaultPlayerCommand
	}
	if _, err := exec.LookPath(command[0]); err != nil {
		return nil, fmt.Errorf("audio player %q not found: %w", command[0], err)
	}
	return &ExecPlayer{command: append([]string(nil), command...)}, nil
}

func (p *ExecPlayer) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return errors.New("empty audio payload")
	}
	cmd := exec.CommandContext(ctx, p.command[0], p.command[1:]...)
	cmd.Stdin = bytes.NewReader(audio)
	if out, err := cmd.CombinedOutput(); err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %s: %w", p.command[0], msg, err)
		}
		return fmt.Errorf("%s: %w", p.command[0], err)
	}
	return nil
}

// Package player starts playback of synthesized clips.
//
// Exec pipes audio into a local command (ffplay, aplay, mpv) and is used
// by the CLI. Relay is used by the network transports: audio is returned
// to the client, which plays it, so the stream is handed off immediately.
package player

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/nadzzz/agrivoice/internal/tts"
)

// Exec plays clips by writing them to a command's stdin.
type Exec struct {
	path string
	args []string
}

// NewExec parses a command template. "{rate}" in any argument is replaced
// with the playback rate at play time. The binary must be on PATH.
func NewExec(command string) (*Exec, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, eris.New("player: empty command")
	}
	resolved, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, eris.Wrapf(err, "player: %s not found", fields[0])
	}
	return &Exec{path: resolved, args: fields[1:]}, nil
}

// Args returns the argument list for a playback rate.
func (e *Exec) Args(rate float64) []string {
	r := strconv.FormatFloat(rate, 'f', -1, 64)
	args := make([]string, len(e.args))
	for i, a := range e.args {
		args[i] = strings.ReplaceAll(a, "{rate}", r)
	}
	return args
}

// Play starts the command. The process outlives ctx; use Stop to end it.
func (e *Exec) Play(_ context.Context, clip tts.Clip, rate float64) (tts.Playback, error) {
	if len(clip.Audio) == 0 {
		return nil, eris.New("player: empty clip")
	}
	cmd := exec.Command(e.path, e.Args(rate)...)
	cmd.Stdin = bytes.NewReader(clip.Audio)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, eris.Wrap(err, "player: start")
	}

	p := &process{cmd: cmd, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		stopped := p.stopped
		p.mu.Unlock()
		if err != nil && !stopped {
			slog.Warn("player exited with error", "command", e.path, "error", err)
		}
		close(p.done)
	}()
	return p, nil
}

type process struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu      sync.Mutex
	stopped bool
}

func (p *process) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	select {
	case <-p.done:
		return
	default:
	}
	_ = p.cmd.Process.Kill()
	<-p.done
}

func (p *process) Done() <-chan struct{} { return p.done }

// Relay hands clips to the remote client.
type Relay struct{}

// Play returns an already finished playback.
func (Relay) Play(_ context.Context, clip tts.Clip, _ float64) (tts.Playback, error) {
	if len(clip.Audio) == 0 {
		return nil, eris.New("player: empty clip")
	}
	done := make(chan struct{})
	close(done)
	return relayed{done: done}, nil
}

type relayed struct{ done chan struct{} }

func (relayed) Stop()                    {}
func (r relayed) Done() <-chan struct{} { return r.done }

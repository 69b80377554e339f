package player

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/agrivoice/internal/tts"
)

func TestNewExec(t *testing.T) {
	_, err := NewExec("   ")
	require.Error(t, err)

	_, err = NewExec("definitely-not-a-real-player-binary -")
	require.Error(t, err)
}

func TestExec_Args(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	e, err := NewExec("cat -af atempo={rate} -")
	require.NoError(t, err)
	assert.Equal(t, []string{"-af", "atempo=1.25", "-"}, e.Args(1.25))
}

func TestExec_PlayAndFinish(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	e, err := NewExec("cat")
	require.NoError(t, err)

	pb, err := e.Play(context.Background(), tts.Clip{Audio: []byte("RIFF....")}, 1)
	require.NoError(t, err)
	select {
	case <-pb.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("playback did not finish")
	}
	pb.Stop()
}

func TestExec_Stop(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	e, err := NewExec("sleep 30")
	require.NoError(t, err)

	pb, err := e.Play(context.Background(), tts.Clip{Audio: []byte{0}}, 1)
	require.NoError(t, err)
	pb.Stop()
	select {
	case <-pb.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not end the process")
	}
	pb.Stop()
}

func TestRelay(t *testing.T) {
	pb, err := Relay{}.Play(context.Background(), tts.Clip{Audio: []byte{1}}, 1)
	require.NoError(t, err)
	<-pb.Done()
	pb.Stop()

	_, err = Relay{}.Play(context.Background(), tts.Clip{}, 1)
	require.Error(t, err)
}

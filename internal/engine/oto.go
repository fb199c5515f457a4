// ABOUTME: Audio device output using the oto library
// ABOUTME: Pulls rendered frames from the engine into the platform mixer
package engine

import (
	"errors"
	"fmt"

	"github.com/ebitengine/oto/v3"
)

// Device plays an engine's output on the system audio device
type Device struct {
	otoCtx *oto.Context
	player *oto.Player
}

// OpenDevice creates an oto context matching the engine format and starts
// pulling frames from it.
func OpenDevice(e *Engine) (*Device, error) {
	op := &oto.NewContextOptions{
		SampleRate:   e.SampleRate(),
		ChannelCount: e.Channels(),
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	player := ctx.NewPlayer(e)
	player.Play()

	return &Device{otoCtx: ctx, player: player}, nil
}

// Close stops the device
func (d *Device) Close() error {
	return errors.Join(d.player.Close(), d.otoCtx.Suspend())
}

package app

import (
	"math"
	"time"

	"github.com/1ureka/meshp2p/internal/protocol"
)

const (
	walkRadius = 2.0 // metres
	walkSpeed  = 0.5 // radians per second
)

// localPlayer stands in for the tracked local avatar: it walks a circle
// around the origin, facing along its path.
type localPlayer struct {
	start time.Time
	text  string
	now   func() time.Time
}

func newLocalPlayer(text string) *localPlayer {
	return &localPlayer{start: time.Now(), text: text, now: time.Now}
}

// State returns the player's current pose.
func (p *localPlayer) State() protocol.PlayerState {
	angle := walkSpeed * p.now().Sub(p.start).Seconds()
	yaw := yawQuat(-angle)
	return protocol.PlayerState{
		Position: protocol.Vec3{
			X: float32(walkRadius * math.Cos(angle)),
			Y: 0,
			Z: float32(walkRadius * math.Sin(angle)),
		},
		Rotation:     yaw,
		HeadRotation: yaw,
		SomeText:     p.text,
	}
}

// yawQuat is a rotation of angle radians about the vertical axis.
func yawQuat(angle float64) protocol.Quat {
	half := angle / 2
	return protocol.Quat{Y: float32(math.Sin(half)), W: float32(math.Cos(half))}
}

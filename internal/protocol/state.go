package protocol

import (
	"encoding/json"
	"fmt"
)

// Vec3 is a position in world space.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Quat is a rotation quaternion.
type Quat struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

// IdentityQuat is the zero rotation.
var IdentityQuat = Quat{W: 1}

// PlayerState is the pose payload each peer sends over the data channel at a
// fixed small interval. Consumers outside this module render it.
type PlayerState struct {
	Position     Vec3   `json:"position"`
	Rotation     Quat   `json:"rotation"`
	HeadRotation Quat   `json:"headRotation"`
	SomeText     string `json:"someText"`
}

// EncodeState serializes a PlayerState for the data channel.
func EncodeState(s PlayerState) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeState parses a data channel message into a PlayerState.
func DecodeState(data []byte) (PlayerState, error) {
	var s PlayerState
	if err := json.Unmarshal(data, &s); err != nil {
		return PlayerState{}, fmt.Errorf("failed to decode player state: %w", err)
	}
	return s, nil
}

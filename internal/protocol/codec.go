package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/1ureka/meshp2p/internal/identity"
)

// ErrMalformed is wrapped by every Decode failure.
var ErrMalformed = errors.New("malformed envelope")

// Encode serializes an Envelope into a relay text message.
func Encode(env *Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Decode parses a relay text message and checks that the fields required by
// its type are present.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if _, err := identity.Parse(string(env.From)); err != nil {
		return nil, fmt.Errorf("%w: from: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeAnnounce:
	case TypeDescription:
		if env.SDP == nil {
			return nil, fmt.Errorf("%w: sdp envelope without description", ErrMalformed)
		}
		if !env.SDP.Type.Valid() {
			return nil, fmt.Errorf("%w: unknown sdp type %q", ErrMalformed, env.SDP.Type)
		}
	case TypeCandidate:
		if env.Candidate == nil {
			return nil, fmt.Errorf("%w: candidate envelope without candidate", ErrMalformed)
		}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}

	return &env, nil
}

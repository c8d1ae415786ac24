package parser

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/saviobatista/steepturn-coach/internal/types"
)

// Request is an outbound subscription as the simulator sees it
type Request struct {
	Kind FrameKind
	// RateHz is the RPOS rate; 0 means stop
	RateHz int
	// Registration is set for RREF requests; a zero frequency unsubscribes
	Registration types.Registration
}

// ParseRequest decodes a subscription datagram built by EncodeRPOSRequest or EncodeRREFRequest
func ParseRequest(data []byte) (Request, error) {
	switch {
	case bytes.HasPrefix(data, []byte("RPOS")):
		if len(data) < 6 {
			return Request{}, fmt.Errorf("%w: RPOS request has %d bytes", ErrShortFrame, len(data))
		}
		rate, err := strconv.Atoi(string(data[4:6]))
		if err != nil || rate < 0 {
			return Request{}, fmt.Errorf("invalid RPOS rate %q", data[4:6])
		}
		return Request{Kind: FrameRPOS, RateHz: rate}, nil

	case bytes.HasPrefix(data, []byte("RREF")):
		if len(data) < RREFRequestLen {
			return Request{}, fmt.Errorf("%w: RREF request has %d bytes", ErrShortFrame, len(data))
		}
		name := data[rrefRequestNameOffset:RREFRequestLen]
		if i := bytes.IndexByte(name, 0); i >= 0 {
			name = name[:i]
		}
		return Request{
			Kind: FrameRREF,
			Registration: types.Registration{
				ID:          int(data[rrefRequestIDOffset]),
				Dataref:     types.Dataref(name),
				FrequencyHz: int(data[rrefRequestFreqOffset]),
			},
		}, nil
	}

	return Request{}, ErrUnknownTag
}

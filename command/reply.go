package command

import "github.com/cyberinferno/gamesession/codec"

// Reply statuses.
const (
	StatusAck = "ACK"
	StatusNak = "NAK"
)

// CodeSize is the width of the reply code field.
const CodeSize = 8

// Reply codes. Each fits in CodeSize bytes.
const (
	CodeOK           = "OK"
	CodeMalformed    = "MALFORM"
	CodeTruncated    = "TRUNC"
	CodeInvalid      = "INVALID"
	CodeUnknownOp    = "BADOP"
	CodeUnrecognized = "UNKNOWN"
	CodeAlreadyOpen  = "OPEN"
	CodeNotOpen      = "NOTOPEN"
	CodeNotImpl      = "NOTIMPL"
	CodeInUse        = "INUSE"
	CodeInternal     = "INTERNAL"
)

// Reply is what the server sends back after handling a frame:
// [8B status][8B code][detail].
type Reply struct {
	Status string
	Code   string
	Detail string
}

// Ack builds a successful reply.
func Ack(detail string) Reply {
	return Reply{Status: StatusAck, Code: CodeOK, Detail: detail}
}

// Nak builds a failure reply with the given code.
func Nak(code, detail string) Reply {
	return Reply{Status: StatusNak, Code: code, Detail: detail}
}

// OK reports whether the reply acknowledges the frame.
func (r Reply) OK() bool {
	return r.Status == StatusAck
}

// Encode serializes the reply without the transport delimiter.
func (r Reply) Encode() []byte {
	return codec.Join(codec.PadString(r.Status, IDSize), codec.PadString(r.Code, CodeSize), []byte(r.Detail))
}

// DecodeReply decodes a reply frame.
//
// Returns:
//   - The reply
//   - ErrMalformedMessage if the frame is shorter than the 16-byte header
func DecodeReply(frame []byte) (Reply, error) {
	r := codec.NewReader(frame)

	status, err := r.ReadString(IDSize)
	if err != nil {
		return Reply{}, malformed("reply status", err)
	}

	code, err := r.ReadString(CodeSize)
	if err != nil {
		return Reply{}, malformed("reply code", err)
	}

	return Reply{Status: status, Code: code, Detail: string(r.Rest())}, nil
}

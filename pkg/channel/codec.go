package channel

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/polisai/polis-flavor/pkg/domain"
)

// MethodCodec converts calls and replies to and from their wire form.
type MethodCodec interface {
	EncodeMethodCall(call MethodCall) ([]byte, error)
	DecodeMethodCall(data []byte) (MethodCall, error)
	EncodeReply(reply Reply) ([]byte, error)
	DecodeReply(data []byte) (Reply, error)
}

// JSONMethodCodec is the JSON method codec:
//
//	call:            {"method": "getFlavor", "args": null}
//	success:         ["prod"]
//	error:           ["CODE", "message", details]
//	not implemented: empty message
type JSONMethodCodec struct{}

var _ MethodCodec = JSONMethodCodec{}

type wireCall struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args"`
}

// EncodeMethodCall encodes call. Arguments are embedded verbatim.
func (JSONMethodCodec) EncodeMethodCall(call MethodCall) ([]byte, error) {
	if call.Method == "" {
		return nil, fmt.Errorf("%w: empty method name", domain.ErrMalformedCall)
	}
	args := call.Arguments
	if len(args) == 0 {
		args = json.RawMessage("null")
	}
	return json.Marshal(wireCall{Method: call.Method, Args: args})
}

// DecodeMethodCall decodes a call. A JSON null argument decodes to nil.
func (JSONMethodCodec) DecodeMethodCall(data []byte) (MethodCall, error) {
	var wc wireCall
	if err := json.Unmarshal(data, &wc); err != nil {
		return MethodCall{}, fmt.Errorf("%w: %v", domain.ErrMalformedCall, err)
	}
	if wc.Method == "" {
		return MethodCall{}, fmt.Errorf("%w: missing method", domain.ErrMalformedCall)
	}
	call := MethodCall{Method: wc.Method}
	if trimmed := bytes.TrimSpace(wc.Args); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		call.Arguments = append(json.RawMessage(nil), trimmed...)
	}
	return call, nil
}

// EncodeReply encodes reply as an envelope. NotImplemented encodes to an
// empty message.
func (JSONMethodCodec) EncodeReply(reply Reply) ([]byte, error) {
	switch reply.Status {
	case StatusSuccess:
		return json.Marshal([]any{reply.Value})
	case StatusError:
		if reply.Err == nil {
			return nil, fmt.Errorf("%w: error reply without payload", domain.ErrMalformedReply)
		}
		var message any
		if reply.Err.Message != "" {
			message = reply.Err.Message
		}
		return json.Marshal([]any{reply.Err.Code, message, reply.Err.Details})
	case StatusNotImplemented:
		return []byte{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrMalformedReply, reply.Status)
	}
}

// DecodeReply decodes an envelope produced by EncodeReply.
func (JSONMethodCodec) DecodeReply(data []byte) (Reply, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return NotImplemented(), nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(trimmed, &parts); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", domain.ErrMalformedReply, err)
	}

	switch len(parts) {
	case 1:
		var value any
		if err := json.Unmarshal(parts[0], &value); err != nil {
			return Reply{}, fmt.Errorf("%w: %v", domain.ErrMalformedReply, err)
		}
		return Success(value), nil
	case 3:
		var code string
		if err := json.Unmarshal(parts[0], &code); err != nil {
			return Reply{}, fmt.Errorf("%w: error code must be a string", domain.ErrMalformedReply)
		}
		var message *string
		if err := json.Unmarshal(parts[1], &message); err != nil {
			return Reply{}, fmt.Errorf("%w: error message must be a string or null", domain.ErrMalformedReply)
		}
		var details any
		if err := json.Unmarshal(parts[2], &details); err != nil {
			return Reply{}, fmt.Errorf("%w: %v", domain.ErrMalformedReply, err)
		}
		msg := ""
		if message != nil {
			msg = *message
		}
		return Failure(code, msg, details), nil
	default:
		return Reply{}, fmt.Errorf("%w: envelope has %d elements", domain.ErrMalformedReply, len(parts))
	}
}

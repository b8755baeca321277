package protocol

import "errors"

// Request commands, host to device
const (
	CmdIdentify = 0x01 // identify
	CmdRegRead  = 0x02 // reg_read addr=%u
	CmdRegWrite = 0x03 // reg_write addr=%u value=%u
	CmdGetClock = 0x04 // get_clock
)

// Responses, device to host
const (
	RespIdentify   = 0x41 // identify_response version=%s clock=%u
	RespRegValue   = 0x42 // reg_value addr=%u value=%u
	RespRegWritten = 0x43 // reg_written addr=%u
	RespClock      = 0x44 // clock hz=%u
	RespError      = 0x7F // error code=%u
)

// ErrorCode is carried by an error response
type ErrorCode uint32

const (
	ErrCodeUnknownCommand ErrorCode = 1
	ErrCodeMalformed      ErrorCode = 2
	ErrCodeUnaligned      ErrorCode = 3
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeUnknownCommand:
		return "unknown command"
	case ErrCodeMalformed:
		return "malformed request"
	case ErrCodeUnaligned:
		return "unaligned address"
	default:
		return "error " + utoa(uint32(c))
	}
}

var ErrUnknownMessage = errors.New("unknown message id")

// Request is a decoded host command
type Request struct {
	Cmd   uint32
	Addr  uint32
	Value uint32
}

// Encode appends the request payload to out
func (r Request) Encode(out OutputBuffer) {
	EncodeVLQUint(out, r.Cmd)
	switch r.Cmd {
	case CmdRegRead:
		EncodeVLQUint(out, r.Addr)
	case CmdRegWrite:
		EncodeVLQUint(out, r.Addr)
		EncodeVLQUint(out, r.Value)
	}
}

// DecodeRequest parses a request payload
func DecodeRequest(payload []byte) (Request, error) {
	var r Request
	var err error
	if r.Cmd, err = DecodeVLQUint(&payload); err != nil {
		return r, err
	}
	switch r.Cmd {
	case CmdIdentify, CmdGetClock:
	case CmdRegRead:
		r.Addr, err = DecodeVLQUint(&payload)
	case CmdRegWrite:
		if r.Addr, err = DecodeVLQUint(&payload); err == nil {
			r.Value, err = DecodeVLQUint(&payload)
		}
	default:
		return r, ErrUnknownMessage
	}
	return r, err
}

// Response is a decoded device reply
type Response struct {
	Kind    uint32
	Addr    uint32
	Value   uint32 // register value, or clock frequency for identify and clock
	Version string
	Code    ErrorCode
}

// Encode appends the response payload to out
func (r Response) Encode(out OutputBuffer) {
	EncodeVLQUint(out, r.Kind)
	switch r.Kind {
	case RespIdentify:
		EncodeVLQString(out, r.Version)
		EncodeVLQUint(out, r.Value)
	case RespRegValue:
		EncodeVLQUint(out, r.Addr)
		EncodeVLQUint(out, r.Value)
	case RespRegWritten:
		EncodeVLQUint(out, r.Addr)
	case RespClock:
		EncodeVLQUint(out, r.Value)
	case RespError:
		EncodeVLQUint(out, uint32(r.Code))
	}
}

// DecodeResponse parses a response payload
func DecodeResponse(payload []byte) (Response, error) {
	var r Response
	var err error
	if r.Kind, err = DecodeVLQUint(&payload); err != nil {
		return r, err
	}
	switch r.Kind {
	case RespIdentify:
		if r.Version, err = DecodeVLQString(&payload); err == nil {
			r.Value, err = DecodeVLQUint(&payload)
		}
	case RespRegValue:
		if r.Addr, err = DecodeVLQUint(&payload); err == nil {
			r.Value, err = DecodeVLQUint(&payload)
		}
	case RespRegWritten:
		r.Addr, err = DecodeVLQUint(&payload)
	case RespClock:
		r.Value, err = DecodeVLQUint(&payload)
	case RespError:
		var code uint32
		code, err = DecodeVLQUint(&payload)
		r.Code = ErrorCode(code)
	default:
		return r, ErrUnknownMessage
	}
	return r, err
}

// utoa formats n without fmt
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

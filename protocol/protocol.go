// Package protocol implements the register monitor link between a host and
// an LPC1343 running the monitor firmware.
//
// Frames use the Klipper block layout: [len][seq][payload][crc hi][crc lo][0x7E]
// with VLQ-encoded integers in the payload. The host numbers requests
// 0x10-0x1F and the device answers with the sequence of the request.
package protocol

// Version is the monitor protocol version reported by identify
const Version = "lpcmon-1"

// Frame layout
const (
	MessageMax         = 64 // largest frame, and the size of a ScratchOutput
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

// NextSequence returns the sequence number after seq, wrapping within
// 0x10-0x1F
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}

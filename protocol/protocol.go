// Package protocol implements the service-link wire format: small framed
// messages carrying VLQ-encoded integers, protected by CRC16 and delimited by
// a sync byte.
package protocol

// Version of the service-link protocol
const Version = "1.0.0"

// Frame layout: <len><seq><payload...><crc hi><crc lo><sync>
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E

	// MessageDest is set in the high nibble of every sequence byte
	MessageDest       = 0x10
	MessageSeqMask    = 0x0F
	MessageScratch    = 256 // scratch output capacity
	MessagePayloadMax = MessageLengthMax - MessageLengthMin
)

// Message is one received frame
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // frame data without header/trailer
	CRC      uint16
}

// NextSequence returns the sequence following seq, wrapping within 0x10..0x1F
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}

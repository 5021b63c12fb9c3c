package protocol

import "errors"

var ErrMessageTooLong = errors.New("message too long")

// BuildFrame wraps payload into a complete frame with the given sequence byte
func BuildFrame(seq uint8, payload []byte) ([]byte, error) {
	n := MessageHeaderSize + len(payload) + MessageTrailerSize
	if n > MessageLengthMax {
		return nil, ErrMessageTooLong
	}
	frame := make([]byte, 0, n)
	frame = append(frame, uint8(n), seq)
	frame = append(frame, payload...)
	return appendTrailer(frame), nil
}

// scanner walks a receive buffer frame by frame, dropping bytes until the
// next sync byte whenever a frame fails validation
type scanner struct {
	synced bool
}

type scanResult uint8

const (
	scanNeedMore scanResult = iota
	scanFrame
	scanResync
)

// next examines the front of data. On scanFrame it returns the message and
// the bytes remaining after it.
func (s *scanner) next(data []byte, destMask bool) (scanResult, *Message, []byte) {
	for len(data) > 0 {
		if !s.synced {
			i := indexSync(data)
			if i < 0 {
				return scanNeedMore, nil, nil
			}
			data = data[i+1:]
			s.synced = true
			return scanResync, nil, data
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		if len(data) < MessageLengthMin {
			return scanNeedMore, nil, data
		}

		n := int(data[MessagePositionLen])
		if n < MessageLengthMin || n > MessageLengthMax {
			s.synced = false
			continue
		}
		seq := data[MessagePositionSeq]
		if destMask && seq&^MessageSeqMask != MessageDest {
			s.synced = false
			continue
		}
		if len(data) < n {
			return scanNeedMore, nil, data
		}
		if data[n-MessageTrailerSync] != MessageValueSync {
			s.synced = false
			continue
		}
		crc := uint16(data[n-MessageTrailerCRC])<<8 | uint16(data[n-MessageTrailerCRC+1])
		if crc != CRC16(data[:n-MessageTrailerSize]) {
			s.synced = false
			continue
		}

		payload := make([]byte, n-MessageLengthMin)
		copy(payload, data[MessageHeaderSize:n-MessageTrailerSize])
		msg := &Message{
			Length:   uint8(n),
			Sequence: seq,
			Payload:  payload,
			CRC:      crc,
		}
		return scanFrame, msg, data[n:]
	}
	return scanNeedMore, nil, data
}

func indexSync(data []byte) int {
	for i, b := range data {
		if b == MessageValueSync {
			return i
		}
	}
	return -1
}

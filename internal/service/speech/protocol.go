package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ProtocolVersion is the only binary framing version the ASR gateway speaks.
const ProtocolVersion = 0b0001

// MessageType is the high nibble of the second header byte.
type MessageType uint8

const (
	FullClientRequest  MessageType = 0b0001
	AudioOnlyRequest   MessageType = 0b0010
	FullServerResponse MessageType = 0b1001
	ServerAck          MessageType = 0b1011
	ErrorMessage       MessageType = 0b1111
)

// MessageFlags says whether a sequence number follows the header and whether
// this is the final packet.
type MessageFlags uint8

const (
	NoSequenceNumber       MessageFlags = 0b0000
	PositiveSequenceNumber MessageFlags = 0b0001
	LastPacketNoSequence   MessageFlags = 0b0010
	NegativeSequenceNumber MessageFlags = 0b0011
)

type SerializationMethod uint8

const (
	NoSerialization   SerializationMethod = 0b0000
	JSONSerialization SerializationMethod = 0b0001
)

type CompressionMethod uint8

const (
	NoCompression   CompressionMethod = 0b0000
	GzipCompression CompressionMethod = 0b0001
)

var ErrProtocol = errors.New("asr protocol violation")

// Header is the 4-byte frame prefix. Each field except Reserved is a nibble.
type Header struct {
	Version       uint8
	Size          uint8 // in 4-byte words
	Type          MessageType
	Flags         MessageFlags
	Serialization SerializationMethod
	Compression   CompressionMethod
	Reserved      uint8
}

// Message is one decoded frame.
type Message struct {
	Header    Header
	Sequence  int32
	ErrorCode uint32
	Payload   []byte
}

func newHeader(t MessageType, flags MessageFlags, ser SerializationMethod, comp CompressionMethod) Header {
	return Header{
		Version:       ProtocolVersion,
		Size:          1,
		Type:          t,
		Flags:         flags,
		Serialization: ser,
		Compression:   comp,
	}
}

func (h Header) encode() [4]byte {
	return [4]byte{
		h.Version<<4 | h.Size&0x0F,
		uint8(h.Type)<<4 | uint8(h.Flags)&0x0F,
		uint8(h.Serialization)<<4 | uint8(h.Compression)&0x0F,
		h.Reserved,
	}
}

func decodeHeader(b []byte) (Header, error) {
	if len(b) < 4 {
		return Header{}, fmt.Errorf("%w: header is %d bytes", ErrProtocol, len(b))
	}
	h := Header{
		Version:       b[0] >> 4,
		Size:          b[0] & 0x0F,
		Type:          MessageType(b[1] >> 4),
		Flags:         MessageFlags(b[1] & 0x0F),
		Serialization: SerializationMethod(b[2] >> 4),
		Compression:   CompressionMethod(b[2] & 0x0F),
		Reserved:      b[3],
	}
	if h.Version != ProtocolVersion {
		return Header{}, fmt.Errorf("%w: version %d", ErrProtocol, h.Version)
	}
	if h.Size == 0 {
		return Header{}, fmt.Errorf("%w: zero header size", ErrProtocol)
	}
	return h, nil
}

func (m *Message) hasSequence() bool {
	switch m.Header.Flags & 0b0011 {
	case PositiveSequenceNumber, NegativeSequenceNumber:
		return true
	}
	return false
}

// IsLast reports whether the frame closes the stream.
func (m *Message) IsLast() bool {
	switch m.Header.Flags & 0b0011 {
	case LastPacketNoSequence, NegativeSequenceNumber:
		return true
	}
	return false
}

// Encode serializes the frame: header, optional sequence, payload size, payload.
func (m *Message) Encode() []byte {
	var buf bytes.Buffer
	hdr := m.Header.encode()
	buf.Write(hdr[:])
	if m.hasSequence() {
		_ = binary.Write(&buf, binary.BigEndian, m.Sequence)
	}
	if m.Header.Type == ErrorMessage {
		_ = binary.Write(&buf, binary.BigEndian, m.ErrorCode)
	}
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(m.Payload)))
	buf.Write(m.Payload)
	return buf.Bytes()
}

// DecodeMessage parses one frame.
func DecodeMessage(r io.Reader) (*Message, error) {
	var raw [4]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header, err := decodeHeader(raw[:])
	if err != nil {
		return nil, err
	}

	msg := &Message{Header: header}
	if extra := int(header.Size)*4 - 4; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(extra)); err != nil {
			return nil, fmt.Errorf("read header extension: %w", err)
		}
	}
	if msg.hasSequence() {
		if err := binary.Read(r, binary.BigEndian, &msg.Sequence); err != nil {
			return nil, fmt.Errorf("read sequence: %w", err)
		}
	}
	if header.Type == ErrorMessage {
		if err := binary.Read(r, binary.BigEndian, &msg.ErrorCode); err != nil {
			return nil, fmt.Errorf("read error code: %w", err)
		}
	}

	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return nil, fmt.Errorf("read payload size: %w", err)
	}
	if size > 0 {
		msg.Payload = make([]byte, size)
		if _, err := io.ReadFull(r, msg.Payload); err != nil {
			return nil, fmt.Errorf("read payload (%d bytes): %w", size, err)
		}
	}
	return msg, nil
}

// newFullClientRequest frames the JSON session parameters that open a stream.
func newFullClientRequest(payload []byte, comp CompressionMethod) *Message {
	return &Message{
		Header:  newHeader(FullClientRequest, NoSequenceNumber, JSONSerialization, comp),
		Payload: payload,
	}
}

// newAudioRequest frames one audio chunk. The final chunk carries a negated sequence.
func newAudioRequest(chunk []byte, seq int32, last bool, comp CompressionMethod) *Message {
	flags := PositiveSequenceNumber
	if last {
		flags = NegativeSequenceNumber
		seq = -seq
	}
	return &Message{
		Header:   newHeader(AudioOnlyRequest, flags, NoSerialization, comp),
		Sequence: seq,
		Payload:  chunk,
	}
}

// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"dopplerlab/internal/log"
	"dopplerlab/internal/transport"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// Packet limits. MaxValues keeps the largest packet within one IPv4 datagram.
const (
	MaxNameLen  = math.MaxUint8
	MaxValues   = (maxDatagram - headerLen - MaxNameLen - 2) / 4
	headerLen   = 4 + 8 + 1 // seq + timestamp + name length
	maxDatagram = 65507
)

// ErrMalformed is returned by DecodePacket for truncated or inconsistent packets.
var ErrMalformed = errors.New("udp: malformed packet")

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Name Length       | uint8          | 1            | Length of the name (L)  |
| Name              | []byte         | L            | Graph name, e.g. "fft"  |
| Value Count       | uint16         | 2            | Number of floats (N)    |
| Values            | []float32      | N * 4        | Graph values            |
+-----------------------------------------------------------------------------+

Visual Layout:

|<-- 4 B -->|<--- 8 B --->|<- 1 B ->|<- L B ->|<- 2 B ->|<----- N * 4 B ----->|
+-----------+-------------+---------+---------+---------+---------------------+
| Sequence  |  Timestamp  | NameLen |  Name   |  Count  |       Values        |
+-----------+-------------+---------+---------+---------+---------------------+
*/

// UDPPublisher implements transport.Transport by packing every frame into
// one datagram. Arrays longer than MaxValues are truncated.
type UDPPublisher struct {
	sender *UDPSender

	mu           sync.Mutex // Serialises packing into the shared buffers.
	sequenceNum  uint32
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
	closed       bool
}

// NewUDPPublisher creates a publisher sending to targetAddress.
func NewUDPPublisher(targetAddress string) (*UDPPublisher, error) {
	sender, err := NewUDPSender(targetAddress)
	if err != nil {
		return nil, err
	}
	return &UDPPublisher{
		sender:       sender,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Publish packs and sends one frame.
func (p *UDPPublisher) Publish(name string, values []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return transport.ErrClosed
	}

	p.sequenceNum++
	if err := p.encode(name, values); err != nil {
		return err
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		return err
	}
	log.Debugf("UDPPublisher: Sent %s packet %d (%d bytes)", name, p.sequenceNum, p.packetBuffer.Len())
	return nil
}

// encode writes the packet for the current sequence number into packetBuffer.
func (p *UDPPublisher) encode(name string, values []float64) error {
	if len(name) > MaxNameLen {
		return fmt.Errorf("UDPPublisher: name of %d bytes exceeds %d", len(name), MaxNameLen)
	}
	if len(values) > MaxValues {
		values = values[:MaxValues]
	}

	if cap(p.f32Buffer) < len(values) {
		p.f32Buffer = make([]float32, len(values))
	}
	f32 := p.f32Buffer[:len(values)]
	for i, v := range values {
		f32[i] = float32(v)
	}

	buf := p.packetBuffer
	buf.Reset()
	buf.Grow(headerLen + len(name) + 2 + 4*len(f32))

	var scratch [8]byte
	binary.BigEndian.PutUint32(scratch[:4], p.sequenceNum)
	buf.Write(scratch[:4])
	binary.BigEndian.PutUint64(scratch[:], uint64(time.Now().UnixNano()))
	buf.Write(scratch[:])
	buf.WriteByte(uint8(len(name)))
	buf.WriteString(name)
	binary.BigEndian.PutUint16(scratch[:2], uint16(len(f32)))
	buf.Write(scratch[:2])
	for _, v := range f32 {
		binary.BigEndian.PutUint32(scratch[:4], math.Float32bits(v))
		buf.Write(scratch[:4])
	}
	return nil
}

// DecodePacket parses a datagram produced by UDPPublisher.
func DecodePacket(packet []byte) (transport.Frame, error) {
	var f transport.Frame
	if len(packet) < headerLen {
		return f, fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformed, len(packet))
	}
	f.Seq = binary.BigEndian.Uint32(packet[0:4])
	f.Timestamp = int64(binary.BigEndian.Uint64(packet[4:12]))
	nameLen := int(packet[12])
	rest := packet[headerLen:]

	if len(rest) < nameLen+2 {
		return f, fmt.Errorf("%w: truncated name or count", ErrMalformed)
	}
	f.Name = string(rest[:nameLen])
	rest = rest[nameLen:]

	count := int(binary.BigEndian.Uint16(rest[:2]))
	rest = rest[2:]
	if len(rest) != 4*count {
		return f, fmt.Errorf("%w: %d value bytes for %d values", ErrMalformed, len(rest), count)
	}

	f.Values = make([]float64, count)
	for i := range f.Values {
		f.Values[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(rest[4*i:])))
	}
	return f, nil
}

// Close closes the underlying sender.
func (p *UDPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	log.Debugf("UDPPublisher: Close called after %d packets", p.sequenceNum)
	return p.sender.Close()
}

var _ transport.Transport = (*UDPPublisher)(nil)

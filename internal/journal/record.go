package journal

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ugorji/go/codec"

	"github.com/yieldprotocol/principald/internal/core/amount"
	"github.com/yieldprotocol/principald/internal/journal/compression"
)

// Record is one append-only journal entry: a successful redemption.
type Record struct {
	Seq        uint64        `json:"seq"`
	From       string        `json:"from"`
	To         string        `json:"to"`
	Principal  amount.Amount `json:"principal"`
	Underlying amount.Amount `json:"underlying"`
	Time       time.Time     `json:"time"`
}

// wireRecord is the CBOR shape stored in a backend. Amounts travel as
// decimal strings, time as unix nanoseconds.
type wireRecord struct {
	Seq        uint64 `codec:"s"`
	From       string `codec:"f"`
	To         string `codec:"t"`
	Principal  string `codec:"p"`
	Underlying string `codec:"u"`
	UnixNano   int64  `codec:"n"`
}

var cborHandle codec.CborHandle

// Storage frame flags.
const (
	frameRaw byte = 0
	frameLZ4 byte = 1
)

// encodeRecord serializes a record to its framed storage bytes:
// [flag][uvarint uncompressed length][payload].
func encodeRecord(rec Record, comp compression.Compressor) ([]byte, error) {
	wire := wireRecord{
		Seq:        rec.Seq,
		From:       rec.From,
		To:         rec.To,
		Principal:  rec.Principal.String(),
		Underlying: rec.Underlying.String(),
		UnixNano:   rec.Time.UnixNano(),
	}
	var encoded []byte
	if err := codec.NewEncoderBytes(&encoded, &cborHandle).Encode(wire); err != nil {
		return nil, fmt.Errorf("journal: encode record %d: %w", rec.Seq, err)
	}

	flag := frameRaw
	payload := encoded
	if comp != nil && comp.Name() != "none" {
		compressed, err := comp.Compress(encoded)
		if err != nil {
			return nil, err
		}
		if compressed != nil {
			flag = frameLZ4
			payload = compressed
		}
	}

	frame := make([]byte, 0, 1+binary.MaxVarintLen64+len(payload))
	frame = append(frame, flag)
	frame = binary.AppendUvarint(frame, uint64(len(encoded)))
	frame = append(frame, payload...)
	return frame, nil
}

// decodeRecord reverses encodeRecord. The frame flag names the
// compressor, so records remain readable after a compression config
// change.
func decodeRecord(frame []byte) (Record, error) {
	if len(frame) < 2 {
		return Record{}, fmt.Errorf("journal: truncated frame")
	}
	flag := frame[0]
	size, n := binary.Uvarint(frame[1:])
	if n <= 0 {
		return Record{}, fmt.Errorf("journal: bad frame header")
	}
	payload := frame[1+n:]

	var encoded []byte
	switch flag {
	case frameRaw:
		encoded = payload
	case frameLZ4:
		var err error
		encoded, err = (&compression.LZ4Compressor{}).Decompress(payload, int(size))
		if err != nil {
			return Record{}, err
		}
	default:
		return Record{}, fmt.Errorf("journal: unknown frame flag %d", flag)
	}

	var wire wireRecord
	if err := codec.NewDecoderBytes(encoded, &cborHandle).Decode(&wire); err != nil {
		return Record{}, fmt.Errorf("journal: decode record: %w", err)
	}
	principal, err := amount.Parse(wire.Principal)
	if err != nil {
		return Record{}, err
	}
	underlying, err := amount.Parse(wire.Underlying)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Seq:        wire.Seq,
		From:       wire.From,
		To:         wire.To,
		Principal:  principal,
		Underlying: underlying,
		Time:       time.Unix(0, wire.UnixNano).UTC(),
	}, nil
}

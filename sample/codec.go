package sample

import (
	"encoding/json"
	"math"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
)

const (
	EncodingJSON     = "json"
	EncodingProtobuf = "protobuf"
)

// Encoder serializes one pushed vector for wire transports.
// seq is outlet local, starts at 1, lets subscribers detect gaps.
type Encoder interface {
	Encode(seq uint64, values []float64) ([]byte, error)
	ContentType() string
}

func NewEncoder(name string) (Encoder, error) {
	switch name {
	case "", EncodingJSON:
		return JSONEncoder{}, nil
	case EncodingProtobuf:
		return ProtobufEncoder{}, nil
	}
	return nil, errors.NotSupportedf("sample encoding=%s", name)
}

type JSONPayload struct {
	Seq    uint64    `json:"seq"`
	Values []float64 `json:"values"`
}

type JSONEncoder struct{}

func (JSONEncoder) ContentType() string { return "application/json" }
func (JSONEncoder) Encode(seq uint64, values []float64) ([]byte, error) {
	for i, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, errors.NotValidf("json value[%d]=%v", i, v)
		}
	}
	return json.Marshal(JSONPayload{Seq: seq, Values: values})
}

// Protobuf wire layout, no generated code:
//
//	message Sample {
//	  repeated double values = 1 [packed = true];
//	  uint64 seq = 2;
//	}
const (
	pbTagValues = 1<<3 | 2 // length delimited
	pbTagSeq    = 2 << 3   // varint
)

type ProtobufEncoder struct{}

func (ProtobufEncoder) ContentType() string { return "application/x-protobuf" }
func (ProtobufEncoder) Encode(seq uint64, values []float64) ([]byte, error) {
	packed := proto.NewBuffer(make([]byte, 0, 8*len(values)))
	for _, v := range values {
		if err := packed.EncodeFixed64(math.Float64bits(v)); err != nil {
			return nil, err
		}
	}
	buf := proto.NewBuffer(make([]byte, 0, 16+8*len(values)))
	if err := buf.EncodeVarint(pbTagValues); err != nil {
		return nil, err
	}
	if err := buf.EncodeRawBytes(packed.Bytes()); err != nil {
		return nil, err
	}
	if err := buf.EncodeVarint(pbTagSeq); err != nil {
		return nil, err
	}
	if err := buf.EncodeVarint(seq); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeProtobuf is the subscriber side of ProtobufEncoder.
func DecodeProtobuf(b []byte) (uint64, []float64, error) {
	var seq uint64
	var values []float64
	buf := proto.NewBuffer(b)
	for len(buf.Unread()) > 0 {
		tag, err := buf.DecodeVarint()
		if err != nil {
			return 0, nil, errors.Annotate(err, "tag")
		}
		switch tag {
		case pbTagValues:
			raw, err := buf.DecodeRawBytes(false)
			if err != nil {
				return 0, nil, errors.Annotate(err, "values")
			}
			if len(raw)%8 != 0 {
				return 0, nil, errors.NotValidf("values length=%d", len(raw))
			}
			inner := proto.NewBuffer(raw)
			for len(inner.Unread()) > 0 {
				bits, err := inner.DecodeFixed64()
				if err != nil {
					return 0, nil, errors.Annotate(err, "value")
				}
				values = append(values, math.Float64frombits(bits))
			}
		case pbTagSeq:
			if seq, err = buf.DecodeVarint(); err != nil {
				return 0, nil, errors.Annotate(err, "seq")
			}
		default:
			return 0, nil, errors.NotSupportedf("protobuf tag=%d", tag)
		}
	}
	return seq, values, nil
}

// EncodeInfo is always JSON, info is small and rare.
func EncodeInfo(info StreamInfo) ([]byte, error) {
	b, err := json.Marshal(info)
	return b, errors.Annotate(err, "stream info")
}

// Package sample turns eye tracker records into fixed order channel vectors.
package sample

import (
	"github.com/google/uuid"
)

type Channel struct {
	Label string `json:"label"`
	Unit  string `json:"unit"`
	Type  string `json:"type"`
	// record attribute this channel is read from
	Attr string `json:"-"`
}

const ChannelCount = 9

// Schema order is the contract with subscribers. Changing it requires new SchemaVersion.
var Schema = [ChannelCount]Channel{
	{Label: "TIME_VAL", Unit: "seconds", Type: "gaze", Attr: "TIME"},
	{Label: "FPOGX", Unit: "percent", Type: "gaze", Attr: "FPOGX"},
	{Label: "FPOGY", Unit: "percent", Type: "gaze", Attr: "FPOGY"},
	{Label: "FPOG_VALID", Unit: "boolean", Type: "gaze", Attr: "FPOGV"},
	{Label: "LPMM", Unit: "mm", Type: "gaze", Attr: "LPMM"},
	{Label: "RPMM", Unit: "mm", Type: "gaze", Attr: "RPMM"},
	{Label: "BKID", Unit: "integer", Type: "gaze", Attr: "BKID"},
	{Label: "BKDUR", Unit: "seconds", Type: "gaze", Attr: "BKDUR"},
	{Label: "BKPMIN", Unit: "integer", Type: "gaze", Attr: "BKPMIN"},
}

const SchemaVersion = 1

// Index of channels in Sample.Values
const (
	ChTime = iota
	ChFPOGX
	ChFPOGY
	ChFPOGValid
	ChLPMM
	ChRPMM
	ChBKID
	ChBKDur
	ChBKPMin
)

const (
	DefaultStreamName = "Gazepoint_Eyetracker"
	DefaultStreamType = "Gaze"
	DefaultSourceID   = "GazepointStream"
	DefaultRate       = 150
	FormatFloat64     = "float64"
)

// StreamInfo is declared to the outlet once, before any sample.
type StreamInfo struct {
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	ChannelCount  int       `json:"channel_count"`
	NominalRate   float64   `json:"nominal_srate"`
	ChannelFormat string    `json:"channel_format"`
	SourceID      string    `json:"source_id"`
	UID           string    `json:"uid"`
	Version       int       `json:"version"`
	Channels      []Channel `json:"channels"`
}

// NewStreamInfo fills channel list from Schema and generates fresh UID.
// Empty arguments take defaults.
func NewStreamInfo(name, typ, sourceID string, rate float64) StreamInfo {
	if name == "" {
		name = DefaultStreamName
	}
	if typ == "" {
		typ = DefaultStreamType
	}
	if sourceID == "" {
		sourceID = DefaultSourceID
	}
	if rate == 0 {
		rate = DefaultRate
	}
	chs := make([]Channel, len(Schema))
	copy(chs, Schema[:])
	return StreamInfo{
		Name:          name,
		Type:          typ,
		ChannelCount:  ChannelCount,
		NominalRate:   rate,
		ChannelFormat: FormatFloat64,
		SourceID:      sourceID,
		UID:           uuid.NewString(),
		Version:       SchemaVersion,
		Channels:      chs,
	}
}

package sample

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRecord = `<REC TIME="12.500" CNT="7" FPOGX="0.40" FPOGY="0.55" FPOGV="1" LPMM="3.2" RPMM="3.1" BKID="0" BKDUR="0.00" BKPMIN="15" />`

func recordAt(time string) string {
	return fmt.Sprintf(`<REC TIME="%s" CNT="1" FPOGX="0.1" FPOGY="0.2" FPOGV="1" LPMM="3" RPMM="3" BKID="0" BKDUR="0" BKPMIN="10" />`, time)
}

func TestAssembleEndToEnd(t *testing.T) {
	t.Parallel()
	var a Assembler
	s, err := a.Assemble(testRecord)
	require.NoError(t, err)
	assert.Equal(t, [ChannelCount]float64{12.5, 0.40, 0.55, 1, 3.2, 3.1, 0, 0, 15}, s.Values)
	assert.Equal(t, float64(7), s.Counter)
	assert.Equal(t, 12.5, s.Time())
	assert.Equal(t, 12.5, a.PrevTime())
	assert.InDelta(t, 1/12.5, s.Rate, 1e-12)
	assert.Equal(t, "Gaze: (0.40,0.55)  Timestamp: 12.5s  Count: 7  Fs: 0.1Hz", s.String())
}

func TestAssembleSchemaOrder(t *testing.T) {
	t.Parallel()
	// each attribute carries its schema index, attributes shuffled
	attrs := make([]string, 0, ChannelCount+1)
	for i := ChannelCount - 1; i >= 0; i-- {
		attrs = append(attrs, fmt.Sprintf(`%s="%d"`, Schema[i].Attr, i))
	}
	attrs = append(attrs, `CNT="99"`)
	frame := "<REC " + strings.Join(attrs, " ") + " />"

	var a Assembler
	s, err := a.Assemble(frame)
	require.NoError(t, err)
	for i := 0; i < ChannelCount; i++ {
		assert.Equal(t, float64(i), s.Values[i], "channel %s", Schema[i].Label)
	}
}

func TestAssembleMissing(t *testing.T) {
	t.Parallel()
	cases := []string{"TIME", "CNT", "FPOGX", "FPOGY", "FPOGV", "LPMM", "RPMM", "BKID", "BKDUR", "BKPMIN"}
	for _, name := range cases {
		name := name
		t.Run(name, func(t *testing.T) {
			frame := strings.Replace(testRecord, " "+name+"=", " X"+name+"=", 1)
			require.NotEqual(t, testRecord, frame, "code error in test")
			var a Assembler
			s, err := a.Assemble(frame)
			require.Error(t, err)
			assert.True(t, errors.IsNotFound(err), "err=%v", err)
			assert.Contains(t, err.Error(), name)
			assert.Equal(t, Sample{}, s)
			assert.Equal(t, float64(0), a.PrevTime(), "failed frame must not touch rate state")
		})
	}
}

func TestAssembleTagPrefix(t *testing.T) {
	t.Parallel()
	var a Assembler
	s, err := a.Assemble(strings.Replace(testRecord, "<REC ", "<RECX ", 1))
	require.NoError(t, err)
	assert.Equal(t, [ChannelCount]float64{12.5, 0.40, 0.55, 1, 3.2, 3.1, 0, 0, 15}, s.Values)

	_, err = a.Assemble(" " + testRecord)
	require.Error(t, err)
	assert.True(t, errors.IsNotValid(err))
}

func TestAssembleMalformed(t *testing.T) {
	t.Parallel()
	var a Assembler
	_, err := a.Assemble(strings.Replace(testRecord, `BKPMIN="15"`, `BKPMIN="1,5"`, 1))
	require.Error(t, err)
	assert.True(t, errors.IsNotValid(err))

	_, err = a.Assemble(`<ACK ID="ENABLE_SEND_DATA" STATE="1" />`)
	require.Error(t, err)
	assert.True(t, errors.IsNotValid(err))
}

func TestAssembleRate(t *testing.T) {
	t.Parallel()
	var a Assembler
	_, err := a.Assemble(recordAt("10.000"))
	require.NoError(t, err)
	s, err := a.Assemble(recordAt("10.010"))
	require.NoError(t, err)
	assert.InDelta(t, 100.0, s.Rate, 1e-6)

	s, err = a.Assemble(recordAt("10.010"))
	require.NoError(t, err, "equal timestamps must not halt processing")
	assert.False(t, IsFinite(s.Rate))
	assert.True(t, math.IsInf(s.Rate, 1))
	assert.Equal(t, 10.010, a.PrevTime())

	// going back in time is exposed as negative rate
	s, err = a.Assemble(recordAt("9.990"))
	require.NoError(t, err)
	assert.InDelta(t, -50.0, s.Rate, 1e-6)
	assert.Equal(t, 9.990, a.PrevTime())
}

func TestStreamInfo(t *testing.T) {
	t.Parallel()
	a := NewStreamInfo("", "", "", 0)
	b := NewStreamInfo("custom", "Gaze", "src", 60)
	assert.Equal(t, DefaultStreamName, a.Name)
	assert.Equal(t, DefaultStreamType, a.Type)
	assert.Equal(t, DefaultSourceID, a.SourceID)
	assert.Equal(t, float64(DefaultRate), a.NominalRate)
	assert.Equal(t, ChannelCount, a.ChannelCount)
	assert.Equal(t, FormatFloat64, a.ChannelFormat)
	assert.NotEmpty(t, a.UID)
	assert.NotEqual(t, a.UID, b.UID)
	assert.Equal(t, "custom", b.Name)
	assert.Equal(t, float64(60), b.NominalRate)

	labels := make([]string, 0, ChannelCount)
	for _, ch := range a.Channels {
		labels = append(labels, ch.Label+"("+ch.Unit+")")
	}
	assert.Equal(t, []string{"TIME_VAL(seconds)", "FPOGX(percent)", "FPOGY(percent)", "FPOG_VALID(boolean)",
		"LPMM(mm)", "RPMM(mm)", "BKID(integer)", "BKDUR(seconds)", "BKPMIN(integer)"}, labels)

	// caller may not modify package schema through info
	a.Channels[0].Label = "broken"
	assert.Equal(t, "TIME_VAL", Schema[0].Label)
}

package opengaze

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRecord(t *testing.T) {
	t.Parallel()
	assert.True(t, IsRecord(`<REC TIME="1" />`))
	assert.True(t, IsRecord(`<REC/>`))
	assert.False(t, IsRecord(`<ACK ID="ENABLE_SEND_DATA" STATE="1" />`))
	assert.False(t, IsRecord(`<rec TIME="1" />`))
	assert.False(t, IsRecord(` <REC TIME="1" />`))
	assert.False(t, IsRecord(``))
}

func TestRecordFloat(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		input  string
		attr   string
		expect float64
	}{
		{"first", `<REC FPOGX="0.512" FPOGY="0.3" />`, "FPOGX", 0.512},
		{"last", `<REC FPOGY="0.3" CNT="9" FPOGX="0.512" />`, "FPOGX", 0.512},
		{"whitespace", "<REC  CNT=\"9\"\tFPOGX = \"0.512\"   />", "FPOGX", 0.512},
		{"padded-value", `<REC FPOGX=" 0.512 " />`, "FPOGX", 0.512},
		{"negative", `<REC FPOGX="-0.5" />`, "FPOGX", -0.5},
		{"integer", `<REC BKPMIN="15" />`, "BKPMIN", 15},
		{"exponent", `<REC TIME="1.5e2" />`, "TIME", 150},
		{"first-occurrence-wins", `<REC CNT="1" CNT="2" />`, "CNT", 1},
		{"name-boundary", `<REC BFPOGX="9" FPOGX="0.25" />`, "FPOGX", 0.25},
		{"suffix-boundary", `<REC FPOGXV="9" FPOGX="0.25" />`, "FPOGX", 0.25},
		{"no-slash", `<REC TIME="3.25">`, "TIME", 3.25},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			r := ParseRecord(c.input)
			assert.Equal(t, RecordTag, r.Tag)
			v, err := r.Float(c.attr)
			require.NoError(t, err)
			assert.Equal(t, c.expect, v)
		})
	}
}

func TestRecordFloatError(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		input    string
		attr     string
		notFound bool
	}{
		{"absent", `<REC FPOGY="0.3" />`, "FPOGX", true},
		{"prefix-only", `<REC FPOGXV="0.3" />`, "FPOGX", true},
		{"no-quote", `<REC FPOGX=0.3 />`, "FPOGX", true},
		{"empty", `<REC FPOGX="" />`, "FPOGX", false},
		{"text", `<REC FPOGX="abc" />`, "FPOGX", false},
		{"nan", `<REC FPOGX="NaN" />`, "FPOGX", false},
		{"inf", `<REC FPOGX="Inf" />`, "FPOGX", false},
		{"locale-comma", `<REC FPOGX="0,5" />`, "FPOGX", false},
		{"double-dot", `<REC FPOGX="0.5.1" />`, "FPOGX", false},
		{"overflow", `<REC FPOGX="1e999" />`, "FPOGX", false},
		{"unterminated", `<REC FPOGX="0.5`, "FPOGX", false},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			r := ParseRecord(c.input)
			_, err := r.Float(c.attr)
			require.Error(t, err)
			assert.Equal(t, c.notFound, errors.IsNotFound(err), "err=%v", err)
			assert.Equal(t, !c.notFound, errors.IsNotValid(err), "err=%v", err)
			assert.Contains(t, err.Error(), c.attr)
		})
	}
}

func TestParseRecordTolerant(t *testing.T) {
	t.Parallel()
	r := ParseRecord(`<ACK ID="ENABLE_SEND_DATA" STATE="1" /> garbage "x" =`)
	assert.Equal(t, "ACK", r.Tag)
	assert.Equal(t, 2, r.Len())
	id, ok := r.Lookup("ID")
	assert.True(t, ok)
	assert.Equal(t, "ENABLE_SEND_DATA", id)
	_, ok = r.Lookup("garbage")
	assert.False(t, ok)

	empty := ParseRecord("")
	assert.Equal(t, "", empty.Tag)
	assert.Equal(t, 0, empty.Len())
}

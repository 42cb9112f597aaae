package helpers

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
)

// StatReader counts bytes read into prometheus counter.
// F is added per successful Read call, models protocol overhead.
type StatReader struct {
	R io.Reader
	C prometheus.Counter
	F int64
}

var _ io.Reader = &StatReader{}

func NewStatReader(r io.Reader, c prometheus.Counter, fix int64) *StatReader {
	return &StatReader{R: r, F: fix, C: c}
}

func (sr *StatReader) Read(p []byte) (n int, err error) {
	n, err = sr.R.Read(p)
	if n > 0 {
		sr.C.Add(float64(int64(n) + sr.F))
	}
	return
}

type StatWriter struct {
	W io.Writer
	C prometheus.Counter
	F int64
}

var _ io.Writer = &StatWriter{}

func NewStatWriter(w io.Writer, c prometheus.Counter, fix int64) *StatWriter {
	return &StatWriter{W: w, F: fix, C: c}
}

func (sw *StatWriter) Write(p []byte) (n int, err error) {
	n, err = sw.W.Write(p)
	if n > 0 {
		sw.C.Add(float64(int64(n) + sw.F))
	}
	return
}

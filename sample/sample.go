package sample

import (
	"fmt"
	"math"

	"github.com/juju/errors"
	"github.com/temoto/gazestream/opengaze"
)

const attrCounter = "CNT"

type Sample struct {
	Values [ChannelCount]float64
	// diagnostics, not published
	Counter float64
	Rate    float64
}

func (self *Sample) Time() float64 { return self.Values[ChTime] }

func (self *Sample) String() string {
	return fmt.Sprintf("Gaze: (%.2f,%.2f)  Timestamp: %.1fs  Count: %v  Fs: %.1fHz",
		self.Values[ChFPOGX], self.Values[ChFPOGY], self.Values[ChTime], self.Counter, self.Rate)
}

// Assembler owns rate estimator state, not safe for concurrent use.
type Assembler struct {
	prevTime float64
}

// Assemble accepts any frame starting with "<REC", same as opengaze.IsRecord.
// It reads TIME, CNT and the rest of Schema attributes from data frame.
// Any missing or malformed attribute fails whole frame and leaves rate state untouched.
// Rate is 1/(TIME-previous TIME), non-finite when timestamps repeat.
func (self *Assembler) Assemble(frame string) (Sample, error) {
	var s Sample
	if !opengaze.IsRecord(frame) {
		return s, errors.NotValidf("frame %.16q is not a record", frame)
	}
	r := opengaze.ParseRecord(frame)

	var err error
	if s.Values[ChTime], err = r.Float(Schema[ChTime].Attr); err != nil {
		return Sample{}, err
	}
	if s.Counter, err = r.Float(attrCounter); err != nil {
		return Sample{}, err
	}
	for i := ChTime + 1; i < ChannelCount; i++ {
		if s.Values[i], err = r.Float(Schema[i].Attr); err != nil {
			return Sample{}, err
		}
	}

	s.Rate = Rate(self.prevTime, s.Values[ChTime])
	self.prevTime = s.Values[ChTime]
	return s, nil
}

func (self *Assembler) PrevTime() float64 { return self.prevTime }

func Rate(prev, current float64) float64 { return 1 / (current - prev) }

func IsFinite(f float64) bool { return !math.IsInf(f, 0) && !math.IsNaN(f) }

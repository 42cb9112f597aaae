package opengaze

import (
	"bufio"
	"fmt"
	"io"

	"github.com/juju/errors"
)

// Server side feature switches, each enables a group of record attributes.
const (
	EnableSendTime       = "ENABLE_SEND_TIME"
	EnableSendCounter    = "ENABLE_SEND_COUNTER"
	EnableSendPOGFix     = "ENABLE_SEND_POG_FIX"
	EnableSendBlink      = "ENABLE_SEND_BLINK"
	EnableSendPupilMM    = "ENABLE_SEND_PUPILMM"
	EnableSendLeftPupil  = "ENABLE_SEND_LEFT_PUPIL"
	EnableSendRightPupil = "ENABLE_SEND_RIGHT_PUPIL"
	EnableSendData       = "ENABLE_SEND_DATA"
)

// Control server listens on loopback only.
const DefaultServerAddress = "127.0.0.1:4242"

// StreamFeatures are enabled in this order, ENABLE_SEND_DATA must go last
// so the first record already carries every field.
var StreamFeatures = []string{
	EnableSendTime,
	EnableSendCounter,
	EnableSendPOGFix,
	EnableSendBlink,
	EnableSendPupilMM,
	EnableSendLeftPupil,
	EnableSendRightPupil,
	EnableSendData,
}

func SetCommand(id string, state bool) string {
	s := 0
	if state {
		s = 1
	}
	return fmt.Sprintf(`<SET ID="%s" STATE="%d" />`, id, s) + Terminator
}

// WriteEnable writes SET STATE=1 for each feature and flushes.
func WriteEnable(w *bufio.Writer, features []string) error {
	for _, id := range features {
		if _, err := io.WriteString(w, SetCommand(id, true)); err != nil {
			return errors.Annotatef(err, "write %s", id)
		}
	}
	return errors.Annotate(w.Flush(), "flush")
}

package input

import (
	"strings"

	"github.com/temoto/alive/v2"
	"github.com/temoto/gazestream/log2"
)

const DefaultQuitKey = "q"

type Config struct {
	QuitKey      string `hcl:"quit_key"`
	InputDevice  string `hcl:"input_device"`
	InputKeyCode int    `hcl:"input_key_code"`
}

// IsQuit matches quit key typed in terminal (case-insensitive)
// or configured key code pressed on input device.
func (c Config) IsQuit(e Event) bool {
	switch e.Source {
	case TerminalTag:
		key := c.QuitKey
		if key == "" {
			key = DefaultQuitKey
		}
		return strings.EqualFold(string(rune(e.Key)), key)
	case DevInputEventTag:
		code := c.InputKeyCode
		if code == 0 {
			code = KeyCodeQ
		}
		return !e.Up && e.Key == Key(code)
	}
	return false
}

// StopOnQuit stops alive on first quit event.
func StopOnQuit(d *Dispatch, a *alive.Alive, config Config, log *log2.Log) {
	d.SubscribeFunc("quit", func(e Event) {
		if config.IsQuit(e) && a.IsRunning() {
			log.Infof("quit requested source=%s", e.Source)
			a.Stop()
		}
	})
}

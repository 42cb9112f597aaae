package state

import (
	"net"
	"path/filepath"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/gazestream/bridge"
	"github.com/temoto/gazestream/display"
	"github.com/temoto/gazestream/helpers"
	"github.com/temoto/gazestream/input"
	"github.com/temoto/gazestream/log2"
	"github.com/temoto/gazestream/opengaze"
	"github.com/temoto/gazestream/outlet"
	"github.com/temoto/gazestream/sample"
	"github.com/temoto/gazestream/tele"
)

const DefaultConfigName = "gazestream.hcl"

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Device bridge.Config `hcl:"device"`
	Stream struct {
		Name     string  `hcl:"name"`
		Type     string  `hcl:"type"`
		SourceID string  `hcl:"source_id"`
		Rate     float64 `hcl:"rate"`
	} `hcl:"stream"`
	Outlet   outlet.Config  `hcl:"outlet"`
	Operator input.Config   `hcl:"operator"`
	Display  display.Config `hcl:"display"`
	Metrics  tele.Config    `hcl:"metrics"`
	Log      struct {
		Level string `hcl:"level"`
	} `hcl:"log"`
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

// NewConfig returns defaults, sources only override what they mention.
func NewConfig() *Config {
	c := &Config{includeSeen: make(map[string]struct{})}
	c.Device.Address = opengaze.DefaultServerAddress
	c.Device.FrameMax = opengaze.DefaultFrameMax
	c.Stream.Name = sample.DefaultStreamName
	c.Stream.Type = sample.DefaultStreamType
	c.Stream.SourceID = sample.DefaultSourceID
	c.Stream.Rate = sample.DefaultRate
	c.Outlet.Kind = outlet.KindWebsocket
	c.Outlet.Encoding = sample.EncodingJSON
	c.Operator.QuitKey = input.DefaultQuitKey
	c.Operator.InputKeyCode = input.KeyCodeQ
	c.Display.Enable = true
	c.Metrics.Path = tele.DefaultPath
	c.Log.Level = log2.LInfo.String()
	return c
}

func (c *Config) StreamInfo() sample.StreamInfo {
	return sample.NewStreamInfo(c.Stream.Name, c.Stream.Type, c.Stream.SourceID, c.Stream.Rate)
}

func (c *Config) LogLevel() log2.Level {
	l, _ := log2.ParseLevel(c.Log.Level)
	return l
}

func (c *Config) Validate() error {
	errs := make([]error, 0, 8)
	if _, _, err := net.SplitHostPort(c.Device.Address); err != nil {
		errs = append(errs, errors.NewNotValid(err, "device address="+c.Device.Address))
	}
	if c.Device.DialTimeoutSec < 0 || c.Device.ReadTimeoutSec < 0 {
		errs = append(errs, errors.NotValidf("device negative timeout"))
	}
	if c.Device.FrameMax < 0 {
		errs = append(errs, errors.NotValidf("device frame_max=%d", c.Device.FrameMax))
	}
	if c.Stream.Rate < 0 {
		errs = append(errs, errors.NotValidf("stream rate=%v", c.Stream.Rate))
	}
	switch c.Outlet.Kind {
	case "", outlet.KindNone, outlet.KindMQTT, outlet.KindWebsocket, outlet.KindNATS:
	default:
		errs = append(errs, errors.NotSupportedf("outlet kind=%s", c.Outlet.Kind))
	}
	if _, err := sample.NewEncoder(c.Outlet.Encoding); err != nil {
		errs = append(errs, err)
	}
	if len(c.Operator.QuitKey) > 1 {
		errs = append(errs, errors.NotValidf("operator quit_key=%q must be single character", c.Operator.QuitKey))
	}
	if _, err := log2.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return helpers.FoldErrors(errs)
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	sources := make([]ConfigSource, len(names))
	for i, name := range names {
		sources[i] = ConfigSource{Name: name}
	}
	return ReadConfigSources(log, fs, sources...)
}

// ReadConfigSources applies sources over defaults in order, then validates.
// Relative includes resolve against directory of first source.
func ReadConfigSources(log *log2.Log, fs FullReader, sources ...ConfigSource) (*Config, error) {
	if len(sources) == 0 {
		log.Fatal("code error ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(sources[0].Name)
		osfs.SetBase(dir)
		sources[0].Name = name
	}
	c := NewConfig()
	errs := make([]error, 0, 8)
	for _, source := range sources {
		c.read(log, fs, source, &errs)
	}
	if len(errs) == 0 {
		errs = append(errs, c.Validate())
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}

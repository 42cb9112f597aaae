// gazestream bridges Gazepoint eye tracker Open Gaze API to a live sample stream.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/spf13/pflag"
	"github.com/temoto/alive/v2"
	"github.com/temoto/gazestream/bridge"
	"github.com/temoto/gazestream/display"
	"github.com/temoto/gazestream/input"
	"github.com/temoto/gazestream/log2"
	"github.com/temoto/gazestream/outlet"
	"github.com/temoto/gazestream/state"
	"github.com/temoto/gazestream/tele"
)

const cmdName = "gazestream"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet(cmdName, pflag.ContinueOnError)
	flagConfig := flags.StringP("config", "c", state.DefaultConfigName, "config file")
	flagAddress := flags.String("address", "", "override device.address, host:port of Gazepoint control server")
	flagOutlet := flags.String("outlet", "", "override outlet.kind: websocket|mqtt|nats|none")
	flagLogLevel := flags.String("log-level", "", "override log.level: error|info|debug")
	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 1
	}

	log := log2.NewStderr(log2.LInfo)
	if sdnotify(log, "STATUS=starting") {
		// under systemd, journal adds timestamps
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}

	config, err := readConfig(log, flags, *flagConfig, *flagAddress, *flagOutlet, *flagLogLevel)
	if err != nil {
		log.Errorf("config: %s", errors.ErrorStack(err))
		return 1
	}
	log.SetLevel(config.LogLevel())
	log.Debugf("config=%+v", config)

	a := alive.NewAlive()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopOnSignal(a, log)

	stat := tele.NewStat()
	metricsServer, err := stat.Serve(ctx, config.Metrics, log)
	if err != nil {
		log.Errorf("%s", errors.ErrorStack(err))
		return 1
	}
	defer metricsServer.Close()

	o, err := outlet.New(config.Outlet, log, stat.OutletStat())
	if err != nil {
		log.Errorf("%s", errors.ErrorStack(err))
		return 1
	}

	sources := inputSources(config.Operator, log)
	defer func() {
		for _, s := range sources {
			if err := s.Close(); err != nil {
				log.Errorf("input close source=%s err=%v", s.String(), err)
			}
		}
	}()
	dispatch := input.NewDispatch(log, a.StopChan())
	input.StopOnQuit(dispatch, a, config.Operator, log)
	go dispatch.Run(sources)

	b := bridge.New(config.Device, config.StreamInfo(), o, a, log, stat)
	b.SetDisplay(display.NewStdout(config.Display, log))
	b.OnState = func(s bridge.State) {
		switch s {
		case bridge.StateStreaming:
			log.Infof("streaming, press '%s' or Ctrl-C to quit", config.Operator.QuitKey)
			sdnotify(log, daemon.SdNotifyReady)
		case bridge.StateClosing:
			sdnotify(log, daemon.SdNotifyStopping)
		}
	}
	err = b.Run(ctx)
	a.Stop()
	if err != nil {
		log.Errorf("%s", errors.ErrorStack(err))
		return 1
	}
	return 0
}

// readConfig tolerates missing default config file, explicit --config must exist.
func readConfig(log *log2.Log, flags *pflag.FlagSet, name, address, outletKind, logLevel string) (*state.Config, error) {
	source := state.ConfigSource{Name: name, Optional: !flags.Changed("config")}
	config, err := state.ReadConfigSources(log, state.NewOsFullReader(), source)
	if err != nil {
		return nil, err
	}
	if address == "" && outletKind == "" && logLevel == "" {
		return config, nil
	}
	if address != "" {
		config.Device.Address = address
	}
	if outletKind != "" {
		config.Outlet.Kind = outletKind
	}
	if logLevel != "" {
		config.Log.Level = logLevel
	}
	return config, config.Validate()
}

func inputSources(config input.Config, log *log2.Log) []input.Source {
	sources := make([]input.Source, 0, 2)
	term, err := input.NewTerminalSource(os.Stdin)
	if err != nil {
		log.Errorf("quit key from terminal disabled err=%v", err)
	} else {
		sources = append(sources, term)
	}
	if config.InputDevice != "" {
		dev, err := input.NewDevInputEventSource(config.InputDevice)
		if err != nil {
			log.Errorf("input device=%s err=%v", config.InputDevice, err)
		} else {
			sources = append(sources, dev)
		}
	}
	return sources
}

func stopOnSignal(a *alive.Alive, log *log2.Log) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			log.Infof("signal=%v stopping", sig)
			a.Stop()
		case <-a.StopChan():
		}
		signal.Stop(sigs)
	}()
}

func sdnotify(log *log2.Log, s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Errorf("sdnotify: %s", errors.ErrorStack(err))
	}
	return ok
}

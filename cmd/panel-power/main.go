// Command panel-power holds the board's power latch, turns power-button
// presses into sleep/restart/shutdown, and reports battery state over MQTT,
// D-Bus and HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/sweeney/panel-power/internal/adc"
	"github.com/sweeney/panel-power/internal/config"
	"github.com/sweeney/panel-power/internal/gpio"
	"github.com/sweeney/panel-power/internal/logic"
	"github.com/sweeney/panel-power/internal/mqtt"
	"github.com/sweeney/panel-power/internal/platform"
	"github.com/sweeney/panel-power/internal/power"
	"github.com/sweeney/panel-power/internal/status"
	"github.com/sweeney/panel-power/internal/web"
)

var (
	log     = logrus.New()
	version = "<not set>"
)

type Args struct {
	Config      string        `arg:"-c,--config" help:"path to the TOML configuration file"`
	Broker      string        `arg:"--broker" help:"MQTT broker address (empty to disable)"`
	ClientID    string        `arg:"--client-id" help:"MQTT client ID"`
	Heartbeat   time.Duration `arg:"--heartbeat" help:"heartbeat interval (0 to disable)"`
	HTTP        string        `arg:"--http" help:"HTTP status address (empty to disable)"`
	PrintState  bool          `arg:"--print-state" help:"print button and battery state, then exit"`
	PrintConfig bool          `arg:"--print-config" help:"print the effective configuration, then exit"`
	NoPlatform  bool          `arg:"--no-platform" help:"log power actions instead of performing them"`
	LogLevel    string        `arg:"-l,--log-level" help:"set the logging level (debug, info, warn, error)"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	args := Args{
		Config:    config.DefaultPath,
		Broker:    "tcp://127.0.0.1:1883",
		ClientID:  "panel-power",
		Heartbeat: 15 * time.Minute,
		HTTP:      ":8080",
		LogLevel:  "info",
	}
	arg.MustParse(&args)
	return args
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		log.Warn("Unknown log level, defaulting to info")
	}
}

type customFormatter struct{}

func (f *customFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(entry.Level.String())
	if c, ok := entry.Data["component"]; ok {
		return []byte(fmt.Sprintf("[%s] %v: %s\n", level, c, entry.Message)), nil
	}
	return []byte(fmt.Sprintf("[%s] %s\n", level, entry.Message)), nil
}

func component(name string) logrus.FieldLogger {
	return log.WithField("component", name)
}

func main() {
	if err := runMain(); err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	log.SetFormatter(new(customFormatter))
	args := procArgs()
	setLogLevel(args.LogLevel)

	log.Infof("Running version: %s", version)

	cfg, err := config.Load(args.Config)
	if err != nil {
		return err
	}

	if args.PrintConfig {
		out, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	}

	if args.PrintState {
		return printState(cfg)
	}

	pins, err := gpio.NewRealPins(cfg.GPIOConfig())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	// Closing leaves the latch level as-is; exiting must never cut the rail.
	defer pins.Close()

	plat, signaler, err := openPlatform(args.NoPlatform)
	if err != nil {
		return err
	}

	backlight := openBacklight(cfg.Backlight.Dir)
	ctl := power.NewController(cfg.PowerConfig(), pins, pins, plat, backlight, component("power"))
	if _, err := ctl.Init(); err != nil {
		return fmt.Errorf("init power: %w", err)
	}

	converter, err := adc.NewADS1115(cfg.ADS1115Config())
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer converter.Close()
	sampler := adc.NewSampler(cfg.SamplerConfig(), converter, component("adc"))

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = disabledPublisher{}
	if args.Broker != "" {
		publisher = mqtt.NewRealPublisher(args.Broker, args.ClientID, mqtt.DefaultBufferSize, component("mqtt"))
	}
	defer publisher.Close()

	start := time.Now()
	tracker := status.NewTracker(start, status.Config{
		PowerTickMs:   cfg.PowerTick().Milliseconds(),
		BatteryTickMs: cfg.BatteryTick().Milliseconds(),
		HeartbeatMs:   args.Heartbeat.Milliseconds(),
		SleepTicks:    cfg.Power.SleepTicks,
		RestartTicks:  cfg.Power.RestartTicks,
		ShutdownTicks: cfg.Power.ShutdownTicks,
		Broker:        args.Broker,
		HTTPPort:      args.HTTP,
	})

	if args.HTTP != "" {
		srv := web.New(args.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infof("http status server listening on %s", args.HTTP)
	}

	d := &daemon{
		ctl:            ctl,
		battery:        sampler,
		monitor:        logic.NewBatteryMonitor(cfg.TrendConfig(), cfg.DisplayConfig()),
		heartbeat:      logic.NewHeartbeat(start),
		heartbeatEvery: args.Heartbeat,
		publisher:      publisher,
		mqttStatus:     publisher,
		signaler:       signaler,
		tracker:        tracker,
		log:            log,
		now:            time.Now,
		start:          start,
	}
	ctl.OnAction = d.onAction
	d.announce()

	log.Infof("started: power tick=%v battery tick=%v broker=%q heartbeat=%v",
		cfg.PowerTick(), cfg.BatteryTick(), args.Broker, args.Heartbeat)

	powerTicker := time.NewTicker(cfg.PowerTick())
	defer powerTicker.Stop()
	batteryTicker := time.NewTicker(cfg.BatteryTick())
	defer batteryTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(context.Background(), d, powerTicker.C, batteryTicker.C, sigCh)
}

func openPlatform(dryRun bool) (platform.Platform, platform.BatterySignaler, error) {
	if dryRun {
		return platform.DryRun{Log: component("platform")}, nil, nil
	}
	login1, err := platform.NewLogin1(component("platform"))
	if err != nil {
		return nil, nil, fmt.Errorf("init platform: %w", err)
	}
	return login1, login1, nil
}

func openBacklight(dir string) platform.Backlight {
	if dir == "" {
		return platform.NoBacklight{}
	}
	bl, err := platform.NewSysfsBacklight(dir, component("backlight"))
	if err != nil {
		log.Warnf("backlight disabled: %v", err)
		return platform.NoBacklight{}
	}
	return bl
}

func printState(cfg config.Config) error {
	pressed, err := gpio.ReadButton(cfg.GPIOConfig())
	if err != nil {
		return err
	}

	converter, err := adc.NewADS1115(cfg.ADS1115Config())
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer converter.Close()

	sampler := adc.NewSampler(cfg.SamplerConfig(), converter, log)
	volts, err := sampler.Volts()
	if err != nil {
		return err
	}

	fmt.Printf("button: %s, battery: %.3f V (raw=%d pin=%dmV calibrated=%t)\n",
		pressedString(pressed), volts, sampler.LastRaw(), sampler.LastPinMillivolts(), sampler.Calibrated())
	return nil
}

func pressedString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}

// disabledPublisher stands in when no broker is configured.
type disabledPublisher struct{}

func (disabledPublisher) Publish(logic.Event) error            { return nil }
func (disabledPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (disabledPublisher) Close() error                         { return nil }
func (disabledPublisher) IsConnected() bool                    { return false }

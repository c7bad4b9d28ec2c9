package main

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/panel-power/internal/adc"
	"github.com/sweeney/panel-power/internal/logic"
	"github.com/sweeney/panel-power/internal/mqtt"
	"github.com/sweeney/panel-power/internal/platform"
	"github.com/sweeney/panel-power/internal/power"
	"github.com/sweeney/panel-power/internal/status"
)

// daemon is everything runLoop touches. All fields are used from the loop's
// goroutine only, except tracker which is read by HTTP handlers.
type daemon struct {
	ctl            *power.Controller
	battery        adc.Source
	monitor        *logic.BatteryMonitor
	heartbeat      *logic.Heartbeat
	heartbeatEvery time.Duration
	publisher      mqtt.Publisher
	mqttStatus     mqtt.ConnectionStatus // may be nil
	signaler       platform.BatterySignaler
	tracker        *status.Tracker
	log            logrus.FieldLogger
	now            func() time.Time
	start          time.Time

	signalled    bool
	lastPercent  int
	lastCharging bool
}

func (d *daemon) millis() logic.Millis {
	return logic.MillisSince(d.start, d.now())
}

// runLoop multiplexes the power tick, the battery tick and OS signals on one
// goroutine. It returns after a SIGINT/SIGTERM or once a shutdown has been
// carried out.
func runLoop(ctx context.Context, d *daemon, powerTick, batteryTick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			d.log.Infof("received %v, shutting down", s)
			d.systemEvent("SHUTDOWN", signalName(s), true)
			return nil

		case <-powerTick:
			if d.powerTick(ctx) {
				d.systemEvent("SHUTDOWN", "POWER_BUTTON", true)
				return nil
			}

		case <-batteryTick:
			d.batteryTick()
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// announce publishes the retained STARTUP status and the BOOT event.
func (d *daemon) announce() {
	d.updatePower()
	d.systemEvent("STARTUP", "", true)
	d.publish(logic.Event{Type: logic.EventBoot})
}

// powerTick reports whether the device has been shut down.
func (d *daemon) powerTick(ctx context.Context) bool {
	action, err := d.ctl.Tick(ctx)
	if err != nil {
		d.log.Errorf("power action %s failed: %v", action, err)
	}

	if action == logic.ActionSleep {
		d.publish(logic.Event{Type: logic.EventWake})
	}
	d.updatePower()
	return action == logic.ActionShutdown
}

// onAction is the controller hook: it runs before the action's side effects,
// so SHUTDOWN and RESTART are published while the system is still up.
func (d *daemon) onAction(action logic.Action, pressTicks uint16) {
	typ, ok := logic.EventForAction(action)
	if !ok {
		return
	}
	d.publish(logic.Event{Type: typ, PressTicks: pressTicks})
}

func (d *daemon) updatePower() {
	d.tracker.UpdatePower(status.PowerInfo{
		State:      d.ctl.State(),
		Pending:    d.ctl.Pending(),
		PressTicks: d.ctl.PressTicks(),
		Latched:    d.ctl.Latched(),
	})
}

func (d *daemon) batteryTick() {
	d.readBattery()
	d.checkHeartbeat()
}

func (d *daemon) readBattery() {
	volts, err := d.battery.Volts()
	if err != nil {
		d.log.Warnf("battery read failed: %v", err)
		return
	}

	reading, events := d.monitor.Update(volts, d.millis())
	d.tracker.UpdateBattery(reading)
	if !reading.Valid {
		d.log.Debugf("battery sample %.3fV rejected", volts)
	}

	for _, e := range events {
		d.publish(e)
	}
	d.signalBattery(reading)
}

// checkHeartbeat runs on every battery tick, whether or not the read worked.
func (d *daemon) checkHeartbeat() {
	if hb := d.heartbeat.Check(d.now(), d.heartbeatEvery); hb != nil {
		d.log.Infof("heartbeat: uptime=%v sleep=%d wake=%d charging=%d discharging=%d",
			hb.Uptime.Truncate(time.Second), hb.Counts.Sleep, hb.Counts.Wake, hb.Counts.Charging, hb.Counts.Discharging)
		d.systemEvent("HEARTBEAT", "", false)
	}
}

// signalBattery emits a D-Bus signal when the shown percentage or the
// charging flag changes.
func (d *daemon) signalBattery(r logic.Reading) {
	if d.signaler == nil || !r.Valid || r.Percent < 0 {
		return
	}
	if d.signalled && r.Percent == d.lastPercent && r.Charging == d.lastCharging {
		return
	}
	if err := d.signaler.SignalBattery(r.EMA, r.Percent, r.Charging); err != nil {
		d.log.Warnf("battery signal failed: %v", err)
		return
	}
	d.signalled = true
	d.lastPercent = r.Percent
	d.lastCharging = r.Charging
}

// publish stamps, counts, logs and sends an event. Publish failures are
// logged only.
func (d *daemon) publish(e logic.Event) {
	e.Time = d.now()
	e.At = d.millis()
	if e.State == "" {
		e.State = d.ctl.State()
	}
	if e.Type != logic.EventCharging && e.Type != logic.EventDischarging {
		e.Percent = d.monitor.Last().Percent
		e.Charging = d.monitor.Last().Charging
	}

	d.heartbeat.Record(e)
	d.tracker.SetCounts(d.heartbeat.Counts())
	d.log.Infof("event: %s (state=%s ticks=%d percent=%d charging=%t)", e.Type, e.State, e.PressTicks, e.Percent, e.Charging)

	if err := d.publisher.Publish(e); err != nil {
		d.log.Warnf("publish error: %v", err)
	}
}

func (d *daemon) systemEvent(event, reason string, retained bool) {
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	snap := d.tracker.Snapshot()
	e := mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := d.publisher.PublishSystem(e); err != nil {
		d.log.Warnf("failed to publish %s event: %v", event, err)
		return
	}
	d.log.Debugf("published %s event", event)
}

package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus"
	"github.com/sirupsen/logrus"
)

const (
	login1Dest    = "org.freedesktop.login1"
	login1Path    = "/org/freedesktop/login1"
	login1Manager = "org.freedesktop.login1.Manager"

	prepareForSleep = login1Manager + ".PrepareForSleep"
	sleepMatchRule  = "type='signal',interface='" + login1Manager + "',member='PrepareForSleep'"

	signalPath  = "/org/panel/power"
	signalIface = "org.panel.power"
)

// Login1 performs power actions through systemd-logind on the system bus and
// emits battery signals on the same connection.
type Login1 struct {
	conn *dbus.Conn
	log  logrus.FieldLogger
}

// NewLogin1 connects to the system bus.
func NewLogin1(log logrus.FieldLogger) (*Login1, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	return &Login1{conn: conn, log: log}, nil
}

func (l *Login1) call(method string, args ...interface{}) error {
	obj := l.conn.Object(login1Dest, dbus.ObjectPath(login1Path))
	if call := obj.Call(login1Manager+"."+method, 0, args...); call.Err != nil {
		return fmt.Errorf("login1 %s: %w", method, call.Err)
	}
	return nil
}

// Sleep suspends the system and blocks until logind reports the resume.
func (l *Login1) Sleep(ctx context.Context) error {
	bus := l.conn.BusObject()
	if call := bus.Call("org.freedesktop.DBus.AddMatch", 0, sleepMatchRule); call.Err != nil {
		return fmt.Errorf("add match rule: %w", call.Err)
	}
	defer bus.Call("org.freedesktop.DBus.RemoveMatch", 0, sleepMatchRule)

	// Subscribe before suspending so the resume signal cannot be missed.
	ch := make(chan *dbus.Signal, 4)
	l.conn.Signal(ch)
	defer l.conn.RemoveSignal(ch)

	l.log.Info("suspending")
	if err := l.call("Suspend", false); err != nil {
		return err
	}
	if err := waitForResume(ctx, ch); err != nil {
		return err
	}
	l.log.Info("resumed")
	return nil
}

// waitForResume returns once a PrepareForSleep(false) signal arrives.
func waitForResume(ctx context.Context, ch <-chan *dbus.Signal) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-ch:
			if !ok {
				return errors.New("signal channel closed before resume")
			}
			if sig.Name != prepareForSleep || len(sig.Body) != 1 {
				continue
			}
			if starting, ok := sig.Body[0].(bool); ok && !starting {
				return nil
			}
		}
	}
}

// Restart asks logind to reboot.
func (l *Login1) Restart() error {
	l.log.Warn("rebooting")
	return l.call("Reboot", false)
}

// Halt asks logind to power off.
func (l *Login1) Halt() error {
	l.log.Warn("powering off")
	return l.call("PowerOff", false)
}

// SignalBattery emits org.panel.power.Battery(volts, percent, charging).
func (l *Login1) SignalBattery(volts float64, percent int, charging bool) error {
	return l.conn.Emit(dbus.ObjectPath(signalPath), signalIface+".Battery", volts, int32(percent), charging)
}

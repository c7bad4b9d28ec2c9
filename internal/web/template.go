package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/panel-power/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"orUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"volts": func(v float64) string {
		return fmt.Sprintf("%.3f V", v)
	},
	"percent": func(p int) string {
		if p < 0 {
			return "n/a"
		}
		return fmt.Sprintf("%d%%", p)
	},
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Panel Power</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.running { color: green; font-weight: bold; }
.held { color: orange; font-weight: bold; }
.unknown { color: #888; }
.charging { color: green; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Panel Power</h1>

<h2>Power</h2>
<table>
<tr><th>State</th><td id="power-state" class="{{if eq (orUnknown (printf "%s" .Power.State)) "RUNNING"}}running{{else if eq (printf "%s" .Power.State) "KEY_HELD_AT_BOOT"}}held{{else}}unknown{{end}}">{{orUnknown (printf "%s" .Power.State)}}</td></tr>
<tr><th>Latched</th><td>{{yesno .Power.Latched}}</td></tr>
<tr><th>Pending</th><td>{{orUnknown (printf "%s" .Power.Pending)}}</td></tr>
<tr><th>Press ticks</th><td>{{.Power.PressTicks}}</td></tr>
</table>

<h2>Battery</h2>
{{if .HaveBattery}}<table>
<tr><th>Level</th><td id="battery-percent">{{percent .Battery.Percent}}</td></tr>
<tr><th>Source</th><td class="{{if .Battery.Charging}}charging{{end}}">{{if .Battery.Charging}}charging{{else}}battery{{end}}{{if .Battery.Locked}} (locked){{end}}{{if .Battery.Relaxing}} (settling){{end}}</td></tr>
<tr><th>Voltage</th><td>{{if .Battery.Valid}}{{volts .Battery.Volts}}{{else}}invalid{{end}}</td></tr>
<tr><th>Average</th><td>{{volts .Battery.EMA}}</td></tr>
</table>{{else}}<p>No reading yet.</p>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Sleep</th><td>{{.Counts.Sleep}}</td></tr>
<tr><th>Wake</th><td>{{.Counts.Wake}}</td></tr>
<tr><th>Restart</th><td>{{.Counts.Restart}}</td></tr>
<tr><th>Shutdown</th><td>{{.Counts.Shutdown}}</td></tr>
<tr><th>Charging</th><td>{{.Counts.Charging}}</td></tr>
<tr><th>Discharging</th><td>{{.Counts.Discharging}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Power tick</th><td>{{.Config.PowerTickMs}}ms</td></tr>
<tr><th>Battery tick</th><td>{{.Config.BatteryTickMs}}ms</td></tr>
<tr><th>Thresholds</th><td>sleep {{.Config.SleepTicks}} / restart {{.Config.RestartTicks}} / off {{.Config.ShutdownTicks}} ticks</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}

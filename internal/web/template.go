package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/ledclock/internal/status"
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
	"kib": func(b uint64) string {
		return fmt.Sprintf("%.1f KiB", float64(b)/1024)
	},
	"wall": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Format("2006-01-02 15:04:05")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>LED Clock</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; }
.bad { color: red; }
.warn { color: orange; }
#ring { display: block; margin: 1em auto; background: #111; border-radius: 50%; }
.qr { float: right; width: 96px; height: 96px; }
</style>
</head>
<body>
<img class="qr" src="/qr.png" alt="panel QR code">
<h1>LED Clock</h1>

<canvas id="ring" width="240" height="240"></canvas>

<h2>Display</h2>
<table>
<tr><th>Time</th><td id="time">{{wall .Display.Time}}</td></tr>
<tr><th>Effect</th><td>{{.Display.Effect}}</td></tr>
<tr><th>Night light</th><td>{{if .Display.NightActive}}on{{if .Display.NightTest}} (test){{end}}{{else}}off{{end}}</td></tr>
<tr><th>Brightness</th><td>{{.Display.Brightness}}</td></tr>
<tr><th>Frames</th><td>{{.Display.Frames}}</td></tr>
</table>

<h2>Clock</h2>
<table>
<tr><th>RTC</th><td class="{{if .RTCAvailable}}{{if .RTCLostPower}}warn{{else}}ok{{end}}{{else}}bad{{end}}">{{if .RTCAvailable}}present{{if .RTCLostPower}} (lost power){{end}}{{else}}absent, software clock{{end}}</td></tr>
<tr><th>Last sync</th><td class="{{if .Sync.OK}}ok{{else if .Sync.Attempts}}bad{{end}}">{{wall .Sync.LastAt}}{{if .Sync.Error}} ({{.Sync.Error}}){{end}}</td></tr>
<tr><th>Sync attempts</th><td>{{.Sync.Attempts}}</td></tr>
<tr><th>Battery</th><td>{{if .Battery.Sampled}}{{.Battery.Percent}}% ({{printf "%.2f" .Battery.Volts}} V){{else}}not sampled{{end}}</td></tr>
<tr><th>Button presses</th><td>{{.ButtonPresses}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
{{if .Network}}<tr><th>WiFi</th><td class="{{if eq .Network.State "connected"}}ok{{else}}bad{{end}}">{{.Network.State}}{{if .Network.SSID}} ({{.Network.SSID}}){{end}}</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>
<tr><th>Hostname</th><td>{{.Network.Hostname}}</td></tr>{{end}}
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}ok{{else}}bad{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Heap</th><td>{{kib .Memory.AllocBytes}}</td></tr>
<tr><th>Strip</th><td>{{.Config.Strip}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var canvas = document.getElementById("ring");
  var ctx = canvas.getContext("2d");
  var cx = canvas.width / 2, cy = canvas.height / 2, r = cx - 14;

  function draw(msg) {
    ctx.clearRect(0, 0, canvas.width, canvas.height);
    ctx.globalAlpha = msg.night ? 1 : Math.max(0.1, msg.brightness / 255);
    msg.leds.forEach(function(c, i) {
      var a = (i / msg.leds.length) * 2 * Math.PI - Math.PI / 2;
      ctx.beginPath();
      ctx.arc(cx + r * Math.cos(a), cy + r * Math.sin(a), 5, 0, 2 * Math.PI);
      ctx.fillStyle = c === "#000000" ? "#222" : c;
      ctx.fill();
    });
  }

  function connect() {
    var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
    ws.onmessage = function(ev) {
      try { draw(JSON.parse(ev.data)); } catch (e) {}
    };
    ws.onclose = function() { setTimeout(connect, 5000); };
  }
  connect();
})();
</script>
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

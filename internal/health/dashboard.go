package health

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RenderDashboardHTML returns the status page for GET /health with the current
// snapshot embedded; the page then polls /health/json for live updates.
func RenderDashboardHTML(health CollectResult) string {
	payload := map[string]interface{}{
		"status":       health.Status,
		"runtime":      health.Runtime,
		"traffic":      health.Traffic,
		"dependencies": health.Dependencies,
	}
	b, _ := json.Marshal(payload)
	jsonStr := string(b)
	// escape for embedding in a JS template literal
	jsonStr = strings.ReplaceAll(jsonStr, "\\", "\\\\")
	jsonStr = strings.ReplaceAll(jsonStr, "`", "\\`")
	jsonStr = strings.ReplaceAll(jsonStr, "$", "\\$")

	avgTime := fmt.Sprint(health.Traffic.AvgResponseTime)
	lastReqMethod, lastReqPath := "-", "-"
	if m, ok := health.Traffic.LastRequest.(map[string]interface{}); ok {
		if v, ok := m["method"].(string); ok {
			lastReqMethod = v
		}
		if v, ok := m["path"].(string); ok {
			lastReqPath = v
		}
	}

	return `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>TerraFund · API Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <style>
    :root { --green: #1B6E53; --dark: #12362B; --bg: #F6F8F7; --muted: #6b7280; }
    * { box-sizing: border-box; }
    body { background: var(--bg); color: var(--dark); font-family: system-ui, sans-serif; margin: 0; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
    .container { width: 100%; max-width: 960px; padding: 40px 20px; }
    h1 { font-size: clamp(28px, 4vw, 44px); font-weight: 800; letter-spacing: -1px; text-align: center; margin: 0 0 8px; }
    .subtext { text-align: center; color: var(--muted); font-weight: 600; margin-bottom: 28px; }
    .card { background: #fff; border-radius: 18px; border: 1px solid rgba(0,0,0,0.06); box-shadow: 0 18px 50px -20px rgba(18,54,43,0.18); overflow: hidden; }
    .grid { display: grid; grid-template-columns: repeat(3, 1fr); }
    .col { padding: 32px; border-right: 1px solid rgba(0,0,0,0.05); }
    .col:last-child { border-right: none; }
    .label { text-transform: uppercase; font-size: 11px; font-weight: 800; letter-spacing: 1.5px; color: #9ca3af; margin-bottom: 18px; }
    .big { font-size: clamp(22px, 3vw, 36px); font-weight: 800; margin-bottom: 8px; }
    .row { display: flex; justify-content: space-between; padding: 7px 0; border-bottom: 1px solid rgba(0,0,0,0.04); font-size: 14px; font-weight: 600; }
    .row:last-child { border-bottom: none; }
    .pill { padding: 4px 10px; border-radius: 8px; font-size: 11px; font-weight: 800; }
    .ok { background: rgba(27,110,83,0.1); color: var(--green); }
    .err { background: rgba(239,68,68,0.1); color: #ef4444; }
    .footer { padding: 14px 32px; display: flex; justify-content: space-between; font-family: monospace; font-size: 13px; border-top: 1px solid rgba(0,0,0,0.05); background: rgba(18,54,43,0.02); }
    @media (max-width: 800px) { .grid { grid-template-columns: 1fr; } .col { border-right: none; border-bottom: 1px solid rgba(0,0,0,0.05); } }
  </style>
</head>
<body>
  <div class="container">
    <h1 id="headline">All Systems Operational</h1>
    <p class="subtext">Live API performance and dependency status.</p>
    <div class="card">
      <div class="grid">
        <div class="col">
          <div class="label">Traffic</div>
          <div class="big" id="total-req">` + fmt.Sprint(health.Traffic.TotalRequests) + `</div>
          <div class="row"><span>Successful</span><span id="success-count">` + fmt.Sprint(health.Traffic.SuccessCount) + `</span></div>
          <div class="row"><span>Failed</span><span id="failed-count">` + fmt.Sprint(health.Traffic.FailedCount) + `</span></div>
          <div class="row"><span>Success Rate</span><span id="success-rate">` + health.Traffic.SuccessRate + `%</span></div>
          <div class="row"><span>Avg Latency</span><span id="avg-time">` + avgTime + `ms</span></div>
        </div>
        <div class="col">
          <div class="label">Runtime</div>
          <div class="big" id="uptime">--</div>
          <div class="row"><span>Heap Used</span><span id="mem-heap">` + fmt.Sprint(health.Runtime.Memory.HeapUsed) + ` MB</span></div>
          <div class="row"><span>Memory (RSS)</span><span>` + fmt.Sprint(health.Runtime.Memory.RSS) + ` MB</span></div>
          <div class="row"><span>Platform</span><span style="font-size:11px">` + health.Runtime.Platform + `</span></div>
          <div class="row"><span>Go</span><span style="font-size:11px">` + health.Runtime.GoVersion + `</span></div>
        </div>
        <div class="col">
          <div class="label">Dependencies</div>
          <div class="row"><span>Database</span><span id="pill-database" class="pill ok"><span id="ping-database">-- ms</span></span></div>
          <div class="row"><span>Redis</span><span id="pill-redis" class="pill ok"><span id="ping-redis">-- ms</span></span></div>
          <div class="row"><span>Frontend</span><span id="pill-frontend" class="pill ok"><span id="ping-frontend">-- ms</span></span></div>
          <div class="row"><span>Stripe</span><span id="pill-stripe" class="pill ok"><span id="ping-stripe">-- ms</span></span></div>
        </div>
      </div>
      <div class="footer">
        <div>LAST <span id="req-method">` + lastReqMethod + `</span></div>
        <div id="req-path">` + lastReqPath + `</div>
      </div>
    </div>
  </div>
  <script>
    const fmt = (s) => { const h = Math.floor(s / 3600); const m = Math.floor((s % 3600) / 60); const sec = Math.floor(s % 60); return h + 'h ' + m + 'm ' + sec + 's'; };
    const updateUI = (d) => {
      document.getElementById('total-req').innerText = d.traffic.totalRequests;
      document.getElementById('success-count').innerText = d.traffic.successCount;
      document.getElementById('failed-count').innerText = d.traffic.failedCount;
      document.getElementById('success-rate').innerText = d.traffic.successRate + '%';
      document.getElementById('avg-time').innerText = d.traffic.avgResponseTime + 'ms';
      document.getElementById('uptime').innerText = fmt(d.runtime.uptimeSeconds);
      document.getElementById('mem-heap').innerText = d.runtime.memory.heapUsed + ' MB';
      if (d.traffic.lastRequest) { document.getElementById('req-method').innerText = d.traffic.lastRequest.method; document.getElementById('req-path').innerText = d.traffic.lastRequest.path; }
      for (const name of ['database', 'redis', 'frontend', 'stripe']) {
        const dep = d.dependencies[name];
        if (!dep) continue;
        const isOk = dep.status === 'connected' || dep.status === 'reachable';
        document.getElementById('pill-' + name).className = 'pill ' + (isOk ? 'ok' : 'err');
        document.getElementById('ping-' + name).innerText = (dep.pingMs != null ? dep.pingMs : '?') + ' ms';
      }
      const hl = document.getElementById('headline');
      hl.innerText = d.status === 'ok' ? 'All Systems Operational' : 'System Issues Detected';
      hl.style.color = d.status === 'ok' ? '' : '#ef4444';
    };
    async function tick() { try { const r = await fetch('/health/json'); updateUI(await r.json()); } catch (e) {} }
    updateUI(JSON.parse(` + "`" + jsonStr + "`" + `));
    setInterval(tick, 15000);
  </script>
</body>
</html>`
}

package report

// htmlTemplate is the standalone report page: a dark-gradient theme with
// Chart.js doughnut/bar charts rendering race-burst skew and status-code
// outcome data.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.WorkflowName}} - race report</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
<style>
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
    background: linear-gradient(135deg, #1a1a2e 0%, #16213e 100%);
    color: #e8e8e8;
    margin: 0;
    padding: 2rem;
  }
  h1 { font-weight: 600; }
  .meta { color: #9aa; margin-bottom: 2rem; }
  .cards {
    display: grid;
    grid-template-columns: repeat(auto-fit, minmax(180px, 1fr));
    gap: 1rem;
    margin-bottom: 2rem;
  }
  .card {
    background: rgba(255,255,255,0.05);
    border: 1px solid rgba(255,255,255,0.1);
    border-radius: 8px;
    padding: 1rem;
  }
  .card .value { font-size: 1.8rem; font-weight: 700; }
  .card .label { color: #9aa; font-size: 0.85rem; text-transform: uppercase; }
  .status-ok { color: #4ade80; }
  .status-err { color: #f87171; }
  .charts {
    display: grid;
    grid-template-columns: 1fr 1fr;
    gap: 2rem;
  }
  .chart-box {
    background: rgba(255,255,255,0.05);
    border-radius: 8px;
    padding: 1rem;
  }
  @media (max-width: 800px) { .charts { grid-template-columns: 1fr; } }
</style>
</head>
<body>
<h1>{{.WorkflowName}}</h1>
<div class="meta">generated {{.GeneratedAt}} &middot; {{if .Terminal}}<span class="status-ok">completed</span>{{else}}<span class="status-err">failed: {{.Err}}</span>{{end}}</div>

<div class="cards">
  <div class="card"><div class="value">{{.StateCount}}</div><div class="label">states executed</div></div>
  <div class="card"><div class="value">{{.RaceCount}}</div><div class="label">race bursts</div></div>
</div>

<div class="charts">
  <div class="chart-box">
    <canvas id="skewChart"></canvas>
  </div>
  <div class="chart-box">
    <canvas id="statusChart"></canvas>
  </div>
</div>

<script>
new Chart(document.getElementById('skewChart'), {
  type: 'bar',
  data: {
    labels: [{{.SkewLabels}}],
    datasets: [{
      label: 'Race skew (µs)',
      data: [{{.SkewData}}],
      backgroundColor: 'rgba(96, 165, 250, 0.6)',
      borderColor: 'rgba(96, 165, 250, 1)',
      borderWidth: 1,
    }],
  },
  options: {
    plugins: { legend: { labels: { color: '#e8e8e8' } } },
    scales: {
      x: { ticks: { color: '#9aa' } },
      y: { ticks: { color: '#9aa' } },
    },
  },
});

new Chart(document.getElementById('statusChart'), {
  type: 'doughnut',
  data: {
    labels: [{{.StatusLabels}}],
    datasets: [{
      label: 'Status codes',
      data: [{{.StatusData}}],
      backgroundColor: [
        'rgba(74, 222, 128, 0.7)',
        'rgba(250, 204, 21, 0.7)',
        'rgba(248, 113, 113, 0.7)',
        'rgba(96, 165, 250, 0.7)',
        'rgba(192, 132, 252, 0.7)',
      ],
    }],
  },
  options: {
    plugins: { legend: { labels: { color: '#e8e8e8' } } },
  },
});
</script>
</body>
</html>
`

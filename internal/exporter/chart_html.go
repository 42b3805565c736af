package exporter

import (
	"bytes"
	"fmt"
	"html/template"
)

// 独立 HTML 柱状图模板（无外部依赖，可直接下发浏览器打开）
var chartTemplate = template.Must(template.New("chart").Parse(`<!DOCTYPE html>
<html lang="zh">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: "Helvetica Neue", Arial, sans-serif; margin: 40px; color: #233; }
  h1 { font-size: 18px; }
  .row { display: flex; align-items: center; margin: 4px 0; }
  .label { width: 180px; font-size: 13px; text-align: right; padding-right: 8px; }
  .track { flex: 1; background: #f0f4f8; }
  .bar { background: #3579b8; height: 18px; }
  .value { font-size: 12px; padding-left: 6px; color: #567; white-space: nowrap; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Bars}}<div class="row">
  <div class="label">{{.Country}}</div>
  <div class="track"><div class="bar" style="width: {{.Percent}}%"></div></div>
  <div class="value">{{.Display}}</div>
</div>
{{end}}
</body>
</html>
`))

type chartBar struct {
	Country string
	Percent float64
	Display string
}

type chartData struct {
	Title string
	Bars  []chartBar
}

// ExportChartHTML 导出独立 HTML 柱状图
func (e *Exporter) ExportChartHTML(opts ExportOptions) ([]byte, error) {
	opts.normalize()

	usage, err := e.RankedUsage(opts)
	if err != nil {
		return nil, err
	}

	max := 0.0
	for _, u := range usage {
		if v := u.MetricValue(opts.Metric); v > max {
			max = v
		}
	}

	data := chartData{
		Title: fmt.Sprintf("Top %d Countries (%s) - %d", len(usage), opts.Metric, opts.Year),
	}
	for _, u := range usage {
		v := u.MetricValue(opts.Metric)
		percent := 0.0
		if max > 0 {
			percent = v / max * 100
		}
		data.Bars = append(data.Bars, chartBar{
			Country: u.Country,
			Percent: percent,
			Display: fmt.Sprintf("%.2f", v),
		})
	}

	var buf bytes.Buffer
	if err := chartTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("渲染图表模板失败: %w", err)
	}
	return buf.Bytes(), nil
}

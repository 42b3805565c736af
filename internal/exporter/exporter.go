package exporter

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"roamstat/internal/geo"
	"roamstat/internal/model"
	"roamstat/internal/store"
)

// Exporter 用量报表导出器
//
// 按 年份+指标 产出国家排行工作簿（明细表 + 内嵌柱状图），
// 以及可直接下发的独立 HTML 柱状图。
type Exporter struct {
	store   *store.Store
	catalog *geo.Catalog
}

// NewExporter 创建导出器
func NewExporter(st *store.Store, catalog *geo.Catalog) *Exporter {
	return &Exporter{
		store:   st,
		catalog: catalog,
	}
}

// ExportOptions 导出选项
type ExportOptions struct {
	Year   int
	Metric string // 规范指标列名，空值取 Total Volume(KB)
	TopN   int    // 排行条数，<=0 取 15
}

// normalize 选项兜底
func (o *ExportOptions) normalize() {
	if o.Metric == "" {
		o.Metric = model.ColTotalVolumeKB
	}
	if o.TopN <= 0 {
		o.TopN = 15
	}
}

// validMetric 指标名是否可用
func validMetric(metric string) bool {
	for _, m := range model.UsageMetrics {
		if m == metric {
			return true
		}
	}
	return false
}

// RankedUsage 取指定年份按指标降序的国家汇总（附 ISO3）
func (e *Exporter) RankedUsage(opts ExportOptions) ([]model.CountryUsage, error) {
	opts.normalize()
	if !validMetric(opts.Metric) {
		return nil, fmt.Errorf("未知指标: %s", opts.Metric)
	}

	usage, err := e.store.AggregateByCountry(opts.Year)
	if err != nil {
		return nil, err
	}
	if len(usage) == 0 {
		return nil, fmt.Errorf("年份 %d 无已归属数据", opts.Year)
	}

	for i := range usage {
		usage[i].ISO3 = e.catalog.ISO3(usage[i].Country)
	}

	sort.SliceStable(usage, func(i, j int) bool {
		return usage[i].MetricValue(opts.Metric) > usage[j].MetricValue(opts.Metric)
	})

	if len(usage) > opts.TopN {
		usage = usage[:opts.TopN]
	}
	return usage, nil
}

const sheetUsage = "Usage by Country"

// ExportWorkbook 导出国家排行工作簿
//
// 明细从 A1 落表，柱状图锚在 H2，引用明细区域的 国家列+选定指标列。
func (e *Exporter) ExportWorkbook(opts ExportOptions) (*excelize.File, error) {
	opts.normalize()

	usage, err := e.RankedUsage(opts)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetUsage); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("重命名工作表失败: %w", err)
	}

	header := []interface{}{
		"Country", "ISO3",
		model.ColTotalVolumeKB, model.ColTotalDurationMin,
		model.ColTotalGPRSUSD, model.ColTotalVoiceUSD,
	}
	if err := f.SetSheetRow(sheetUsage, "A1", &header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("写表头失败: %w", err)
	}

	for i, u := range usage {
		cell := fmt.Sprintf("A%d", i+2)
		row := []interface{}{
			u.Country, u.ISO3,
			u.TotalVolumeKB, u.TotalDurationMin,
			u.TotalGPRSUSD, u.TotalVoiceUSD,
		}
		if err := f.SetSheetRow(sheetUsage, cell, &row); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("写数据行失败: %w", err)
		}
	}

	metricCol := metricColumn(opts.Metric)
	lastRow := len(usage) + 1

	chart := &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{
			{
				Name:       fmt.Sprintf("'%s'!$%s$1", sheetUsage, metricCol),
				Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheetUsage, lastRow),
				Values:     fmt.Sprintf("'%s'!$%s$2:$%s$%d", sheetUsage, metricCol, metricCol, lastRow),
			},
		},
		Title: []excelize.RichTextRun{
			{Text: fmt.Sprintf("Top %d Countries (%s) - %d", len(usage), opts.Metric, opts.Year)},
		},
		Legend: excelize.ChartLegend{Position: "none"},
	}
	if err := f.AddChart(sheetUsage, "H2", chart); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("添加图表失败: %w", err)
	}

	f.SetActiveSheet(0)
	return f, nil
}

// metricColumn 指标在明细表中的列号
func metricColumn(metric string) string {
	switch metric {
	case model.ColTotalVolumeKB:
		return "C"
	case model.ColTotalDurationMin:
		return "D"
	case model.ColTotalGPRSUSD:
		return "E"
	case model.ColTotalVoiceUSD:
		return "F"
	}
	return "C"
}

package parser

import "time"

// ColumnPlan 一张工作表的列规整方案
//
// 索引为 -1 表示源表没有可识别的对应列；数值列缺失时该列整列归零，
// 只有两个标识列（伙伴名称、网络标识）是硬性要求，缺失由上层拒绝整表。
type ColumnPlan struct {
	PartnerIdx  int   // Partner Name
	NetworkIdx  int   // Network ID
	VolumeIdx   int   // Total Volume(KB) 直接来源列
	DurationIdx int   // Total Duration(min)
	GPRSIdx     int   // Total GPRS Amount(USD)
	VoiceIdx    int   // Total Voice Amount(USD)
	DailyVolume []int // Volume (KB)[.N] 日用量列（无总量列时按行求和兜底）
}

// HasIdentifiers 是否具备两个必需的标识列
func (p *ColumnPlan) HasIdentifiers() bool {
	return p.PartnerIdx >= 0 && p.NetworkIdx >= 0
}

// SheetStatus Sheet 处理状态
type SheetStatus string

const (
	SheetParsed  SheetStatus = "parsed"
	SheetSkipped SheetStatus = "skipped"
	SheetError   SheetStatus = "error"
)

// SheetResult 单张工作表的抽取结果
type SheetResult struct {
	SheetName   string      `json:"sheetName"`
	Status      SheetStatus `json:"status"`
	Rows        int         `json:"rows"`        // 进入数据集的行数
	DroppedRows int         `json:"droppedRows"` // 标识为空/汇总行被过滤的行数
	Reason      string      `json:"reason,omitempty"`
}

// ExtractReport 单个工作簿的抽取报告
type ExtractReport struct {
	Filename      string        `json:"filename"`
	Year          *int          `json:"year"`
	TotalSheets   int           `json:"totalSheets"`
	ParsedSheets  int           `json:"parsedSheets"`
	SkippedSheets int           `json:"skippedSheets"`
	TotalRows     int           `json:"totalRows"`
	Duration      time.Duration `json:"duration"`
	Sheets        []SheetResult `json:"sheets"`
	Error         string        `json:"error,omitempty"` // 整簿打不开时的原因（该文件被跳过）
}

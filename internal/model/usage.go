package model

// 规范列名（所有工作表经列规整后必须产出的六列）
const (
	ColPartnerName      = "Partner Name"
	ColNetworkID        = "Network ID"
	ColTotalVolumeKB    = "Total Volume(KB)"
	ColTotalDurationMin = "Total Duration(min)"
	ColTotalGPRSUSD     = "Total GPRS Amount(USD)"
	ColTotalVoiceUSD    = "Total Voice Amount(USD)"
	ColCountry          = "Country"
)

// CanonicalColumns 规范列集合（按导出顺序）
var CanonicalColumns = []string{
	ColPartnerName,
	ColNetworkID,
	ColTotalVolumeKB,
	ColTotalDurationMin,
	ColTotalGPRSUSD,
	ColTotalVoiceUSD,
}

// UsageRecord 一条已规整的漫游用量记录
//
// 数值字段永不为负、永不缺失（无法解析的输入一律归零）。
// Country 为空串表示国家归属尚未解析。
type UsageRecord struct {
	ID               int64   `json:"id,omitempty"`
	PartnerName      string  `json:"partnerName"`
	NetworkID        string  `json:"networkId"`
	TotalVolumeKB    float64 `json:"totalVolumeKb"`
	TotalDurationMin float64 `json:"totalDurationMin"`
	TotalGPRSUSD     float64 `json:"totalGprsAmountUsd"`
	TotalVoiceUSD    float64 `json:"totalVoiceAmountUsd"`
	Year             *int    `json:"year"`   // 从文件名识别；识别不到为 nil
	Period           string  `json:"period"` // 来源 Sheet 名（月份标签）
	SourceFile       string  `json:"sourceFile"`
	Country          string  `json:"country"`
}

// Resolved 是否已解析出国家归属
func (r *UsageRecord) Resolved() bool {
	return r.Country != ""
}

// MappingPair 一条 键→国家 映射（网络标识表或伙伴名称表）
type MappingPair struct {
	Key     string `json:"key"`
	Country string `json:"country"`
}

// UnresolvedPair 推断链走完仍未归属国家的标识对，交由人工补录
type UnresolvedPair struct {
	NetworkID   string `json:"networkId"`
	PartnerName string `json:"partnerName"`
}

// CountryUsage 按 年份+国家 汇总后的用量
type CountryUsage struct {
	Year             int     `json:"year"`
	Country          string  `json:"country"`
	ISO3             string  `json:"iso3,omitempty"` // 目录查不到时为空
	TotalVolumeKB    float64 `json:"totalVolumeKb"`
	TotalDurationMin float64 `json:"totalDurationMin"`
	TotalGPRSUSD     float64 `json:"totalGprsAmountUsd"`
	TotalVoiceUSD    float64 `json:"totalVoiceAmountUsd"`
}

// MetricValue 按指标名取汇总值（排行/导出用）
func (u *CountryUsage) MetricValue(metric string) float64 {
	switch metric {
	case ColTotalVolumeKB:
		return u.TotalVolumeKB
	case ColTotalDurationMin:
		return u.TotalDurationMin
	case ColTotalGPRSUSD:
		return u.TotalGPRSUSD
	case ColTotalVoiceUSD:
		return u.TotalVoiceUSD
	}
	return 0
}

// UsageMetrics 可用于排行与图表的指标列表
var UsageMetrics = []string{
	ColTotalVolumeKB,
	ColTotalDurationMin,
	ColTotalGPRSUSD,
	ColTotalVoiceUSD,
}

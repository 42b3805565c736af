package parser

import (
	"regexp"
	"strings"

	"roamstat/internal/model"
)

// ColumnNormalizer 列规整器
//
// 把各月报表五花八门的表头映射到固定的六列规范口径。匹配规则全部基于
// 规范化（小写去空白）后的列名做子串判断，因此对大小写、空格、换行不敏感。
type ColumnNormalizer struct{}

// NewColumnNormalizer 创建列规整器
func NewColumnNormalizer() *ColumnNormalizer {
	return &ColumnNormalizer{}
}

// 日用量列形如 "Volume (KB)" / "Volume (KB).1" / "Volume (KB).2"
var dailyVolumePattern = regexp.MustCompile(`(?i)^volume\s*\(kb\)(\.\d+)?$`)

// PlanColumns 根据表头生成列规整方案
//
// 每个表头只认领一个角色，按 标识列→总量列→日用量列 的顺序判定。
// 该函数不会失败：识别不到的列只会让方案里的索引保持 -1。
func (n *ColumnNormalizer) PlanColumns(headers []string) ColumnPlan {
	plan := ColumnPlan{
		PartnerIdx:  -1,
		NetworkIdx:  -1,
		VolumeIdx:   -1,
		DurationIdx: -1,
		GPRSIdx:     -1,
		VoiceIdx:    -1,
	}

	for idx, raw := range headers {
		clean := CleanHeader(raw)
		lc := NormalizeColumnName(raw)
		if lc == "" {
			continue
		}

		if strings.Contains(lc, "partnername") {
			if plan.PartnerIdx < 0 {
				plan.PartnerIdx = idx
			}
			continue
		}
		if strings.Contains(lc, "networkid") {
			if plan.NetworkIdx < 0 {
				plan.NetworkIdx = idx
			}
			continue
		}

		if lc == "totalvolume(kb)" || (strings.Contains(lc, "total") && strings.Contains(lc, "volume(kb)")) {
			if plan.VolumeIdx < 0 {
				plan.VolumeIdx = idx
			}
			continue
		}

		if lc == "totalduration(min)" ||
			(strings.Contains(lc, "total") && strings.Contains(lc, "duration(min)")) ||
			(strings.Contains(lc, "totalduration") && strings.Contains(lc, "min")) {
			if plan.DurationIdx < 0 {
				plan.DurationIdx = idx
			}
			continue
		}

		if strings.Contains(lc, "totalgprs") && strings.Contains(lc, "amount") {
			if plan.GPRSIdx < 0 {
				plan.GPRSIdx = idx
			}
			continue
		}

		if strings.Contains(lc, "totalvoice") && strings.Contains(lc, "amount") {
			if plan.VoiceIdx < 0 {
				plan.VoiceIdx = idx
			}
			continue
		}

		if dailyVolumePattern.MatchString(clean) {
			plan.DailyVolume = append(plan.DailyVolume, idx)
			continue
		}
	}

	return plan
}

// NormalizeRow 按方案把一行原始单元格规整为规范记录
//
// 数值列：有总量列直接取值；总量列缺失但存在日用量列时按行求和兜底；
// 两者都没有则归零。所有数值走 ParseAmount，坏单元格静默归零。
func (n *ColumnNormalizer) NormalizeRow(plan ColumnPlan, row []string) model.UsageRecord {
	rec := model.UsageRecord{
		PartnerName: strings.TrimSpace(cellAt(row, plan.PartnerIdx)),
		NetworkID:   strings.TrimSpace(cellAt(row, plan.NetworkIdx)),
	}

	if plan.VolumeIdx >= 0 {
		rec.TotalVolumeKB = ParseAmount(cellAt(row, plan.VolumeIdx))
	} else if len(plan.DailyVolume) > 0 {
		sum := 0.0
		for _, idx := range plan.DailyVolume {
			sum += ParseAmount(cellAt(row, idx))
		}
		rec.TotalVolumeKB = sum
	}

	if plan.DurationIdx >= 0 {
		rec.TotalDurationMin = ParseAmount(cellAt(row, plan.DurationIdx))
	}
	if plan.GPRSIdx >= 0 {
		rec.TotalGPRSUSD = ParseAmount(cellAt(row, plan.GPRSIdx))
	}
	if plan.VoiceIdx >= 0 {
		rec.TotalVoiceUSD = ParseAmount(cellAt(row, plan.VoiceIdx))
	}

	return rec
}

// cellAt 越界保护取值（excelize 返回的行会省略尾部空单元格）
func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

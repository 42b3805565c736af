package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var yearPattern = regexp.MustCompile(`(19\d{2}|20\d{2})`)

// YearFromFilename 从文件名中提取 4 位年份（19xx/20xx，取第一个匹配）
// 识别不到返回 nil
func YearFromFilename(name string) *int {
	m := yearPattern.FindString(name)
	if m == "" {
		return nil
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &year
}

// CleanHeader 清洗表头单元格：换行折为空格、去首尾空白
func CleanHeader(name string) string {
	name = strings.ReplaceAll(name, "\n", " ")
	name = strings.ReplaceAll(name, "\r", " ")
	return strings.TrimSpace(name)
}

var spacePattern = regexp.MustCompile(`\s+`)

// NormalizeColumnName 规范化列名：小写并去除所有空白字符
// 列识别全部基于规范化后的名字做子串匹配
func NormalizeColumnName(name string) string {
	name = strings.ToLower(CleanHeader(name))
	return spacePattern.ReplaceAllString(name, "")
}

// ParseAmount 安全转换数值单元格
// 无法解析一律归零，负值按零处理（用量与金额不允许为负）
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "") // 移除千分位
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// IsSummaryMarker 是否为汇总/页脚标记（Total / Grand Total）
func IsSummaryMarker(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "total", "grand total":
		return true
	}
	return false
}

package geo

import (
	"strings"

	"github.com/pariz/gountries"
)

// Lookup 权威国家名称解析能力
//
// 解析失败视为“查无此国”，由调用方继续自己的兜底链路，不作为错误传播。
// 抽成窄接口是为了让推断链可以脱离具体数据源独立测试/替换。
type Lookup interface {
	Resolve(text string) (country string, ok bool)
}

// Catalog 基于 gountries 内置 ISO-3166 数据的国家目录
type Catalog struct {
	query *gountries.Query
}

// NewCatalog 创建国家目录
func NewCatalog() *Catalog {
	return &Catalog{query: gountries.New()}
}

// 常见别名修正表：报表里的惯用写法 → 目录可识别的名称
var nameFixes = map[string]string{
	"usa":           "United States",
	"u.s.a":         "United States",
	"uk":            "United Kingdom",
	"russia":        "Russia",
	"south korea":   "South Korea",
	"viet nam":      "Vietnam",
	"iran":          "Iran",
	"syria":         "Syria",
	"bolivia":       "Bolivia",
	"tanzania":      "Tanzania",
	"laos":          "Laos",
	"moldova":       "Moldova",
	"brunei":        "Brunei",
	"hongkong":      "Hong Kong",
	"hong kong sar": "Hong Kong",
	"macau":         "Macau",
}

// normalizeName 套用别名修正
func normalizeName(name string) string {
	if fixed, ok := nameFixes[strings.ToLower(name)]; ok {
		return fixed
	}
	return name
}

// Resolve 把自由文本解析为规范国家名
//
// 依次尝试：别名修正后的名称匹配（常用名/官方名）、字母代码匹配。
// 查不到返回 ("", false)。
func (c *Catalog) Resolve(text string) (string, bool) {
	name := strings.TrimSpace(text)
	if name == "" {
		return "", false
	}
	name = normalizeName(name)

	if country, err := c.query.FindCountryByName(name); err == nil {
		return country.Name.Common, true
	}
	if len(name) == 2 || len(name) == 3 {
		if country, err := c.query.FindCountryByAlpha(name); err == nil {
			return country.Name.Common, true
		}
	}
	return "", false
}

// ISO3 把国家名映射到 ISO alpha-3 代码，查不到返回空串
//
// 人工补录的国家名未经目录校验，这里查不到时静默降级（见 DESIGN.md）。
func (c *Catalog) ISO3(countryName string) string {
	name := strings.TrimSpace(countryName)
	if name == "" {
		return ""
	}
	name = normalizeName(name)

	if country, err := c.query.FindCountryByName(name); err == nil {
		return country.Alpha3
	}
	if len(name) == 3 {
		if country, err := c.query.FindCountryByAlpha(name); err == nil {
			return country.Alpha3
		}
	}
	return ""
}

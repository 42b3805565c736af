package resolver

import (
	"regexp"
	"strings"

	"roamstat/internal/geo"
	"roamstat/internal/model"
)

// Resolver 国家归属推断链
//
// 按固定顺序执行四级兜底，第一个非空结果即为最终归属：
//  0. 网络映射表联查结果（已有直连命中则整条链短路，保证幂等）
//  1. 伙伴映射表精确匹配（不区分大小写）
//  2. 伙伴名称规则表（品牌/运营商片段子串匹配，按表序首条命中生效）
//  3. 伙伴名称模糊提取（长词组优先，从左到右扫描，交目录解析）
//  4. 网络标识前三位前缀表
// 四级全部落空该记录保持未归属（Country 为空串）。
type Resolver struct {
	lookup     geo.Lookup
	partnerMap map[string]string // 小写伙伴名 → 国家
}

// New 创建推断链
func New(lookup geo.Lookup) *Resolver {
	return &Resolver{
		lookup:     lookup,
		partnerMap: map[string]string{},
	}
}

// SetPartnerMappings 装载伙伴映射表（键按小写索引）
func (r *Resolver) SetPartnerMappings(pairs []model.MappingPair) {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key := strings.ToLower(strings.TrimSpace(p.Key))
		if key == "" {
			continue
		}
		m[key] = strings.TrimSpace(p.Country)
	}
	r.partnerMap = m
}

// partnerRule 伙伴名称规则：名称包含片段即归属对应国家
type partnerRule struct {
	fragment string
	country  string
}

// 规则表顺序即优先级（切片固定迭代序，替代脚本时代的字典序）
var partnerRules = []partnerRule{
	{"reliance jio", "India"},
	{"jio infocomm", "India"},
	{"bharti airtel", "India"},
	{"airtel", "India"},
	{"vodafone essar", "India"},
	{"mtnl", "India"},
	{"mahanagar telephone nigam", "India"},

	{"tele2 latvia", "Latvia"},
	{"tele 2 latvia", "Latvia"},

	{"bermuda", "Bermuda"},
}

// 网络标识前缀 → 国家（类 ISO alpha-3，含若干历史遗留码如 ROM/AAZ）
var networkPrefixes = map[string]string{
	"ARG": "Argentina",
	"AUS": "Australia",
	"ESP": "Spain",
	"GBR": "United Kingdom",
	"HKG": "Hong Kong",
	"HRV": "Croatia",
	"IND": "India",
	"IRL": "Ireland",
	"ISR": "Israel",
	"JPN": "Japan",
	"KOR": "South Korea",
	"KWT": "Kuwait",
	"LBN": "Lebanon",
	"LTU": "Lithuania",
	"LUX": "Luxembourg",
	"MAC": "Macau",
	"MDV": "Maldives",
	"MEX": "Mexico",
	"MMR": "Myanmar",
	"MYS": "Malaysia",
	"NOR": "Norway",
	"NPL": "Nepal",
	"NZL": "New Zealand",
	"OMN": "Oman",
	"PAN": "Panama",
	"POL": "Poland",
	"PRI": "Puerto Rico",
	"QAT": "Qatar",
	"ROM": "Romania",
	"RUS": "Russia",
	"SAU": "Saudi Arabia",
	"SVK": "Slovakia",
	"SWE": "Sweden",
	"THA": "Thailand",
	"TUR": "Turkey",
	"USA": "United States",

	"AAZ": "Malta",
	"AFG": "Afghanistan",
	"ALB": "Albania",
	"AUT": "Austria",
	"BEL": "Belgium",
	"BGD": "Bangladesh",
	"BGR": "Bulgaria",
	"BRA": "Brazil",
	"CAN": "Canada",
	"CHE": "Switzerland",
	"CHN": "China",
	"CZE": "Czech Republic",
	"DEU": "Germany",
	"DNK": "Denmark",
	"EGY": "Egypt",
	"EST": "Estonia",
	"FIN": "Finland",
	"FRA": "France",
	"GHA": "Ghana",
	"GRC": "Greece",
	"HUN": "Hungary",
	"IDN": "Indonesia",
	"ITA": "Italy",
	"LKA": "Sri Lanka",
	"NLD": "Netherlands",
	"PAK": "Pakistan",
	"PHL": "Philippines",
	"PRT": "Portugal",
	"SGP": "Singapore",
	"ZAF": "South Africa",

	"LVA": "Latvia",
	"BMU": "Bermuda",
}

// Resolve 解析一条记录的国家归属
//
// mappedCountry 为网络映射表联查出的既有结果；非空时原样返回，不再走链。
func (r *Resolver) Resolve(partnerName, networkID, mappedCountry string) string {
	if c := strings.TrimSpace(mappedCountry); c != "" {
		return c
	}

	partner := strings.TrimSpace(partnerName)
	network := strings.TrimSpace(networkID)

	if partner != "" {
		if c := r.partnerMap[strings.ToLower(partner)]; c != "" {
			return c
		}
	}

	if c := matchPartnerRule(partner); c != "" {
		return c
	}

	if c := r.detectCountryInText(partner); c != "" {
		return c
	}

	return inferFromNetworkID(network)
}

// matchPartnerRule 伙伴名称规则表匹配，首条命中生效
func matchPartnerRule(partnerName string) string {
	name := strings.ToLower(strings.TrimSpace(partnerName))
	if name == "" {
		return ""
	}
	for _, rule := range partnerRules {
		if strings.Contains(name, rule.fragment) {
			return rule.country
		}
	}
	return ""
}

var nonAlphaPattern = regexp.MustCompile(`[^A-Za-z\s]`)

// detectCountryInText 从伙伴名称自由文本里模糊提取国家名
//
// 去掉全部非字母字符后取长度 ≥4 的词，按 4、3、2、1 个词的连续词组
// 从长到短、从左到右逐一交目录解析，首个命中的词组决定结果。
// 等长词组可能指向不同国家时保持左侧优先，不做消歧（沿用既有口径）。
func (r *Resolver) detectCountryInText(partnerName string) string {
	txt := strings.TrimSpace(nonAlphaPattern.ReplaceAllString(partnerName, " "))
	if txt == "" {
		return ""
	}

	var words []string
	for _, w := range strings.Fields(txt) {
		if len(w) >= 4 {
			words = append(words, w)
		}
	}

	for _, n := range []int{4, 3, 2, 1} {
		for i := 0; i+n <= len(words); i++ {
			phrase := strings.Join(words[i:i+n], " ")
			if country, ok := r.lookup.Resolve(phrase); ok {
				return country
			}
		}
	}
	return ""
}

// inferFromNetworkID 按网络标识前三位查前缀表
func inferFromNetworkID(networkID string) string {
	nid := strings.ToUpper(strings.TrimSpace(networkID))
	if len(nid) < 3 {
		return ""
	}
	return networkPrefixes[nid[:3]]
}

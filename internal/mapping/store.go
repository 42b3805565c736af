package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"roamstat/internal/model"
)

// ErrMalformedFile 映射文件存在但缺少必需列，属致命配置错误
// 需要运维人工修复文件后重跑，程序不做自动纠正。
var ErrMalformedFile = errors.New("mapping file missing required columns")

// countryColumn 映射文件第二列固定列名
const countryColumn = "Country"

// Store 键→国家 映射表，CSV 文件持久化
//
// 生命周期：每次流水线运行 Load 一次；只通过 Merge 增量并入新学到的映射
// （从不整表覆盖）；每次 Merge 后立即整文件重写，后续运行即可受益。
// 单写者假设：同一映射文件的并发运行不做协议保护，后写覆盖。
type Store struct {
	path      string
	keyColumn string // "Network ID" 或 "Partner Name"
	pairs     []model.MappingPair
}

// NewStore 创建映射表实例
func NewStore(path, keyColumn string) *Store {
	return &Store{
		path:      path,
		keyColumn: keyColumn,
	}
}

// Load 读入映射文件
//
// 文件不存在或为空时初始化为只有表头的空表；缺少必需列返回 ErrMalformedFile。
// 存量 Country 值为 ""/"none"/"nan"（不区分大小写）的统一归一为空串，
// 视为“尚无断言”，绝不当作否定结论。
func (s *Store) Load() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("创建映射目录失败: %w", err)
	}

	info, err := os.Stat(s.path)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		s.pairs = nil
		return s.persist()
	}
	if err != nil {
		return fmt.Errorf("读取映射文件失败: %w", err)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("打开映射文件失败: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("解析映射文件失败: %w", err)
	}
	if len(rows) == 0 {
		s.pairs = nil
		return s.persist()
	}

	keyIdx, countryIdx := -1, -1
	for i, col := range rows[0] {
		switch strings.TrimSpace(col) {
		case s.keyColumn:
			keyIdx = i
		case countryColumn:
			countryIdx = i
		}
	}
	if keyIdx < 0 || countryIdx < 0 {
		return fmt.Errorf("%w: 需要列 %s, %s (文件 %s)", ErrMalformedFile, s.keyColumn, countryColumn, s.path)
	}

	pairs := make([]model.MappingPair, 0, len(rows)-1)
	for _, row := range rows[1:] {
		key := ""
		if keyIdx < len(row) {
			key = strings.TrimSpace(row[keyIdx])
		}
		country := ""
		if countryIdx < len(row) {
			country = NormalizeCountry(row[countryIdx])
		}
		if key == "" {
			continue
		}
		pairs = append(pairs, model.MappingPair{Key: key, Country: country})
	}

	s.pairs = pairs
	return nil
}

// Pairs 当前内存表快照
func (s *Store) Pairs() []model.MappingPair {
	out := make([]model.MappingPair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

// Len 表内条目数
func (s *Store) Len() int {
	return len(s.pairs)
}

// Merge 并入一批候选映射
//
// 先修剪两个字段并丢弃键或国家为空的候选；没有合格候选时不落盘直接返回。
// 合格候选与存量表求并、按键去重保留最后一次出现（候选覆盖旧值）、
// 按键排序后整表重写。返回实际并入的候选数。
func (s *Store) Merge(candidates []model.MappingPair) (int, error) {
	qualified := make([]model.MappingPair, 0, len(candidates))
	for _, c := range candidates {
		key := strings.TrimSpace(c.Key)
		country := NormalizeCountry(c.Country)
		if key == "" || country == "" {
			continue
		}
		qualified = append(qualified, model.MappingPair{Key: key, Country: country})
	}
	if len(qualified) == 0 {
		return 0, nil
	}

	combined := append(append([]model.MappingPair{}, s.pairs...), qualified...)

	// 按键去重，保留最后一次出现
	lastByKey := make(map[string]string, len(combined))
	for _, p := range combined {
		lastByKey[p.Key] = p.Country
	}

	merged := make([]model.MappingPair, 0, len(lastByKey))
	for key, country := range lastByKey {
		merged = append(merged, model.MappingPair{Key: key, Country: country})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Key < merged[j].Key })

	s.pairs = merged
	if err := s.persist(); err != nil {
		return 0, err
	}
	return len(qualified), nil
}

// persist 整表重写（无增量日志，重写即持久化协议）
func (s *Store) persist() error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("写映射文件失败: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{s.keyColumn, countryColumn}); err != nil {
		return fmt.Errorf("写映射表头失败: %w", err)
	}
	for _, p := range s.pairs {
		if err := w.Write([]string{p.Key, p.Country}); err != nil {
			return fmt.Errorf("写映射行失败: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("刷新映射文件失败: %w", err)
	}
	return nil
}

// NormalizeCountry 归一国家值："", "none", "nan"（不区分大小写）一律视为空
func NormalizeCountry(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "none", "nan":
		return ""
	}
	return s
}

package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"roamstat/internal/mapping"
	"roamstat/internal/model"
	"roamstat/internal/parser"
	"roamstat/internal/resolver"
)

// ErrNoUsableData 整批文件处理完毕没有抽取到任何记录
// 不允许静默产出空结果，必须显式报错让操作员检查表名/表头。
var ErrNoUsableData = errors.New("no usable data extracted from uploaded files")

// ErrEmptyCorrection 人工补录批次里没有一条填写了国家
var ErrEmptyCorrection = errors.New("correction batch has no qualifying rows")

// UploadFile 一个已完整读入内存的上传工作簿
type UploadFile struct {
	Filename string
	Data     []byte
}

// ProgressEvent 流水线进度事件（SSE 推给前端）
type ProgressEvent struct {
	Type      string      `json:"type"` // start/file_start/file_done/info/warning/done/error
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ProgressFunc 进度回调，可为 nil
type ProgressFunc func(ProgressEvent)

// Result 一次摄取运行的产出
type Result struct {
	Records      []model.UsageRecord     `json:"records"`
	Unresolved   []model.UnresolvedPair  `json:"unresolved"`
	Reports      []*parser.ExtractReport `json:"reports"`
	NewNetwork   int                     `json:"newNetworkMappings"` // 本次学到并落盘的网络映射数
	NewPartner   int                     `json:"newPartnerMappings"` // 本次学到并落盘的伙伴映射数
	YearDetected bool                    `json:"yearDetected"`       // 整批是否至少有一条记录识别出年份
}

// Pipeline 摄取-规整-归属 流水线
//
// 单线程同步执行：一批上传文件跑完才产出结果；映射合并发生在整批
// 解析与归属完成之后，批内不做部分提交。本流水线是映射表的唯一写者。
type Pipeline struct {
	extractor    *parser.SheetExtractor
	resolver     *resolver.Resolver
	networkStore *mapping.Store
	partnerStore *mapping.Store
}

// New 创建流水线
func New(networkStore, partnerStore *mapping.Store, res *resolver.Resolver) *Pipeline {
	return &Pipeline{
		extractor:    parser.NewSheetExtractor(),
		resolver:     res,
		networkStore: networkStore,
		partnerStore: partnerStore,
	}
}

// Run 执行一次摄取运行
//
// 解析全部工作簿 → 网络映射表左联 → 逐条走推断链 → 并入新学到的
// 网络/伙伴映射 → 产出富化数据集与待人工补录的未归属标识对。
// 单簿/单表解析失败只跳过并继续；映射文件结构错误与整批零记录才是致命错。
func (p *Pipeline) Run(files []UploadFile, progress ProgressFunc) (*Result, error) {
	emit := func(ev ProgressEvent) {
		if progress != nil {
			ev.Timestamp = time.Now()
			progress(ev)
		}
	}

	emit(ProgressEvent{Type: "start", Message: fmt.Sprintf("开始处理 %d 个上传文件", len(files))})

	// 映射表每次运行装载一次
	if err := p.networkStore.Load(); err != nil {
		return nil, fmt.Errorf("加载网络映射表失败: %w", err)
	}
	if err := p.partnerStore.Load(); err != nil {
		return nil, fmt.Errorf("加载伙伴映射表失败: %w", err)
	}

	result := &Result{}

	// 逐簿抽取，坏文件跳过不重试
	for _, file := range files {
		emit(ProgressEvent{Type: "file_start", Message: fmt.Sprintf("正在解析: %s", file.Filename)})

		records, report, err := p.extractor.ExtractWorkbook(file.Data, file.Filename)
		if err != nil {
			emit(ProgressEvent{Type: "warning", Message: fmt.Sprintf("跳过无法解析的文件 %s: %v", file.Filename, err)})
			result.Reports = append(result.Reports, &parser.ExtractReport{
				Filename: file.Filename,
				Error:    err.Error(),
			})
			continue
		}

		result.Records = append(result.Records, records...)
		result.Reports = append(result.Reports, report)

		emit(ProgressEvent{
			Type:    "file_done",
			Message: fmt.Sprintf("%s: %d 张表, %d 行", file.Filename, report.ParsedSheets, report.TotalRows),
			Data:    report,
		})
	}

	if len(result.Records) == 0 {
		emit(ProgressEvent{Type: "error", Message: "没有抽取到可用数据，请检查表名与表头"})
		return nil, ErrNoUsableData
	}

	// 网络映射表索引（同键后写覆盖，与存储端保留最后一次出现一致）
	networkIndex := make(map[string]string, p.networkStore.Len())
	for _, pair := range p.networkStore.Pairs() {
		networkIndex[pair.Key] = pair.Country
	}
	existingPartners := make(map[string]bool, p.partnerStore.Len())
	for _, pair := range p.partnerStore.Pairs() {
		existingPartners[strings.ToLower(pair.Key)] = true
	}

	p.resolver.SetPartnerMappings(p.partnerStore.Pairs())

	emit(ProgressEvent{Type: "info", Message: fmt.Sprintf("开始归属推断: %d 行", len(result.Records))})

	// 逐条走推断链；联查命中作为第 0 级直接短路
	for i := range result.Records {
		rec := &result.Records[i]
		mapped := networkIndex[rec.NetworkID]
		rec.Country = mapping.NormalizeCountry(p.resolver.Resolve(rec.PartnerName, rec.NetworkID, mapped))
		if rec.Year != nil {
			result.YearDetected = true
		}
	}

	// 收集本次新学到的映射：表里尚无该键且推断出了非空国家
	var newNetworkPairs []model.MappingPair
	seenNetwork := map[string]bool{}
	var newPartnerPairs []model.MappingPair
	seenPartner := map[string]bool{}

	for i := range result.Records {
		rec := &result.Records[i]
		if rec.Country == "" {
			continue
		}
		if !networkIndexHas(networkIndex, rec.NetworkID) && !seenNetwork[rec.NetworkID] {
			seenNetwork[rec.NetworkID] = true
			newNetworkPairs = append(newNetworkPairs, model.MappingPair{Key: rec.NetworkID, Country: rec.Country})
		}
		lower := strings.ToLower(rec.PartnerName)
		if !existingPartners[lower] && !seenPartner[lower] {
			seenPartner[lower] = true
			newPartnerPairs = append(newPartnerPairs, model.MappingPair{Key: rec.PartnerName, Country: rec.Country})
		}
	}

	// 批内全部归属完成后才合并落盘（不做批中途提交）
	added, err := p.networkStore.Merge(newNetworkPairs)
	if err != nil {
		return nil, fmt.Errorf("合并网络映射失败: %w", err)
	}
	result.NewNetwork = added

	added, err = p.partnerStore.Merge(newPartnerPairs)
	if err != nil {
		return nil, fmt.Errorf("合并伙伴映射失败: %w", err)
	}
	result.NewPartner = added

	result.Unresolved = collectUnresolved(result.Records)

	emit(ProgressEvent{
		Type: "done",
		Message: fmt.Sprintf("摄取完成: %d 行, 新学映射 %d+%d, 待补录 %d",
			len(result.Records), result.NewNetwork, result.NewPartner, len(result.Unresolved)),
		Data: map[string]interface{}{
			"rows":       len(result.Records),
			"unresolved": len(result.Unresolved),
		},
	})

	return result, nil
}

// Correction 一条人工确认的 标识→国家 补录
type Correction struct {
	NetworkID   string `json:"networkId"`
	PartnerName string `json:"partnerName"`
	Country     string `json:"country"`
}

// ApplyCorrections 并入一批人工补录
//
// 补录批次与推断批次走同一套 Merge 语义（一次性保存）。整批没有一条
// 填写了国家时报验证错误且不落盘。国家名按原样保存，不经目录校验。
func (p *Pipeline) ApplyCorrections(batch []Correction) (networkAdded, partnerAdded int, err error) {
	var networkPairs, partnerPairs []model.MappingPair
	for _, c := range batch {
		country := mapping.NormalizeCountry(c.Country)
		if country == "" {
			continue
		}
		if key := strings.TrimSpace(c.NetworkID); key != "" {
			networkPairs = append(networkPairs, model.MappingPair{Key: key, Country: country})
		}
		if key := strings.TrimSpace(c.PartnerName); key != "" {
			partnerPairs = append(partnerPairs, model.MappingPair{Key: key, Country: country})
		}
	}
	if len(networkPairs) == 0 && len(partnerPairs) == 0 {
		return 0, 0, ErrEmptyCorrection
	}

	if networkAdded, err = p.networkStore.Merge(networkPairs); err != nil {
		return 0, 0, fmt.Errorf("合并补录网络映射失败: %w", err)
	}
	if partnerAdded, err = p.partnerStore.Merge(partnerPairs); err != nil {
		return networkAdded, 0, fmt.Errorf("合并补录伙伴映射失败: %w", err)
	}
	return networkAdded, partnerAdded, nil
}

// collectUnresolved 汇出未归属的标识对（去重、按网络标识排序）
func collectUnresolved(records []model.UsageRecord) []model.UnresolvedPair {
	seen := map[string]bool{}
	var out []model.UnresolvedPair
	for i := range records {
		rec := &records[i]
		if rec.Country != "" {
			continue
		}
		key := rec.NetworkID + "\x00" + rec.PartnerName
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.UnresolvedPair{
			NetworkID:   rec.NetworkID,
			PartnerName: rec.PartnerName,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NetworkID != out[j].NetworkID {
			return out[i].NetworkID < out[j].NetworkID
		}
		return out[i].PartnerName < out[j].PartnerName
	})
	return out
}

func networkIndexHas(index map[string]string, key string) bool {
	_, ok := index[key]
	return ok
}

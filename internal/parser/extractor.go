package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"roamstat/internal/model"
)

// SheetExtractor 工作簿抽取器
//
// 读取一个上传的工作簿，逐表套用列规整，过滤汇总行/页脚行，
// 并给每行打上 年份（来自文件名）与 期间（来自 Sheet 名）标签。
type SheetExtractor struct {
	normalizer *ColumnNormalizer
}

// NewSheetExtractor 创建抽取器
func NewSheetExtractor() *SheetExtractor {
	return &SheetExtractor{
		normalizer: NewColumnNormalizer(),
	}
}

// 保留的汇总表名（整表跳过）
var reservedSheetNames = map[string]bool{
	"total":  true,
	"sheet1": true,
}

// ExtractWorkbook 抽取整个工作簿
//
// 单表失败（读不出、缺标识列）只记入报告并继续；整簿打不开才返回错误。
// 所有表都没有产出记录时返回空数据集而非错误，是否致命由调用方按整批判断。
func (e *SheetExtractor) ExtractWorkbook(data []byte, filename string) ([]model.UsageRecord, *ExtractReport, error) {
	start := time.Now()

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer f.Close()

	year := YearFromFilename(filename)

	report := &ExtractReport{
		Filename: filename,
		Year:     year,
	}

	var records []model.UsageRecord

	sheets := f.GetSheetList()
	report.TotalSheets = len(sheets)

	for _, sheet := range sheets {
		result := e.extractSheet(f, sheet, filename, year, &records)
		report.Sheets = append(report.Sheets, result)
		switch result.Status {
		case SheetParsed:
			report.ParsedSheets++
			report.TotalRows += result.Rows
		default:
			report.SkippedSheets++
		}
	}

	report.Duration = time.Since(start)
	return records, report, nil
}

// extractSheet 抽取单张工作表，产出行直接追加到 records
func (e *SheetExtractor) extractSheet(f *excelize.File, sheet, filename string, year *int, records *[]model.UsageRecord) SheetResult {
	if reservedSheetNames[strings.ToLower(strings.TrimSpace(sheet))] {
		return SheetResult{
			SheetName: sheet,
			Status:    SheetSkipped,
			Reason:    "保留的汇总表",
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return SheetResult{
			SheetName: sheet,
			Status:    SheetError,
			Reason:    fmt.Sprintf("读取 Sheet 失败: %v", err),
		}
	}

	// 首行是标题/横幅行，表头从第二行开始
	if len(rows) < 2 {
		return SheetResult{
			SheetName: sheet,
			Status:    SheetSkipped,
			Reason:    "无表头行",
		}
	}
	headers := rows[1]
	dataRows := rows[2:]

	plan := e.normalizer.PlanColumns(headers)
	if !plan.HasIdentifiers() {
		return SheetResult{
			SheetName: sheet,
			Status:    SheetSkipped,
			Reason:    "缺少 Partner Name / Network ID 标识列",
		}
	}

	result := SheetResult{
		SheetName: sheet,
		Status:    SheetParsed,
	}

	for _, row := range dataRows {
		rec := e.normalizer.NormalizeRow(plan, row)

		// 过滤空标识行与 Total/Grand Total 汇总行
		if rec.PartnerName == "" || rec.NetworkID == "" ||
			IsSummaryMarker(rec.PartnerName) || IsSummaryMarker(rec.NetworkID) {
			result.DroppedRows++
			continue
		}

		rec.Year = year
		rec.Period = sheet
		rec.SourceFile = filename

		*records = append(*records, rec)
		result.Rows++
	}

	return result
}

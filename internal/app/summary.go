package app

import (
	"encoding/json"
	"path/filepath"

	"github.com/John-Robertt/EDFKIT/internal/config"
	"github.com/John-Robertt/EDFKIT/internal/domain"
	"github.com/John-Robertt/EDFKIT/internal/headers"
	"github.com/John-Robertt/EDFKIT/internal/infra/fsx"
)

// RunSummary 解析 headers 报告并把汇总写入 <path>/outputs/data_summary.json。
//
// headers 文件不存在不算错误：产出一份空汇总（与“报告还没生成”的日常情形对齐）。
func RunSummary(eff config.EffectiveConfig) (*domain.Summary, string, error) {
	sum, err := headers.ParseFile(eff.HeadersFile)
	if err != nil {
		return nil, "", err
	}

	b, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return nil, "", err
	}
	b = append(b, '\n')

	dir := outputsDir(eff)
	if err := fsx.WriteFileAtomicReplace(dir, SummaryFileName, b); err != nil {
		return nil, "", err
	}
	return sum, filepath.Join(dir, SummaryFileName), nil
}

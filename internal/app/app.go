// Package app 把各子命令的执行流程收敛到少量入口函数：
// 读配置产物（EffectiveConfig）、调用核心包、把产物原子写入 <path>/outputs/。
//
// 约束：
// - app 层不做任何终端输出；进度经 Observer、结果经返回值交给 cmd 层
// - 输出文件一律临时文件 + rename 落盘，读者看不到半截文件
package app

import (
	"bytes"
	"encoding/csv"
	"path/filepath"

	"github.com/John-Robertt/EDFKIT/internal/config"
	"github.com/John-Robertt/EDFKIT/internal/infra/fsx"
)

const (
	// OutputsDirName 是所有产物的固定输出目录（相对数据集根目录）。
	// 扫描阶段永久排除该目录，产物不会被当成输入。
	OutputsDirName = "outputs"

	SummaryFileName = "data_summary.json"
	SelectFileName  = "selected.csv"
	LabelsFileName  = "labels.csv"
)

func outputsDir(eff config.EffectiveConfig) string {
	return filepath.Join(eff.Path, OutputsDirName)
}

// writeCSVAtomic 把 header+rows 编码为 CSV 并原子写入 dir/name。
func writeCSVAtomic(dir, name string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(dir, name, buf.Bytes())
}

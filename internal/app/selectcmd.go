package app

import (
	"os"
	"path/filepath"

	"github.com/John-Robertt/EDFKIT/internal/config"
	"github.com/John-Robertt/EDFKIT/internal/domain"
	"github.com/John-Robertt/EDFKIT/internal/filter"
)

// SelectOptions 是 select 命令在配置之外的运行期开关。
type SelectOptions struct {
	// KeepLocal=true 时只保留本地镜像中实际存在、且时长超过 min_duration 的行，
	// 并把 filepath 改写为本地绝对路径。
	KeepLocal bool
}

// RunSelect 流式筛选 headers 报告并把结果写入 <path>/outputs/selected.csv。
func RunSelect(eff config.EffectiveConfig, opt SelectOptions) (domain.SelectReport, error) {
	rep := domain.SelectReport{HeadersFile: eff.HeadersFile}

	f, err := os.Open(eff.HeadersFile)
	if err != nil {
		return rep, err
	}
	defer f.Close()

	rows := make([]domain.SelectRow, 0, 256)
	res, err := filter.Stream(f, filter.Options{
		Selective:        eff.Selective,
		TargetElectrodes: eff.TargetElectrodes,
	}, func(r domain.SelectRow) error {
		rows = append(rows, r)
		return nil
	})
	if err != nil {
		return rep, err
	}
	rep.Scanned = res.Scanned
	rep.Matched = res.Written

	if opt.KeepLocal {
		rows = filter.KeepCurrent(rows, eff.Path, eff.MinDuration)
	}
	rep.Written = len(rows)

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.CSV())
	}
	dir := outputsDir(eff)
	if err := writeCSVAtomic(dir, SelectFileName, domain.SelectHeader, out); err != nil {
		return rep, err
	}
	rep.OutFile = filepath.Join(dir, SelectFileName)
	return rep, nil
}

package app

import (
	"path/filepath"
	"time"

	"github.com/John-Robertt/EDFKIT/internal/config"
	"github.com/John-Robertt/EDFKIT/internal/domain"
	"github.com/John-Robertt/EDFKIT/internal/edf"
	"github.com/John-Robertt/EDFKIT/internal/scan"
)

// RunLabels 扫描数据集下的 EDF 文件，从各自的 256 字节头部提取 age/gender，
// 写入 <path>/outputs/labels.csv。单个文件失败只记录，不终止整次命令。
func RunLabels(eff config.EffectiveConfig) (domain.LabelsReport, error) {
	rep := domain.LabelsReport{
		Root:     eff.Path,
		Failures: []domain.LabelFailure{},
	}

	files, err := scan.ScanEDF(eff.Path, eff.ExcludeDirs)
	if err != nil {
		return rep, err
	}
	rep.Scanned = len(files)

	now := time.Now()
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		h, err := edf.ReadHeaderFile(f.AbsPath)
		if err != nil {
			rep.Failed++
			rep.Failures = append(rep.Failures, domain.LabelFailure{File: f.RelPath, Err: err.Error()})
			continue
		}
		age, gender := edf.AgeGender(h, now)
		rows = append(rows, domain.LabelRow{
			Filename: f.RelPath,
			Age:      age,
			Gender:   gender,
		}.CSV())
	}
	rep.Written = len(rows)

	dir := outputsDir(eff)
	if err := writeCSVAtomic(dir, LabelsFileName, domain.LabelHeader, rows); err != nil {
		return rep, err
	}
	rep.OutFile = filepath.Join(dir, LabelsFileName)
	return rep, nil
}

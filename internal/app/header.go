package app

import (
	"time"

	"github.com/John-Robertt/EDFKIT/internal/edf"
)

// HeaderInfo 是 header 命令的输出：解码后的固定头部字段，
// 外加启发式提取的 age/gender（缺失为空串）。
type HeaderInfo struct {
	File string `json:"file"`

	Version   string `json:"version"`
	Patient   string `json:"patient"`
	Recording string `json:"recording"`
	StartDate string `json:"start_date"`
	StartTime string `json:"start_time"`

	HeaderBytes    int     `json:"header_bytes"`
	DataRecords    int     `json:"data_records"`
	RecordDuration float64 `json:"record_duration"`
	SignalCount    int     `json:"signal_count"`

	Age    string `json:"age"`
	Gender string `json:"gender"`
}

// RunHeader 解码单个 EDF 文件的 256 字节头部（排查头部噪音时的检视入口）。
func RunHeader(path string) (HeaderInfo, error) {
	h, err := edf.ReadHeaderFile(path)
	if err != nil {
		return HeaderInfo{}, err
	}
	age, gender := edf.AgeGender(h, time.Now())
	return HeaderInfo{
		File:           path,
		Version:        h.Version,
		Patient:        h.Patient,
		Recording:      h.Recording,
		StartDate:      h.StartDate,
		StartTime:      h.StartTime,
		HeaderBytes:    h.HeaderBytes,
		DataRecords:    h.DataRecords,
		RecordDuration: h.RecordDuration,
		SignalCount:    h.SignalCount,
		Age:            age,
		Gender:         gender,
	}, nil
}

package domain

// SelectReport 是 select 命令的结果汇总（stdout JSON / 人读摘要共用）。
type SelectReport struct {
	HeadersFile string `json:"headers_file"`
	OutFile     string `json:"out_file"`

	// Scanned 是报告里开始过的 record 数；Matched 是通过电极筛选的行数；
	// Written 是最终写入 CSV 的行数（启用本地存在性过滤时可能更少）。
	Scanned int `json:"scanned"`
	Matched int `json:"matched"`
	Written int `json:"written"`
}

// LabelsReport 是 labels 命令的结果汇总。
type LabelsReport struct {
	Root    string `json:"root"`
	OutFile string `json:"out_file"`

	Scanned int `json:"scanned"`
	Written int `json:"written"`
	Failed  int `json:"failed"`

	Failures []LabelFailure `json:"failures"`
}

// LabelFailure 记录单个 EDF 文件的读取/解码失败。单个失败不终止整次 labels。
type LabelFailure struct {
	File string `json:"file"`
	Err  string `json:"err"`
}

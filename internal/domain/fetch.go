package domain

const (
	FetchStatusDownloaded = "downloaded"
	FetchStatusSkipped    = "skipped"
	FetchStatusFailed     = "failed"
)

// FetchReport 是 fetch 命令的结果汇总（stdout JSON / 人读摘要共用）。
type FetchReport struct {
	RootURL string `json:"root_url"`
	OutDir  string `json:"out_dir"`

	Pages      int `json:"pages"`
	Downloaded int `json:"downloaded"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`

	Failures []FetchFailure `json:"failures"`
}

// FetchFailure 记录单个 URL 的失败原因。单个失败不终止整次 crawl。
type FetchFailure struct {
	URL string `json:"url"`
	Err string `json:"err"`
}

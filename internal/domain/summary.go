package domain

import "encoding/json"

// Summary 是对外稳定输出（data_summary.json / stdout JSON）的结构。
//
// 约束：
// - JSON 键名（fs_all / FS_NOT_SAME / ...）是既有下游脚本直接消费的约定，不可改
// - FrequencyByRecord 的值可为 nil（该 record 从未出现 hdr_sample_frequency 行）
// - 两个异常列表按“首次标记”的输入顺序排列；重复标记不产生重复条目
type Summary struct {
	FrequencyByRecord map[string]*float64 `json:"fs_all"`

	InconsistentCount int      `json:"FS_NOT_SAME"`
	InconsistentList  []string `json:"FS_NOT_SAME_LIST"`

	ElectrodeCounts map[string]int `json:"electrodes_all"`

	DuplicateCount int      `json:"ELECTRODES_NOT_UNIQUE"`
	DuplicateList  []string `json:"ELECTRODES_NOT_UNIQUE_LIST"`

	inconsistent map[string]struct{}
	duplicate    map[string]struct{}
}

// NewSummary 返回全部字段已初始化的空 Summary。
// 列表必须是 [] 而非 null：JSON 消费方不做 null 判断。
func NewSummary() *Summary {
	return &Summary{
		FrequencyByRecord: map[string]*float64{},
		InconsistentList:  []string{},
		ElectrodeCounts:   map[string]int{},
		DuplicateList:     []string{},
		inconsistent:      map[string]struct{}{},
		duplicate:         map[string]struct{}{},
	}
}

// RegisterRecord 登记一个 record key。
// 语义是 setdefault：key 已存在时保留原值（重复 key 视为同一条目的再次开始，
// 已提取到的 headerFrequency 不被清空）。
func (s *Summary) RegisterRecord(key string) {
	if _, ok := s.FrequencyByRecord[key]; !ok {
		s.FrequencyByRecord[key] = nil
	}
}

// SetFrequency 写入 record 的 headerFrequency（提取到即写穿，不等 finalize）。
func (s *Summary) SetFrequency(key string, v float64) {
	f := v
	s.FrequencyByRecord[key] = &f
}

// CountElectrode 把一个合格的规范化 label 计入全局直方图。只增不减。
func (s *Summary) CountElectrode(label string) {
	s.ElectrodeCounts[label]++
}

// MarkInconsistent 标记 record 的 Block 6 通道采样率不一致。集合语义，重复标记无效果。
func (s *Summary) MarkInconsistent(key string) {
	if _, ok := s.inconsistent[key]; ok {
		return
	}
	s.inconsistent[key] = struct{}{}
	s.InconsistentList = append(s.InconsistentList, key)
}

// MarkDuplicate 标记 record 的 chan_labels 含重复 label。集合语义。
func (s *Summary) MarkDuplicate(key string) {
	if _, ok := s.duplicate[key]; ok {
		return
	}
	s.duplicate[key] = struct{}{}
	s.DuplicateList = append(s.DuplicateList, key)
}

// Finalize 由列表推导两个计数字段。幂等，可重复调用。
func (s *Summary) Finalize() {
	s.InconsistentCount = len(s.InconsistentList)
	s.DuplicateCount = len(s.DuplicateList)
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (s Summary) MarshalJSON() ([]byte, error) {
	type Alias Summary
	return json.Marshal(Alias(s))
}

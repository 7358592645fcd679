package headers

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/John-Robertt/EDFKIT/internal/domain"
)

func parseLines(t *testing.T, lines ...string) *domain.Summary {
	t.Helper()
	sum, err := Parse(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	return sum
}

func TestParse_EndToEndTwoRecords(t *testing.T) {
	sum := parseLines(t,
		"1: fileA.rec",
		"hdr_sample_frequency = 250.0",
		"Block 6: derived values",
		"channel[  0]:  250.0 Hz (EEG FP1-REF)",
		"channel[  1]:  250.0 Hz (EEG O2-REF)",
		"channel[  2]:  250.0 Hz (EEG RESP-REF)",
		"2: fileB.rec",
		"Block 6:",
		"channel[  0]:  250.0 Hz (EEG C3-REF)",
		"channel[  1]:  256.0 Hz (EEG C4-REF)",
	)

	if len(sum.FrequencyByRecord) != 2 {
		t.Fatalf("期望 2 条 record，实际 %d", len(sum.FrequencyByRecord))
	}
	if v := sum.FrequencyByRecord["fileA.rec"]; v == nil || *v != 250.0 {
		t.Fatalf("期望 fileA.rec 的 fs=250.0，实际 %v", v)
	}
	if v, ok := sum.FrequencyByRecord["fileB.rec"]; !ok || v != nil {
		t.Fatalf("期望 fileB.rec 存在且 fs 为 nil，实际 ok=%v v=%v", ok, v)
	}

	// 排除词 RESP 命中的通道不进入直方图。
	want := map[string]int{"EEG FP1-REF": 1, "EEG O2-REF": 1, "EEG C3-REF": 1, "EEG C4-REF": 1}
	if len(sum.ElectrodeCounts) != len(want) {
		t.Fatalf("期望 %d 个 label，实际 %v", len(want), sum.ElectrodeCounts)
	}
	for k, n := range want {
		if sum.ElectrodeCounts[k] != n {
			t.Fatalf("期望 %q 计数 %d，实际 %d", k, n, sum.ElectrodeCounts[k])
		}
	}

	if sum.InconsistentCount != 1 || len(sum.InconsistentList) != 1 || sum.InconsistentList[0] != "fileB.rec" {
		t.Fatalf("期望仅 fileB.rec 被标记为采样率不一致，实际 %v", sum.InconsistentList)
	}
	if sum.DuplicateCount != 0 {
		t.Fatalf("不期望重复 label 标记，实际 %v", sum.DuplicateList)
	}
}

func TestParse_ToleranceBoundary(t *testing.T) {
	tests := []struct {
		name string
		fs2  string
		flag bool
	}{
		{name: "1e-6 以内不标记", fs2: "100.0000005", flag: false},
		{name: "超出容差标记", fs2: "100.01", flag: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := parseLines(t,
				"1: f.rec",
				"Block 6:",
				"channel[ 0]: 100.0 Hz (EEG FP1-REF)",
				"channel[ 1]: "+tt.fs2+" Hz (EEG FP2-REF)",
			)
			got := len(sum.InconsistentList) == 1
			if got != tt.flag {
				t.Fatalf("期望 flag=%v，实际列表 %v", tt.flag, sum.InconsistentList)
			}
		})
	}
}

func TestParse_EmptyFreqListNeverFlagged(t *testing.T) {
	sum := parseLines(t,
		"1: f.rec",
		"hdr_sample_frequency = 256",
	)
	if len(sum.InconsistentList) != 0 {
		t.Fatalf("没有 Block 6 通道数据的 record 不应被标记：%v", sum.InconsistentList)
	}
}

func TestParse_DuplicateLabels(t *testing.T) {
	tests := []struct {
		name   string
		tokens string
		flag   bool
	}{
		{name: "大小写归一后重复", tokens: "[Fp1] [FP1] [O2]", flag: true},
		{name: "无重复", tokens: "[FP1] [FP2]", flag: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := parseLines(t,
				"1: f.rec",
				"chan_labels (3) = "+tt.tokens,
				"chan_trans_type (3) = ...",
			)
			got := len(sum.DuplicateList) == 1
			if got != tt.flag {
				t.Fatalf("期望 flag=%v，实际列表 %v", tt.flag, sum.DuplicateList)
			}
		})
	}
}

func TestParse_DuplicateCheckAtEOFWhileCollecting(t *testing.T) {
	// chan_labels 收集未被 chan_trans_type 终止就 EOF：finalize 仍须执行重复检测。
	sum := parseLines(t,
		"1: f.rec",
		"chan_labels (2) =",
		"  [C3-REF]",
		"  [c3-ref]",
	)
	if len(sum.DuplicateList) != 1 || sum.DuplicateList[0] != "f.rec" {
		t.Fatalf("期望 EOF 时仍检测到重复，实际 %v", sum.DuplicateList)
	}
}

func TestParse_ExclusionFiltering(t *testing.T) {
	sum := parseLines(t,
		"1: f.rec",
		"Block 6:",
		"channel[ 0]: 250.0 Hz (EEG RESP-REF)",
	)
	if len(sum.ElectrodeCounts) != 0 {
		t.Fatalf("RESP 命中排除词，不应计入直方图：%v", sum.ElectrodeCounts)
	}
	if len(sum.InconsistentList) != 0 {
		t.Fatalf("被排除的通道不应贡献采样率：%v", sum.InconsistentList)
	}
}

func TestParse_ChannelOutsideBlock6Ignored(t *testing.T) {
	sum := parseLines(t,
		"1: f.rec",
		"Block 3:",
		"channel[ 0]: 250.0 Hz (EEG FP1-REF)",
	)
	if len(sum.ElectrodeCounts) != 0 {
		t.Fatalf("Block 6 之外的通道行不应产生状态：%v", sum.ElectrodeCounts)
	}
}

func TestParse_PhraseTriggeredBlock6(t *testing.T) {
	// 两个短语都是 Block 6 的别名入口，即使没有显式 "Block 6:" 行。
	for _, phrase := range []string{"Per Channel Sample Frequencies:", "--- Derived Values ---"} {
		sum := parseLines(t,
			"1: f.rec",
			phrase,
			"channel[ 0]: 250.0 Hz (EEG FP1-REF)",
		)
		if sum.ElectrodeCounts["EEG FP1-REF"] != 1 {
			t.Fatalf("短语 %q 应触发 Block 6 语义，实际 %v", phrase, sum.ElectrodeCounts)
		}
	}
}

func TestParse_BlockIdentityPersistsUntilOverwritten(t *testing.T) {
	sum := parseLines(t,
		"1: f.rec",
		"Block 6:",
		"channel[ 0]: 250.0 Hz (EEG FP1-REF)",
		"Block 7:",
		"channel[ 1]: 250.0 Hz (EEG FP2-REF)",
	)
	if len(sum.ElectrodeCounts) != 1 || sum.ElectrodeCounts["EEG FP1-REF"] != 1 {
		t.Fatalf("Block 7 之后的通道不应计数，实际 %v", sum.ElectrodeCounts)
	}
}

func TestParse_MissingHeaderFrequencyStillListed(t *testing.T) {
	sum := parseLines(t,
		"1: nofs.rec",
		"Block 2:",
	)
	v, ok := sum.FrequencyByRecord["nofs.rec"]
	if !ok {
		t.Fatal("没有 hdr_sample_frequency 的 record 也必须出现在 fs_all 中")
	}
	if v != nil {
		t.Fatalf("期望 nil（JSON null），实际 %v", *v)
	}
	b, err := json.Marshal(sum)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !strings.Contains(string(b), `"nofs.rec":null`) {
		t.Fatalf("期望 JSON 输出含 null 值，实际 %s", b)
	}
}

func TestParse_LinesBeforeFirstRecordDiscarded(t *testing.T) {
	sum := parseLines(t,
		"hdr_sample_frequency = 999",
		"Block 6:",
		"channel[ 0]: 250.0 Hz (EEG FP1-REF)",
		"1: f.rec",
	)
	if len(sum.FrequencyByRecord) != 1 {
		t.Fatalf("期望仅 1 条 record，实际 %v", sum.FrequencyByRecord)
	}
	if len(sum.ElectrodeCounts) != 0 {
		t.Fatalf("首个 record 之前的行必须整行丢弃：%v", sum.ElectrodeCounts)
	}
}

func TestParse_EmptyRemainderIsNotABoundary(t *testing.T) {
	// "3:   " 形如 record 起始但余部为空：按普通内容处理，不切换 record。
	sum := parseLines(t,
		"1: f.rec",
		"hdr_sample_frequency = 100",
		"3:   ",
		"hdr_sample_frequency = 200",
	)
	if len(sum.FrequencyByRecord) != 1 {
		t.Fatalf("期望仍是 1 条 record，实际 %v", sum.FrequencyByRecord)
	}
	if v := sum.FrequencyByRecord["f.rec"]; v == nil || *v != 200 {
		t.Fatalf("期望后一条 fs 覆盖为 200，实际 %v", v)
	}
}

func TestParse_ConservationOfLabelCounts(t *testing.T) {
	// 直方图总和 == 所有 record 计入的合格 label 次数之和。
	sum := parseLines(t,
		"1: a.rec",
		"Block 6:",
		"channel[ 0]: 250.0 Hz (EEG FP1-REF)",
		"channel[ 1]: 250.0 Hz (EEG FP2-REF)",
		"2: b.rec",
		"Block 6:",
		"channel[ 0]: 250.0 Hz (EEG FP1-REF)",
		"channel[ 1]: 250.0 Hz (ECG EKG1)",
		"channel[ 2]: 250.0 Hz (Pulse Rate)",
	)
	total := 0
	for _, n := range sum.ElectrodeCounts {
		total += n
	}
	if total != 4 {
		t.Fatalf("期望计入 4 次，实际 %d（%v）", total, sum.ElectrodeCounts)
	}
	if sum.ElectrodeCounts["EEG FP1-REF"] != 2 {
		t.Fatalf("期望 EEG FP1-REF 跨 record 累计为 2，实际 %v", sum.ElectrodeCounts)
	}
}

func TestParse_Idempotence(t *testing.T) {
	input := strings.Join([]string{
		"1: a.rec",
		"hdr_sample_frequency = 250.0",
		"Block 6:",
		"channel[ 0]: 250.0 Hz (EEG FP1-REF)",
		"channel[ 1]: 256.0 Hz (EEG FP2-REF)",
		"chan_labels (2) = [FP1] [fp1]",
		"2: b.rec",
		"Block 6:",
		"channel[ 0]: 250.0 Hz (EEG O1-REF)",
	}, "\n")

	first, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	second, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b1, _ := json.Marshal(first)
	b2, _ := json.Marshal(second)
	if string(b1) != string(b2) {
		t.Fatalf("两次解析输出不一致：\n%s\n%s", b1, b2)
	}
}

func TestParse_RepeatedRecordKeyDoubleCounts(t *testing.T) {
	// 文档化的边界行为：相同 key 再次出现视为新 record，两次 finalize 都计入，
	// 直方图会重复累计；集合成员不重复。
	sum := parseLines(t,
		"1: same.rec",
		"hdr_sample_frequency = 250",
		"Block 6:",
		"channel[ 0]: 250.0 Hz (EEG FP1-REF)",
		"channel[ 1]: 300.0 Hz (EEG FP2-REF)",
		"2: same.rec",
		"Block 6:",
		"channel[ 0]: 100.0 Hz (EEG FP1-REF)",
		"channel[ 1]: 200.0 Hz (EEG FP2-REF)",
	)

	if sum.ElectrodeCounts["EEG FP1-REF"] != 2 {
		t.Fatalf("期望重复 key 双重计数，实际 %v", sum.ElectrodeCounts)
	}
	if len(sum.InconsistentList) != 1 || sum.InconsistentList[0] != "same.rec" {
		t.Fatalf("集合成员不应重复：%v", sum.InconsistentList)
	}
	// setdefault 语义：第二次开始不清空第一次写入的 fs。
	if v := sum.FrequencyByRecord["same.rec"]; v == nil || *v != 250 {
		t.Fatalf("期望保留首次提取的 fs=250，实际 %v", v)
	}
}

func TestParse_MalformedInputNeverFatal(t *testing.T) {
	sum := parseLines(t,
		"1: f.rec",
		"hdr_sample_frequency = ",
		"channel[ x]: abc Hz (EEG FP1-REF)",
		"Block ?:",
		"\xff\xfe garbage bytes",
	)
	if len(sum.FrequencyByRecord) != 1 {
		t.Fatalf("畸形行只应降级为 no-op，record 仍应存在：%v", sum.FrequencyByRecord)
	}
}

func TestParse_EarlyTerminationFinalizesInFlight(t *testing.T) {
	sum := domain.NewSummary()
	p := New(sum)
	p.Feed("1: f.rec")
	p.Feed("Block 6:")
	p.Feed("channel[ 0]: 250.0 Hz (EEG FP1-REF)")
	p.Feed("channel[ 1]: 256.0 Hz (EEG FP2-REF)")
	// 提前停止读取：Finish 必须等效于“输入在此截断”。
	p.Finish()
	sum.Finalize()

	if len(sum.InconsistentList) != 1 {
		t.Fatalf("提前终止也必须 finalize 在途 record：%v", sum.InconsistentList)
	}
}

func TestParseFile_MissingInputYieldsEmptySummary(t *testing.T) {
	sum, err := ParseFile("/no/such/headers.txt")
	if err != nil {
		t.Fatalf("输入缺失不应是错误：%v", err)
	}
	if len(sum.FrequencyByRecord) != 0 || sum.InconsistentCount != 0 || sum.DuplicateCount != 0 {
		t.Fatalf("期望空 Summary，实际 %+v", sum)
	}
}

package headers

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reRecordStart = regexp.MustCompile(`^\s*\d+:\s*(\S.*)$`)
	reBlockStart  = regexp.MustCompile(`(?i)^\s*Block\s+(\d+)\s*:`)

	reHdrFS = regexp.MustCompile(`(?i)^\s*hdr_sample_frequency\s*=\s*([0-9]+(?:\.[0-9]+)?)`)

	reChannelLabeled = regexp.MustCompile(`(?i)^\s*channel\[\s*\d+\]\s*:\s*([0-9]+(?:\.[0-9]+)?)\s*Hz\s*\((.*?)\)`)
	reChannelBare    = regexp.MustCompile(`(?i)^\s*channel\[\s*\d+\]\s*:\s*([0-9]+(?:\.[0-9]+)?)\s*Hz`)

	reChanLabels    = regexp.MustCompile(`(?i)^\s*chan_labels\s*\(\s*\d+\s*\)\s*=\s*(.*)`)
	reChanTransType = regexp.MustCompile(`(?i)^\s*chan_trans_type`)
	reBracket       = regexp.MustCompile(`\[([^\]]+)\]`)

	// reModality：label 必须以独立单词形式含 EEG/ECG/EKG 之一才算候选电极。
	reModality = regexp.MustCompile(`(?i)\b(EEG|ECG|EKG)\b`)

	// reExclude：即使出现在 Block 6、即使含 EEG，命中这些整词的通道也不算电极
	//（脉搏、呼吸、爆发抑制等派生/辅助通道）。
	reExclude = regexp.MustCompile(`(?i)\b(?:PULSE|PULSE\s+RATE|IBI|BURST|BURSTS|SUPPR|SUPPRESSION|RESP|PHOTIC|DC|LOC)\b`)

	// reAlpha：规范化后的 label 至少要有一个字母，过滤纯数字噪音。
	reAlpha = regexp.MustCompile(`[A-Z]`)
)

// rule 是一条字段提取规则。
//
// when 为门（nil 表示总是尝试）；re 为行模式（nil 表示由 apply 自行判断）。
// 规则按声明顺序逐条尝试，首个命中者消费该行——优先级在这里是显式的、
// 可单独测试的，而不是散落在一串 if/continue 里。
type rule struct {
	name  string
	when  func(p *Parser) bool
	re    *regexp.Regexp
	apply func(p *Parser, line string, m []string)
}

var rules = []rule{
	{name: "hdr_fs", re: reHdrFS, apply: applyHdrFS},
	{name: "channel_labeled", re: reChannelLabeled, apply: applyChannelLabeled},
	// 无括号的 channel 行显式消费掉：否则在收集 chan_labels 期间，
	// "channel[ 12]: ..." 里的方括号会被误当成 label token。
	{name: "channel_bare", re: reChannelBare, apply: func(p *Parser, line string, m []string) {}},
	{name: "chan_labels_start", re: reChanLabels, apply: applyChanLabelsStart},
	{name: "chan_labels_cont", when: func(p *Parser) bool { return p.collecting }, apply: applyChanLabelsCont},
}

// applyHdrFS 提取 record 级标量采样率，随提取立即写入 FrequencyByRecord。
// 不受 Block 门限制。数字解析失败则该行降级为 no-op。
func applyHdrFS(p *Parser, line string, m []string) {
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return
	}
	p.sum.SetFrequency(p.cur.key, v)
}

// applyChannelLabeled 处理带括号 label 的 channel 行。
//
// 仅在 Block 6 内、label 含 EEG/ECG/EKG 整词、且未命中排除词时：
//   - 采样率计入 record 的一致性检测列表
//   - 规范化后含字母的 label 计入全局直方图
//
// 三个条件任一不满足时该行仍被消费，但不产生任何状态变化。
func applyChannelLabeled(p *Parser, line string, m []string) {
	if p.block != 6 {
		return
	}
	label := strings.TrimSpace(m[2])
	if !reModality.MatchString(label) || reExclude.MatchString(label) {
		return
	}

	if v, err := strconv.ParseFloat(m[1], 64); err == nil {
		p.cur.freqs = append(p.cur.freqs, v)
	}

	norm := normalizeLabel(label)
	if reAlpha.MatchString(norm) {
		p.sum.CountElectrode(norm)
	}
}

// applyChanLabelsStart 开启 chan_labels 收集；同一行 "=" 之后的方括号 token 立即入列。
func applyChanLabelsStart(p *Parser, line string, m []string) {
	p.collecting = true
	appendBracketTokens(p, m[1])
}

// applyChanLabelsCont 处理收集期间的后续行：
//   - chan_trans_type 行终止收集并立即执行重复检测
//   - 含方括号的行追加 token
//   - 其余行忽略，收集继续
func applyChanLabelsCont(p *Parser, line string, m []string) {
	if reChanTransType.MatchString(line) {
		p.flushLabels()
		return
	}
	if strings.Contains(line, "[") {
		appendBracketTokens(p, line)
	}
}

func appendBracketTokens(p *Parser, s string) {
	for _, m := range reBracket.FindAllStringSubmatch(s, -1) {
		p.cur.labels = append(p.cur.labels, m[1])
	}
}

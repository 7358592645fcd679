// Package headers 以单次前向扫描流式解析 headers.txt（每个源文件一条 record，
// record 内含多个编号 Block），并把结果折叠进 domain.Summary。
//
// 设计（硬约束）：
//   - 严格单线程、按行顺序：record 边界与 Block 标记都依赖行序，乱序必然破坏状态机
//   - 任一时刻只保留一条 record 的可变状态；record 在下一条 record 开始或输入
//     结束时 finalize，之后只留下对全局聚合的只读贡献
//   - 任何畸形片段都降级为该行 no-op，解析过程没有致命错误
package headers

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/John-Robertt/EDFKIT/internal/domain"
)

// tolerance 是 Block 6 通道采样率一致性判定的绝对误差上限。
const tolerance = 1e-6

// maxLineBytes 限定单行上限。chan_labels 行可能携带上百个 label token，
// 默认的 64KiB Scanner 缓冲不够。
const maxLineBytes = 4 * 1024 * 1024

// Parser 是 record/Block 状态机。零值不可用，必须经 New 构造。
//
// 状态只有三项：当前 record 的累积器（nil 表示尚无活跃 record）、当前 Block 号
// （0 表示不在任何 Block 内）、chan_labels 收集标志。所有提取规则都以这三项为门。
type Parser struct {
	sum *domain.Summary

	cur        *record
	block      int
	collecting bool
}

// record 是当前活跃 record 的可变累积状态。finalize 后即丢弃。
type record struct {
	key string

	// freqs 只收集 Block 6 中合格通道（EEG/ECG/EKG 且未被排除词命中）的采样率。
	freqs []float64

	// labels 收集 chan_labels 块中的原始 token（未规范化）。
	labels []string
}

func New(sum *domain.Summary) *Parser {
	return &Parser{sum: sum}
}

// Feed 处理一行输入（不含行尾换行符）。
//
// 顺序（固定）：
//  1. record 边界判定（命中则 finalize 前一条并开启新 record，本行到此为止）
//  2. 无活跃 record 时整行丢弃
//  3. Block 归类（总是执行，不消费行）
//  4. 按优先级尝试提取规则，首个命中者消费该行
func (p *Parser) Feed(line string) {
	if m := reRecordStart.FindStringSubmatch(line); m != nil {
		key := strings.TrimSpace(m[1])
		p.finalize()
		p.cur = &record{key: key}
		p.block = 0
		p.collecting = false
		// 先登记 key：即使后面一行频率都提取不到，该 record 也必须出现在输出里。
		p.sum.RegisterRecord(key)
		return
	}

	if p.cur == nil {
		return
	}

	p.classifyBlock(line)

	for _, r := range rules {
		if r.when != nil && !r.when(p) {
			continue
		}
		var m []string
		if r.re != nil {
			m = r.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
		}
		r.apply(p, line, m)
		return
	}
}

// classifyBlock 在字段提取之前更新“当前 Block”。
//
// 两种入口：
//   - 显式 "Block N:" 行
//   - 含 "derived values" 或 "per channel sample frequencies" 的行强制进入 Block 6
//     （源格式对这两段的编号不一致，必须把短语形式当作 Block 6 的别名入口）
func (p *Parser) classifyBlock(line string) {
	if m := reBlockStart.FindStringSubmatch(line); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			p.block = n
		} else {
			p.block = 0
		}
	}

	low := strings.ToLower(line)
	if strings.Contains(low, "derived values") || strings.Contains(low, "per channel sample frequencies") {
		p.block = 6
	}
}

// Finish 结束本次解析：finalize 仍在途的 record（含“收集 chan_labels 中途 EOF”
// 的情况）。提前终止的调用方也必须走这里，保证输出与“同一输入在此截断”一致。
func (p *Parser) Finish() {
	p.finalize()
}

// finalize 对当前 record 执行一次收尾（下一条 record 开始 / 输入结束时各恰好一次）：
//  1. 冲刷未完结的 chan_labels 收集并做重复检测
//  2. 非空的 Block 6 采样率列表做容差一致性检测；空列表不算异常
func (p *Parser) finalize() {
	if p.cur == nil {
		return
	}

	p.flushLabels()

	if len(p.cur.freqs) > 0 && !floatsAllEqual(p.cur.freqs) {
		p.sum.MarkInconsistent(p.cur.key)
	}

	p.cur = nil
	p.block = 0
	p.collecting = false
}

// flushLabels 规范化已收集的 chan_labels token 并做重复检测。
// 在 chan_trans_type 行出现时立即执行；record 结束时兜底执行一次。
func (p *Parser) flushLabels() {
	p.collecting = false
	if len(p.cur.labels) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(p.cur.labels))
	for _, raw := range p.cur.labels {
		norm := normalizeLabel(raw)
		if _, dup := seen[norm]; dup {
			p.sum.MarkDuplicate(p.cur.key)
			break
		}
		seen[norm] = struct{}{}
	}
	p.cur.labels = p.cur.labels[:0]
}

// normalizeLabel 只做 trim + 大写。开头的 EEG/ECG/EKG 与结尾的 -REF 按约定保留。
func normalizeLabel(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func floatsAllEqual(fs []float64) bool {
	first := fs[0]
	for _, v := range fs {
		if math.Abs(v-first) > tolerance {
			return false
		}
	}
	return true
}

// Parse 从 r 读取全部行并返回聚合结果。
//
// 解码是宽松的：非法 UTF-8 字节替换为 U+FFFD，不会中断读取。
// 返回的 error 只可能来自底层读取（例如超长行溢出缓冲）；此时 Summary 仍是
// 已读部分的有效聚合。
func Parse(r io.Reader) (*domain.Summary, error) {
	sum := domain.NewSummary()
	p := New(sum)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		p.Feed(strings.ToValidUTF8(sc.Text(), "�"))
	}

	p.Finish()
	sum.Finalize()
	return sum, sc.Err()
}

// ParseFile 解析 path 指向的报告文件。
// 输入缺失不是错误：返回空的默认 Summary（“报告还没生成”是日常情形）。
func ParseFile(path string) (*domain.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			sum := domain.NewSummary()
			sum.Finalize()
			return sum, nil
		}
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Package filter 以流式单遍扫描从 headers.txt 为每条 record 提取
// filepath/age/gender/duration/fs，并可选地只保留包含全部目标电极的 record。
//
// 与 headers 包的核心解析器同源但分段器更宽松：行内出现的每个 .edf 路径都开启
// 一条新 record（同一行可能出现多条）；Block 归类只认显式 "Block N:" 行。
package filter

import (
	"bufio"
	"io"
	"strings"

	"github.com/John-Robertt/EDFKIT/internal/domain"
)

// maxLineBytes 与 headers 包一致：chan_labels 行可能非常长。
const maxLineBytes = 4 * 1024 * 1024

// DefaultTargetElectrodes 是 16 导联标准组合（配置未指定时的默认目标集合）。
var DefaultTargetElectrodes = []string{
	"EEG C3-REF", "EEG C4-REF", "EEG F3-REF", "EEG F4-REF", "EEG F7-REF", "EEG F8-REF",
	"EEG FP1-REF", "EEG FP2-REF", "EEG O1-REF", "EEG O2-REF",
	"EEG P3-REF", "EEG P4-REF", "EEG T3-REF", "EEG T4-REF", "EEG T5-REF", "EEG T6-REF",
}

// Options 控制筛选行为。
type Options struct {
	// Selective=true 时，只有通道名集合包含全部 TargetElectrodes 的 record 才产出行。
	Selective        bool
	TargetElectrodes []string
}

// Result 是一次流式筛选的计数摘要。
type Result struct {
	Scanned int // 开始过的 record 数
	Written int // 实际产出的行数
}

// record 是当前活跃 record 的可变状态。flush 后丢弃。
type record struct {
	path     string
	age      string
	gender   string
	duration *float64
	fs       *float64
	chans    map[string]struct{}
}

// Stream 逐行扫描 r，每当一条 record 完结（下一条开始或 EOF）即调用 emit。
// emit 返回非 nil 错误时扫描终止并原样返回该错误。
func Stream(r io.Reader, opt Options, emit func(domain.SelectRow) error) (Result, error) {
	targets := opt.TargetElectrodes
	if opt.Selective && len(targets) == 0 {
		targets = DefaultTargetElectrodes
	}

	var (
		res   Result
		cur   *record
		block int
	)

	flush := func() error {
		if cur == nil {
			return nil
		}
		defer func() { cur = nil }()

		if opt.Selective && !containsAll(cur.chans, targets) {
			return nil
		}
		res.Written++
		return emit(domain.SelectRow{
			Filepath: cur.path,
			Age:      cur.age,
			Gender:   cur.gender,
			Duration: cur.duration,
			FS:       cur.fs,
		})
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := strings.ToValidUTF8(sc.Text(), "�")

		// 行内的每个 .edf 出现都切换到新 record；路径之后的行尾仍参与 age/gender 提取。
		for _, m := range reEDF.FindAllStringSubmatchIndex(line, -1) {
			candidate := strings.Trim(strings.TrimSpace(line[m[2]:m[3]]), `"'`)
			if err := flush(); err != nil {
				return res, err
			}
			cur = &record{path: candidate, chans: map[string]struct{}{}}
			block = 0
			res.Scanned++

			tail := line[m[1]:]
			fillAgeGender(cur, tail)
		}

		if cur == nil {
			continue
		}

		if bm := reBlockHeader.FindStringSubmatch(line); bm != nil {
			block = atoiOrZero(bm[1])
		}

		fillAgeGender(cur, line)

		// Block 5：chan_labels 的方括号 token 并入通道名集合。
		if block == 5 {
			if mcl := reChanLabels.FindStringSubmatch(line); mcl != nil {
				addBracketItems(cur.chans, mcl[1])
			} else {
				addBracketItems(cur.chans, line)
			}
		}

		// Block 6：时长、标量采样率、通道括号名。
		if block == 6 {
			if md := reDuration.FindStringSubmatch(line); md != nil {
				if v, ok := parseFloat(md[1]); ok {
					cur.duration = &v
				}
			}
			if mf := reFS.FindStringSubmatch(line); mf != nil {
				if v, ok := parseFloat(mf[1]); ok {
					cur.fs = &v
				}
			}
			if mc := reChannelParen.FindStringSubmatch(line); mc != nil {
				cur.chans[strings.TrimSpace(mc[1])] = struct{}{}
			}
			// 部分行的括号内容本身就是电极名（EEG 前缀或 -REF 后缀）。
			for _, pm := range reParen.FindAllStringSubmatch(line, -1) {
				p := strings.TrimSpace(pm[1])
				if strings.HasPrefix(strings.ToUpper(p), "EEG") || strings.Contains(p, "-REF") {
					cur.chans[p] = struct{}{}
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return res, err
	}

	if err := flush(); err != nil {
		return res, err
	}
	return res, nil
}

func fillAgeGender(cur *record, line string) {
	if cur.age == "" {
		if a := parseLineForAge(line); a != "" {
			cur.age = a
		}
	}
	if cur.gender == "" {
		if g := parseLineForGender(line); g != "" {
			cur.gender = g
		}
	}
}

func containsAll(have map[string]struct{}, want []string) bool {
	for _, w := range want {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}

func addBracketItems(dst map[string]struct{}, s string) {
	for _, m := range reBracket.FindAllStringSubmatch(s, -1) {
		dst[strings.TrimSpace(m[1])] = struct{}{}
	}
}

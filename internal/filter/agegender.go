package filter

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reEDF = regexp.MustCompile(`(?i)([A-Za-z0-9_\- ./\\]+\.edf)`)

	reLptiAge    = regexp.MustCompile(`(?i)lpti[_\s-]*age\s*[:=]?\s*\[?\s*([^\]\r\n]+?)\s*\]?`)
	reLptiGender = regexp.MustCompile(`(?i)lpti[_\s-]*gender\s*[:=]?\s*\[?\s*([^\]\r\n]+?)\s*\]?`)

	reGenericAge = regexp.MustCompile(`(?i)Age[:=]?\s*([0-9]{1,3})`)
	reAgeAlt     = regexp.MustCompile(`(?i)([0-9]{1,3})\s*(?:y\b|yrs?\b|years?\b)`)
	reDigits     = regexp.MustCompile(`([0-9]{1,3})`)

	reGenderKeyword = regexp.MustCompile(`(?i)\b(?:gender|sex|lpti[_\s-]*gender|patient[_\s-]*sex)\b`)
	reSingleMF      = regexp.MustCompile(`(?i)\b([MF])\b`)

	reBlockHeader = regexp.MustCompile(`(?i)^\s*Block\s+(\d+)\s*:`)
	reDuration    = regexp.MustCompile(`(?i)duration of recording\s*\(secs\)\s*=\s*([0-9]+(?:\.[0-9]+)?)`)
	reFS          = regexp.MustCompile(`(?i)hdr_sample_frequency\s*=\s*([0-9]+(?:\.[0-9]+)?)`)
	reChanLabels  = regexp.MustCompile(`(?i)chan_labels\s*\(\s*\d+\s*\)\s*=\s*(.+)`)

	// reChannelParen 捕获 channel 行括号内的通道名（大小写敏感：小写 "channel" 形式不在此类报告段出现）。
	reChannelParen = regexp.MustCompile(`channel\[\s*\d+\s*\]:.*\(([^)]+)\)`)

	reBracket = regexp.MustCompile(`\[([^\]]+)\]`)
	reParen   = regexp.MustCompile(`\(([^)]+)\)`)
)

// parseLineForAge 按优先级尝试三种年龄写法：
// lpti_age 字段（值内再提取数字）、"Age: N"、"N yrs"。都不命中返回空串。
func parseLineForAge(line string) string {
	if m := reLptiAge.FindStringSubmatch(line); m != nil {
		if d := reDigits.FindStringSubmatch(m[1]); d != nil {
			return d[1]
		}
	}
	if m := reGenericAge.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := reAgeAlt.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

// parseLineForGender 优先读 lpti_gender 字段；否则只有在行内出现性别关键词时
// 才接受孤立的 M/F（避免把任意单字母误判成性别）。
func parseLineForGender(line string) string {
	if m := reLptiGender.FindStringSubmatch(line); m != nil {
		return normalizeGender(m[1])
	}
	if reGenderKeyword.MatchString(line) {
		if m := reSingleMF.FindStringSubmatch(line); m != nil {
			return normalizeGender(m[1])
		}
	}
	return ""
}

// normalizeGender 把各种写法归一为 "Male"/"Female"；无法判定返回空串。
func normalizeGender(raw string) string {
	v := strings.ToLower(strings.Trim(strings.TrimSpace(raw), `[](){}:;.,'"`))
	if v == "" {
		return ""
	}
	switch v {
	case "m", "male", "man", "boy":
		return "Male"
	case "f", "female", "woman", "girl":
		return "Female"
	}
	switch v[0] {
	case 'm':
		return "Male"
	case 'f':
		return "Female"
	}
	return ""
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

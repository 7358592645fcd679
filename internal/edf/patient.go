package edf

import (
	"strconv"
	"strings"
	"time"
)

// birthdateLayouts 覆盖语料中出现过的生日写法。time.Parse 对月份名大小写不敏感。
var birthdateLayouts = []string{
	"2-Jan-2006",
	"2-Jan-06",
	"02.01.2006",
	"02.01.06",
	"2006-01-02",
	"02/01/2006",
	"02/01/06",
}

// AgeGender 从头部的病人/记录标识字段提取年龄与性别。
//
// 顺序：病人字段优先，记录字段兜底；年龄仍缺失时尝试从任一字段找出生日期
// token 并按 ref 计算周岁。任何一项提取不到则返回空串。
func AgeGender(h Header, ref time.Time) (age, gender string) {
	age = ageFromText(h.Patient)
	gender = genderFromText(h.Patient)

	if age == "" {
		age = ageFromText(h.Recording)
	}
	if gender == "" {
		gender = genderFromText(h.Recording)
	}

	if age == "" {
		if bd, ok := findBirthdate(h.Patient); ok {
			age = strconv.Itoa(ageAt(bd, ref))
		} else if bd, ok := findBirthdate(h.Recording); ok {
			age = strconv.Itoa(ageAt(bd, ref))
		}
	}
	return age, gender
}

// ageFromText 找 "age:" 之后的首个数字串（跳过中间的非数字字符）。
func ageFromText(s string) string {
	low := strings.ToLower(s)
	idx := strings.Index(low, "age:")
	if idx < 0 {
		return ""
	}
	j := idx + len("age:")
	for j < len(s) && !isDigit(s[j]) {
		j++
	}
	start := j
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	if start == j {
		return ""
	}
	return s[start:j]
}

// genderFromText 先看第二个 token（EDF 病人字段的约定位置），再退化为
// 任意 M/F/male/female token。
func genderFromText(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) >= 2 {
		switch strings.ToUpper(tokens[1]) {
		case "M", "MALE":
			return "M"
		case "F", "FEMALE":
			return "F"
		}
	}
	for _, t := range tokens {
		switch strings.ToLower(t) {
		case "m", "male":
			return "M"
		case "f", "female":
			return "F"
		}
	}
	return ""
}

// parseBirthdateToken 逐个尝试已知布局。
func parseBirthdateToken(token string) (time.Time, bool) {
	for _, layout := range birthdateLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// findBirthdate 逐 token 尝试解析出生日期（token 两端的标点剥掉，内部的
// 日期分隔符保留）；全部失败时退化为“连续 4 位数字当作年份（1 月 1 日）”。
func findBirthdate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, t := range strings.Fields(s) {
		t = strings.Trim(t, `,;:'"()[]{}`)
		if bd, ok := parseBirthdateToken(t); ok {
			return bd, true
		}
	}

	for i := 0; i+4 <= len(s); i++ {
		part := s[i : i+4]
		if isDigit(part[0]) && isDigit(part[1]) && isDigit(part[2]) && isDigit(part[3]) {
			year, _ := strconv.Atoi(part)
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ageAt 计算 ref 时点的周岁（未过生日减一）。
func ageAt(birth, ref time.Time) int {
	age := ref.Year() - birth.Year()
	if ref.Month() < birth.Month() || (ref.Month() == birth.Month() && ref.Day() < birth.Day()) {
		age--
	}
	return age
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

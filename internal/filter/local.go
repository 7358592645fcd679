package filter

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/EDFKIT/internal/domain"
)

// LocalPath 把报告里的相对路径映射到本地 base 下：剥掉所有前导的 "./" 与 "../"
// 片段后拼接。报告生成机器的目录层级与本地镜像不一致，只有去掉这些前缀、
// 以 base 为根重建才能命中镜像树。
func LocalPath(base, fp string) string {
	s := strings.TrimSpace(fp)
	for {
		switch {
		case strings.HasPrefix(s, "../"):
			s = s[3:]
		case strings.HasPrefix(s, "./"):
			s = s[2:]
		default:
			return filepath.Join(base, filepath.FromSlash(s))
		}
	}
}

// KeepCurrent 保留指向本地实际存在文件的行，并把 Filepath 替换为本地绝对路径。
// minDuration > 0 时额外要求 duration 严格大于该值（duration 缺失的行被丢弃）。
func KeepCurrent(rows []domain.SelectRow, base string, minDuration float64) []domain.SelectRow {
	kept := make([]domain.SelectRow, 0, len(rows))
	for _, r := range rows {
		local := LocalPath(base, r.Filepath)
		fi, err := os.Stat(local)
		if err != nil || fi.IsDir() {
			continue
		}
		if minDuration > 0 && (r.Duration == nil || *r.Duration <= minDuration) {
			continue
		}
		r.Filepath = local
		kept = append(kept, r)
	}
	return kept
}

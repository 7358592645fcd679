package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/EDFKIT/internal/domain"
)

// ScanEDF 扫描 root 下符合 TUH 命名规范的 .edf 文件，并应用目录排除规则。
//
// 规则（硬约束）：
// - 永久排除：<root>/outputs/
// - excludeDirs：来自配置文件，均视为相对 root 的路径（若是绝对路径，则按绝对路径处理）
//
// 注意：扫描阶段只做 stat（DirEntry.Info），不读文件内容。
func ScanEDF(root string, excludeDirs []string) ([]domain.EDFFile, error) {
	root = filepath.Clean(root)
	excluded := buildExcluded(root, excludeDirs)

	files := make([]domain.EDFFile, 0, 128)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		// 统一的排除判断：目录用 SkipDir，文件则直接跳过。
		if isExcluded(path, excluded) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		name := d.Name()
		if !IsTUHName(name) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, domain.EDFFile{
			AbsPath: path,
			RelPath: rel,
			Base:    strings.TrimSuffix(name, filepath.Ext(name)),
			Size:    info.Size(),
			ModUnix: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// IsTUHName 判断文件名是否符合 TUH 语料的 EDF 命名：
// 下划线分段 >= 3 段，倒数第二段形如 sNN，最后一段形如 tNN（N 为数字）。
// 例如 aaaaaaaa_s001_t000.edf。
func IsTUHName(name string) bool {
	if !strings.HasSuffix(strings.ToLower(name), ".edf") {
		return false
	}
	base := name[:len(name)-len(".edf")]
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return false
	}
	s := strings.ToLower(parts[len(parts)-2])
	t := strings.ToLower(parts[len(parts)-1])
	if !strings.HasPrefix(s, "s") || !strings.HasPrefix(t, "t") {
		return false
	}
	return isDigits(s[1:]) && isDigits(t[1:])
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func buildExcluded(root string, excludeDirs []string) []string {
	outputsDir := filepath.Join(root, "outputs")

	excluded := make([]string, 0, 1+len(excludeDirs))
	excluded = append(excluded, filepath.Clean(outputsDir))

	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		// x 是相对路径：相对 root。
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}

	// 排除列表排序后，isExcluded 的行为更可预测（且便于测试）。
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, base+sep)
}

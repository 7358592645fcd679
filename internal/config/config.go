package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/John-Robertt/EDFKIT/internal/filter"
)

const (
	// ErrCodeNotFound 表示无参运行但 cwd 下没有 edfkit.json。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPath 表示无参运行但配置文件缺少 path 字段。
	ErrCodeMissingPath = "config_missing_path"
)

const (
	// DefaultHeadersName 是 headers 报告文件的默认文件名（相对 path）。
	DefaultHeadersName = "headers.txt"
	// DefaultMinDuration 是 select 命令按时长过滤的默认下限（秒）。
	DefaultMinDuration = 270
	// DefaultDelayMS 是 fetch 相邻请求之间的默认等待（毫秒）。
	DefaultDelayMS = 500
)

// 凭据与根 URL 约定从 .env / 环境变量读取（与既有数据集脚本的 .env 兼容，
// 变量名原样保留，包括拼写）。
const (
	envURL      = "URL"
	envUsername = "USRNAME"
	envPassword = "PSSWORD"
)

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --selective=false 必须能覆盖 config.selective=true。
type CLIArgs struct {
	Path string

	HeadersFile string

	Selective    bool
	SelectiveSet bool

	URL string
}

// FileConfig 对应 edfkit.json 的解析结构。
type FileConfig struct {
	Path             string   `json:"path"`
	HeadersFile      string   `json:"headers_file"`
	Selective        *bool    `json:"selective"`
	TargetElectrodes []string `json:"target_electrodes"`
	MinDuration      *float64 `json:"min_duration"`
	DelayMS          *int     `json:"delay_ms"`
	SkipExisting     *bool    `json:"skip_existing"`
	URL              string   `json:"url"`
	ExcludeDirs      []string `json:"exclude_dirs"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置
// （实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// Path 是数据集根目录（clean + absolute）。
	Path string
	// HeadersFile 是 headers 报告文件（clean + absolute）。
	HeadersFile string

	Selective        bool
	TargetElectrodes []string
	MinDuration      float64

	Delay        time.Duration
	SkipExisting bool
	URL          string
	Username     string
	Password     string

	ExcludeDirs []string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 path", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 按文档约定发现并读取配置文件，然后与 CLI 参数、环境变量合并。
//
// 发现规则（固定）：
// 1) CLI 提供 path：尝试读取 <path>/edfkit.json（可选）
// 2) CLI 未提供 path：必须读取 <cwd>/edfkit.json（必选），且其中必须包含 path
//
// 覆盖优先级（固定）：
// - path：CLI path > config path
// - headers 文件：CLI > config > <path>/headers.txt
// - selective：CLI --selective/--selective=false > config > 默认 false
// - url：CLI > config > 环境变量 URL
// - 凭据：仅来自 .env / 环境变量（USRNAME/PSSWORD），不进配置文件
// - 其他字段：仅由 config 控制（CLI 不暴露）
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	// .env 是可选的：先 cwd，再数据集根目录（后者不覆盖已设的进程环境）。
	_ = godotenv.Load(filepath.Join(cwdAbs, ".env"))

	if strings.TrimSpace(cli.Path) != "" {
		// CLI 给了 path：配置文件可选，位置固定在 <path>/edfkit.json。
		absPath := absCleanFrom(cwdAbs, cli.Path)
		cfgPath := filepath.Join(absPath, "edfkit.json")

		fc, _, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		return merge(absPath, cli, fc, cfgPath)
	}

	// CLI 没给 path：必须读取 <cwd>/edfkit.json，且其中必须包含 path。
	cfgPath := filepath.Join(cwdAbs, "edfkit.json")
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Path) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}

	absPath := absCleanFrom(cwdAbs, fc.Path)
	return merge(absPath, cli, fc, cfgPath)
}

func merge(absPath string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	_ = godotenv.Load(filepath.Join(absPath, ".env"))

	// headers 文件：CLI > config > <path>/headers.txt
	headers := DefaultHeadersName
	if strings.TrimSpace(cli.HeadersFile) != "" {
		headers = cli.HeadersFile
	} else if strings.TrimSpace(fc.HeadersFile) != "" {
		headers = fc.HeadersFile
	}
	headersAbs := absCleanFrom(absPath, headers)

	// selective：CLI > config > 默认 false
	selective := false
	if cli.SelectiveSet {
		selective = cli.Selective
	} else if fc.Selective != nil {
		selective = *fc.Selective
	}

	targets := append([]string(nil), fc.TargetElectrodes...)
	if len(targets) == 0 {
		targets = append([]string(nil), filter.DefaultTargetElectrodes...)
	}

	minDuration := float64(DefaultMinDuration)
	if fc.MinDuration != nil {
		minDuration = *fc.MinDuration
	}
	if minDuration < 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("min_duration 不能为负：%v", minDuration)}
	}

	delayMS := DefaultDelayMS
	if fc.DelayMS != nil {
		delayMS = *fc.DelayMS
	}
	if delayMS < 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("delay_ms 不能为负：%d", delayMS)}
	}

	// skip_existing：默认 true（续传是常态，整库重下是例外）。
	skipExisting := true
	if fc.SkipExisting != nil {
		skipExisting = *fc.SkipExisting
	}

	// url：CLI > config > 环境变量
	rootURL := strings.TrimSpace(cli.URL)
	if rootURL == "" {
		rootURL = strings.TrimSpace(fc.URL)
	}
	if rootURL == "" {
		rootURL = strings.TrimSpace(os.Getenv(envURL))
	}
	if rootURL != "" {
		u, err := url.Parse(rootURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("url 无效：%q", rootURL)}
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("url 必须是 http/https：%q", rootURL)}
		}
	}

	return EffectiveConfig{
		Path:             absPath,
		HeadersFile:      headersAbs,
		Selective:        selective,
		TargetElectrodes: targets,
		MinDuration:      minDuration,
		Delay:            time.Duration(delayMS) * time.Millisecond,
		SkipExisting:     skipExisting,
		URL:              rootURL,
		Username:         os.Getenv(envUsername),
		Password:         os.Getenv(envPassword),
		ExcludeDirs:      append([]string(nil), fc.ExcludeDirs...),
	}, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}

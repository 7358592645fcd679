package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/John-Robertt/EDFKIT/internal/app"
	"github.com/John-Robertt/EDFKIT/internal/config"
	"github.com/John-Robertt/EDFKIT/internal/crawl"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	var code int
	switch args[0] {
	case "summary":
		code = summaryCmd(args[1:])
	case "select":
		code = selectCmd(args[1:])
	case "labels":
		code = labelsCmd(args[1:])
	case "header":
		code = headerCmd(args[1:])
	case "fetch":
		code = fetchCmd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		code = 2
	}
	if code != 0 {
		os.Exit(code)
	}
}

// cliArgs 是各子命令共享的参数集合（header 除外，它只收一个文件路径）。
type cliArgs struct {
	config.CLIArgs

	Local bool
}

func parseArgs(args []string) (cliArgs, error) {
	ca := cliArgs{}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--headers":
			if i+1 >= len(args) {
				return cliArgs{}, fmt.Errorf("--headers 需要一个值")
			}
			i++
			ca.HeadersFile = args[i]
		case strings.HasPrefix(a, "--headers="):
			ca.HeadersFile = strings.TrimPrefix(a, "--headers=")
		case a == "--selective":
			ca.Selective = true
			ca.SelectiveSet = true
		case strings.HasPrefix(a, "--selective="):
			v := strings.TrimPrefix(a, "--selective=")
			switch v {
			case "true":
				ca.Selective = true
			case "false":
				ca.Selective = false
			default:
				return cliArgs{}, fmt.Errorf("--selective 只能是 true 或 false，实际是 %q", v)
			}
			ca.SelectiveSet = true
		case a == "--local":
			ca.Local = true
		case a == "--url":
			if i+1 >= len(args) {
				return cliArgs{}, fmt.Errorf("--url 需要一个值")
			}
			i++
			ca.URL = args[i]
		case strings.HasPrefix(a, "--url="):
			ca.URL = strings.TrimPrefix(a, "--url=")
		case strings.HasPrefix(a, "-"):
			return cliArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if ca.Path != "" {
				return cliArgs{}, fmt.Errorf("重复的 path：%q 与 %q", ca.Path, a)
			}
			ca.Path = a
		}
	}
	return ca, nil
}

// loadEff 统一做参数解析 + 配置合并；usage 打印与错误输出就地处理。
func loadEff(args []string, usage func()) (config.EffectiveConfig, cliArgs, int) {
	for _, a := range args {
		if isHelp(a) {
			usage()
			return config.EffectiveConfig{}, cliArgs{}, -1
		}
	}

	ca, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		usage()
		return config.EffectiveConfig{}, cliArgs{}, 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return config.EffectiveConfig{}, cliArgs{}, 1
	}

	eff, err := config.LoadEffective(cwd, ca.CLIArgs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return config.EffectiveConfig{}, cliArgs{}, 1
	}
	return eff, ca, 0
}

func summaryCmd(args []string) int {
	eff, _, code := loadEff(args, printSummaryUsage)
	if code != 0 {
		return max0(code)
	}

	sum, out, err := app.RunSummary(eff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "summary 失败：%v\n", err)
		return 1
	}

	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：records=%d fs_not_same=%d electrodes_not_unique=%d\n",
			len(sum.FrequencyByRecord), sum.InconsistentCount, sum.DuplicateCount)
		fmt.Fprintf(os.Stderr, "out: %s\n", out)
		return 0
	}
	// stdout 非 TTY：stdout 必须且仅输出汇总 JSON（与 data_summary.json 同构）。
	emitJSON(sum)
	fmt.Fprintf(os.Stderr, "out: %s\n", out)
	return 0
}

func selectCmd(args []string) int {
	eff, ca, code := loadEff(args, printSelectUsage)
	if code != 0 {
		return max0(code)
	}

	rep, err := app.RunSelect(eff, app.SelectOptions{KeepLocal: ca.Local})
	if err != nil {
		fmt.Fprintf(os.Stderr, "select 失败：%v\n", err)
		return 1
	}

	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：scanned=%d matched=%d written=%d\n", rep.Scanned, rep.Matched, rep.Written)
		fmt.Fprintf(os.Stderr, "out: %s\n", rep.OutFile)
		return 0
	}
	emitJSON(rep)
	return 0
}

func labelsCmd(args []string) int {
	eff, _, code := loadEff(args, printLabelsUsage)
	if code != 0 {
		return max0(code)
	}

	rep, err := app.RunLabels(eff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "labels 失败：%v\n", err)
		return 1
	}

	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：scanned=%d written=%d failed=%d\n", rep.Scanned, rep.Written, rep.Failed)
		for _, f := range rep.Failures {
			fmt.Fprintf(os.Stderr, "%s: %s\n", f.File, f.Err)
		}
		fmt.Fprintf(os.Stderr, "out: %s\n", rep.OutFile)
	} else {
		emitJSON(rep)
	}
	if rep.Failed > 0 {
		return 1
	}
	return 0
}

func headerCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printHeaderUsage()
			return 0
		}
	}
	if len(args) != 1 || strings.HasPrefix(args[0], "-") {
		fmt.Fprint(os.Stderr, "参数错误：header 需要且只需要一个 EDF 文件路径\n\n")
		printHeaderUsage()
		return 2
	}

	info, err := app.RunHeader(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "header 失败：%v\n", err)
		return 1
	}

	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "patient:   %q\n", info.Patient)
		fmt.Fprintf(os.Stdout, "recording: %q\n", info.Recording)
		fmt.Fprintf(os.Stdout, "start:     %s %s\n", info.StartDate, info.StartTime)
		fmt.Fprintf(os.Stdout, "records:   %d x %gs, signals=%d\n", info.DataRecords, info.RecordDuration, info.SignalCount)
		fmt.Fprintf(os.Stdout, "age=%s gender=%s\n", emptyDash(info.Age), emptyDash(info.Gender))
		return 0
	}
	emitJSON(info)
	return 0
}

func fetchCmd(args []string) int {
	eff, _, code := loadEff(args, printFetchUsage)
	if code != 0 {
		return max0(code)
	}

	// Ctrl-C：取消 ctx，让在途下载收尾（.part 不会被 rename）。
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progressW, interactive := pickProgressWriter()
	var obs crawl.Observer
	if interactive {
		obs = newProgressPrinter(progressW)
	}

	rep, err := app.RunFetch(ctx, eff, obs)
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "fetch 失败：%v\n", err)
		return 1
	}
	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "已中断")
	}

	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：pages=%d downloaded=%d skipped=%d failed=%d\n",
			rep.Pages, rep.Downloaded, rep.Skipped, rep.Failed)
		for _, f := range rep.Failures {
			fmt.Fprintf(os.Stderr, "%s: %s\n", f.URL, f.Err)
		}
	} else {
		emitJSON(rep)
	}
	if ctx.Err() != nil || rep.Failed > 0 {
		return 1
	}
	return 0
}

func emitJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(v)
}

func emptyDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func max0(code int) int {
	if code < 0 {
		return 0
	}
	return code
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  edfkit <命令> [path] [参数]

命令：
  summary  解析 headers 报告，产出 outputs/data_summary.json
  select   按电极/时长筛选 headers 报告，产出 outputs/selected.csv
  labels   扫描本地 EDF，从头部提取 age/gender，产出 outputs/labels.csv
  header   解码单个 EDF 文件的 256 字节头部
  fetch    从目录索引站递归镜像数据集（支持断点续传）

使用 "edfkit <命令> --help" 查看详细说明。
`)
}

func printSummaryUsage() {
	fmt.Fprint(os.Stdout, `用法：
  edfkit summary [path] [--headers FILE]

参数：
  --headers   headers 报告文件（默认 <path>/headers.txt）
  -h, --help  显示帮助
`)
}

func printSelectUsage() {
	fmt.Fprint(os.Stdout, `用法：
  edfkit select [path] [--headers FILE] [--selective[=true|false]] [--local]

参数：
  --headers    headers 报告文件（默认 <path>/headers.txt）
  --selective  只保留包含全部目标电极的 record；支持 --selective=false 覆盖配置
  --local      只保留本地实际存在、且时长超过 min_duration 的行
  -h, --help   显示帮助
`)
}

func printLabelsUsage() {
	fmt.Fprint(os.Stdout, `用法：
  edfkit labels [path]

从 <path> 下所有符合 TUH 命名的 .edf 文件头部提取 age/gender。
`)
}

func printHeaderUsage() {
	fmt.Fprint(os.Stdout, `用法：
  edfkit header <file.edf>

解码单个 EDF 文件的 256 字节固定头部并打印各字段。
`)
}

func printFetchUsage() {
	fmt.Fprint(os.Stdout, `用法：
  edfkit fetch [path] [--url URL]

参数：
  --url       目录索引站根 URL（也可配置在 edfkit.json 或环境变量 URL）
  -h, --help  显示帮助

凭据从 .env / 环境变量 USRNAME、PSSWORD 读取。
`)
}

package domain

import "strconv"

// SelectRow 是 select 命令输出 CSV 的一行（filepath, age, gender, duration, fs）。
// Age/Gender 为启发式提取结果，缺失为空串；Duration/FS 缺失为 nil。
type SelectRow struct {
	Filepath string
	Age      string
	Gender   string
	Duration *float64
	FS       *float64
}

// CSV 返回与表头 [filepath age gender duration fs] 对齐的一行。
func (r SelectRow) CSV() []string {
	return []string{r.Filepath, r.Age, r.Gender, formatFloat(r.Duration), formatFloat(r.FS)}
}

// SelectHeader 是 select 命令 CSV 的表头。
var SelectHeader = []string{"filepath", "age", "gender", "duration", "fs"}

// LabelRow 是 labels 命令输出 CSV 的一行（filename, age, gender）。
type LabelRow struct {
	Filename string
	Age      string
	Gender   string
}

func (r LabelRow) CSV() []string {
	return []string{r.Filename, r.Age, r.Gender}
}

// LabelHeader 是 labels 命令 CSV 的表头。
var LabelHeader = []string{"filename", "age", "gender"}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

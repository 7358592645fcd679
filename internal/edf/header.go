// Package edf 解码 EDF 文件的 256 字节固定布局头部，并从病人/记录标识字段的
// 自由文本里启发式提取年龄与性别。
package edf

import (
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
)

// HeaderSize 是 EDF 固定头部的字节数。各字段为定宽 ASCII，右侧空格填充。
const HeaderSize = 256

// ErrShortHeader 表示文件不足 256 字节，不可能是合法 EDF。
var ErrShortHeader = errors.New("edf: 文件不足 256 字节，不是合法的 EDF 头部")

// Header 是固定布局头部的解码结果。
// 数值字段解析失败时保留零值（头部普遍存在手填噪音，解码必须宽松）。
type Header struct {
	Version   string // [0:8)
	Patient   string // [8:88)   病人标识（80 字节自由文本）
	Recording string // [88:168) 记录标识（80 字节自由文本）
	StartDate string // [168:176) dd.mm.yy
	StartTime string // [176:184) hh.mm.ss

	HeaderBytes    int     // [184:192)
	DataRecords    int     // [236:244)
	RecordDuration float64 // [244:252) 秒
	SignalCount    int     // [252:256)
}

// Decode 解码一段原始头部字节。长度不足返回 ErrShortHeader。
func Decode(raw []byte) (Header, error) {
	if len(raw) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	h := Header{
		Version:   decodeField(raw[0:8]),
		Patient:   decodeField(raw[8:88]),
		Recording: decodeField(raw[88:168]),
		StartDate: decodeField(raw[168:176]),
		StartTime: decodeField(raw[176:184]),
	}
	h.HeaderBytes, _ = strconv.Atoi(decodeField(raw[184:192]))
	h.DataRecords, _ = strconv.Atoi(decodeField(raw[236:244]))
	h.RecordDuration, _ = strconv.ParseFloat(decodeField(raw[244:252]), 64)
	h.SignalCount, _ = strconv.Atoi(decodeField(raw[252:256]))
	return h, nil
}

// ReadHeader 从 r 读取并解码头部。
func ReadHeader(r io.Reader) (Header, error) {
	raw := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, raw)
	if err != nil {
		if n < HeaderSize && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
			return Header{}, ErrShortHeader
		}
		return Header{}, err
	}
	return Decode(raw)
}

// ReadHeaderFile 读取 path 的头部。
func ReadHeaderFile(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	return ReadHeader(f)
}

// decodeField 宽松解码一个定宽 ASCII 字段：非 ASCII 字节替换为 U+FFFD，
// 去掉两端填充空白。
func decodeField(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c < 0x80 {
			sb.WriteByte(c)
		} else {
			sb.WriteRune('�')
		}
	}
	return strings.TrimSpace(sb.String())
}

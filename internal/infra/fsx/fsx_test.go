package fsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomicReplace_SuccessAndNoTempLeft(t *testing.T) {
	dir := t.TempDir()

	if err := WriteFileAtomicReplace(dir, "a.csv", []byte("hello")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "a.csv"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "hello" {
		t.Fatalf("内容不一致：%q", string(b))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".a.csv.tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}

func TestWriteFileAtomicReplace_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "out.json"), []byte("old"), 0o644); err != nil {
		t.Fatalf("预置文件失败：%v", err)
	}
	if err := WriteFileAtomicReplace(dir, "out.json", []byte("new")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "out.json"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "new" {
		t.Fatalf("期望覆盖为 new，实际 %q", string(b))
	}
}

func TestWriteFileAtomicReplace_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")

	if err := WriteFileAtomicReplace(dir, "a.json", []byte("{}")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.json")); err != nil {
		t.Fatalf("输出目录未创建或文件缺失：%v", err)
	}
}

func TestRename_SameDir(t *testing.T) {
	dir := t.TempDir()
	part := filepath.Join(dir, "x.edf.part")
	final := filepath.Join(dir, "x.edf")

	if err := os.WriteFile(part, []byte("data"), 0o644); err != nil {
		t.Fatalf("预置 .part 失败：%v", err)
	}
	if err := Rename(part, final); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(part); !os.IsNotExist(err) {
		t.Fatalf(".part 文件应被移走：%v", err)
	}
	b, err := os.ReadFile(final)
	if err != nil || string(b) != "data" {
		t.Fatalf("最终文件内容不对：%q, %v", string(b), err)
	}
}

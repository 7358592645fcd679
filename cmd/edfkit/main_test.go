package main

import (
	"testing"
	"time"
)

func TestParseArgs(t *testing.T) {
	ca, err := parseArgs([]string{"/data", "--headers", "rep.txt", "--selective", "--local", "--url=https://example.org/files/"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if ca.Path != "/data" {
		t.Fatalf("path 不对：%q", ca.Path)
	}
	if ca.HeadersFile != "rep.txt" {
		t.Fatalf("headers 不对：%q", ca.HeadersFile)
	}
	if !ca.Selective || !ca.SelectiveSet {
		t.Fatalf("--selective 未生效：%+v", ca)
	}
	if !ca.Local {
		t.Fatalf("--local 未生效")
	}
	if ca.URL != "https://example.org/files/" {
		t.Fatalf("url 不对：%q", ca.URL)
	}
}

func TestParseArgs_SelectiveFalse(t *testing.T) {
	ca, err := parseArgs([]string{"--selective=false"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if ca.Selective || !ca.SelectiveSet {
		t.Fatalf("--selective=false 应显式记录：%+v", ca)
	}
}

func TestParseArgs_Errors(t *testing.T) {
	for _, args := range [][]string{
		{"--headers"},
		{"--url"},
		{"--selective=maybe"},
		{"--unknown"},
		{"a", "b"},
	} {
		if _, err := parseArgs(args); err == nil {
			t.Fatalf("%v 应报参数错误", args)
		}
	}
}

func TestFormatShortDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30s"},
	}
	for _, tt := range tests {
		if got := formatShortDuration(tt.d); got != tt.want {
			t.Fatalf("%v：期望 %q，实际 %q", tt.d, tt.want, got)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512B"},
		{2048, "2.0KiB"},
		{3 << 20, "3.0MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Fatalf("%d：期望 %q，实际 %q", tt.n, tt.want, got)
		}
	}
}

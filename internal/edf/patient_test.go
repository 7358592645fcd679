package edf

import (
	"testing"
	"time"
)

var ref = time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)

func TestAgeGender_FromPatientField(t *testing.T) {
	h := Header{Patient: "X F X Age:61"}
	age, gender := AgeGender(h, ref)
	if age != "61" || gender != "F" {
		t.Fatalf("期望 61/F，实际 %q/%q", age, gender)
	}
}

func TestAgeGender_RecordingFallback(t *testing.T) {
	h := Header{Patient: "anonymous", Recording: "Startdate age: 30 M"}
	age, gender := AgeGender(h, ref)
	if age != "30" {
		t.Fatalf("期望从 recording 字段兜底提取年龄，实际 %q", age)
	}
	if gender != "M" {
		t.Fatalf("期望 M，实际 %q", gender)
	}
}

func TestAgeGender_ComputedFromBirthdate(t *testing.T) {
	tests := []struct {
		name    string
		patient string
		want    string
	}{
		{name: "生日已过", patient: "X unknown 01-JAN-1970", want: "55"},
		{name: "生日未过", patient: "X unknown 01-DEC-1970", want: "54"},
		{name: "点分格式", patient: "X unknown 01.12.1970", want: "54"},
		{name: "ISO 格式", patient: "X unknown 1970-12-01", want: "54"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			age, _ := AgeGender(Header{Patient: tt.patient}, ref)
			if age != tt.want {
				t.Fatalf("期望 %q，实际 %q", tt.want, age)
			}
		})
	}
}

func TestAgeGender_YearOnlyFallback(t *testing.T) {
	age, _ := AgeGender(Header{Patient: "X unknown born1980 sometime"}, ref)
	if age != "45" {
		t.Fatalf("期望按年份 1980 计算为 45，实际 %q", age)
	}
}

func TestAgeGender_Missing(t *testing.T) {
	age, gender := AgeGender(Header{Patient: "anonymous record"}, ref)
	if age != "" || gender != "" {
		t.Fatalf("无线索时应返回空串，实际 %q/%q", age, gender)
	}
}

func TestGenderFromText_SecondTokenConvention(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"X M 01-JAN-1970", "M"},
		{"X FEMALE 01-JAN-1970", "F"},
		{"id unknown male", "M"},
		{"id unknown", ""},
	}
	for _, tt := range tests {
		if got := genderFromText(tt.text); got != tt.want {
			t.Fatalf("%q：期望 %q，实际 %q", tt.text, tt.want, got)
		}
	}
}

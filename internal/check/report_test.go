package check

import (
	"errors"
	"testing"
)

func TestNewReport(t *testing.T) {
	report := NewReport()
	if report == nil {
		t.Fatal("NewReport() returned nil")
	}
	if report.FileResults == nil {
		t.Error("NewReport() FileResults should be initialized")
	}
	if report.ValidationResults == nil {
		t.Error("NewReport() ValidationResults should be initialized")
	}
}

func TestReportSummary(t *testing.T) {
	tests := []struct {
		name        string
		files       []FileCheckResult
		validations []ValidationResult
		want        ReportSummary
	}{
		{
			name: "all good",
			files: []FileCheckResult{
				{Path: "config.yaml", Exists: true},
			},
			validations: []ValidationResult{{Name: "config", Valid: true}},
			want:        ReportSummary{TotalFiles: 1, FilesExist: 1, TotalValidations: 1, ValidationsValid: 1},
		},
		{
			name: "created and missing",
			files: []FileCheckResult{
				{Path: "config.yaml", Exists: true, Created: true},
				{Path: "card.md"},
			},
			want: ReportSummary{TotalFiles: 2, FilesExist: 1, FilesCreated: 1, FilesMissing: 1},
		},
		{
			name: "non critical failure is a warning",
			validations: []ValidationResult{
				{Name: "codex", Error: errors.New("missing")},
			},
			want: ReportSummary{TotalValidations: 1, ValidationErrors: 1, HasWarnings: true},
		},
		{
			name: "critical failure is an error",
			validations: []ValidationResult{
				{Name: "config", Critical: true, Error: errors.New("bad")},
				{Name: "prompt card", Valid: true, Warnings: []string{"built-in"}},
			},
			want: ReportSummary{TotalValidations: 2, ValidationsValid: 1, ValidationErrors: 1, HasErrors: true, HasWarnings: true},
		},
		{
			name:  "file error",
			files: []FileCheckResult{{Path: "x", Error: errors.New("denied")}},
			want:  ReportSummary{TotalFiles: 1, FilesMissing: 1, HasErrors: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := NewReport()
			for _, f := range tt.files {
				report.AddFileResult(f)
			}
			for _, v := range tt.validations {
				report.AddValidationResult(v)
			}

			if got := report.Summary(); got != tt.want {
				t.Errorf("Summary() = %+v, want %+v", got, tt.want)
			}
			report.Print()
		})
	}
}

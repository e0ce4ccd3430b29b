package validator

import (
	"errors"
	"testing"

	"github.com/agentshield/api/pkg/domain/recommendation"
)

func TestNew(t *testing.T) {
	v := New()
	if v == nil {
		t.Fatal("expected validator to be created")
	}
	if v.validate == nil {
		t.Fatal("expected internal validator to be initialized")
	}
}

func TestValidateSeverity(t *testing.T) {
	v := New()

	type TestStruct struct {
		Severity string `validate:"required,severity"`
	}

	tests := []struct {
		name    string
		input   TestStruct
		wantErr bool
	}{
		{name: "valid - critical", input: TestStruct{Severity: "critical"}, wantErr: false},
		{name: "valid - high", input: TestStruct{Severity: "high"}, wantErr: false},
		{name: "valid - medium", input: TestStruct{Severity: "medium"}, wantErr: false},
		{name: "valid - low", input: TestStruct{Severity: "low"}, wantErr: false},
		{name: "valid - mixed case", input: TestStruct{Severity: "Critical"}, wantErr: false},
		{name: "invalid - unknown", input: TestStruct{Severity: "urgent"}, wantErr: true},
		{name: "invalid - empty", input: TestStruct{Severity: ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSourceType(t *testing.T) {
	v := New()

	type TestStruct struct {
		Source string `validate:"required,source_type"`
	}

	tests := []struct {
		name    string
		input   TestStruct
		wantErr bool
	}{
		{name: "valid - static", input: TestStruct{Source: "static"}, wantErr: false},
		{name: "valid - dynamic", input: TestStruct{Source: "dynamic"}, wantErr: false},
		{name: "invalid - unknown", input: TestStruct{Source: "runtime"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDismissType(t *testing.T) {
	v := New()

	type TestStruct struct {
		DismissType string `validate:"required,dismiss_type"`
	}

	tests := []struct {
		name    string
		input   TestStruct
		wantErr bool
	}{
		{name: "valid - dismissed", input: TestStruct{DismissType: "dismissed"}, wantErr: false},
		{name: "valid - ignored", input: TestStruct{DismissType: "ignored"}, wantErr: false},
		{name: "invalid - deleted", input: TestStruct{DismissType: "deleted"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNonBlank(t *testing.T) {
	v := New()

	type TestStruct struct {
		Reason string `validate:"required,nonblank"`
	}

	tests := []struct {
		name    string
		input   TestStruct
		wantErr bool
	}{
		{name: "valid - text", input: TestStruct{Reason: "accepted risk"}, wantErr: false},
		{name: "invalid - empty", input: TestStruct{Reason: ""}, wantErr: true},
		{name: "invalid - whitespace only", input: TestStruct{Reason: "   "}, wantErr: true},
		{name: "invalid - tabs and newlines", input: TestStruct{Reason: "\t\n"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCategory(t *testing.T) {
	type TestStruct struct {
		Category string `validate:"required,category"`
	}

	t.Run("default catalog", func(t *testing.T) {
		v := New()

		if err := v.Validate(TestStruct{Category: "prompt_injection"}); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
		if err := v.Validate(TestStruct{Category: "PROMPT_INJECTION"}); err != nil {
			t.Errorf("Validate() should accept category regardless of case, got %v", err)
		}
		if err := v.Validate(TestStruct{Category: "sql_injection"}); err == nil {
			t.Error("Validate() should reject category outside the catalog")
		}
	})

	t.Run("custom catalog", func(t *testing.T) {
		catalog := &recommendation.Catalog{
			Categories: []recommendation.Category{{Name: "custom_check"}},
		}
		v := NewWithCatalog(catalog)

		if err := v.Validate(TestStruct{Category: "custom_check"}); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
		if err := v.Validate(TestStruct{Category: "prompt_injection"}); err == nil {
			t.Error("Validate() should only accept the custom catalog's categories")
		}
	})
}

func TestValidate_ErrorMessages(t *testing.T) {
	v := New()

	type TestStruct struct {
		Reason   string `validate:"required,nonblank"`
		Severity string `validate:"required,severity"`
	}

	err := v.Validate(TestStruct{Reason: "  ", Severity: "urgent"})
	if err == nil {
		t.Fatal("Validate() should fail")
	}

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	if len(verrs) != 2 {
		t.Fatalf("got %d errors, want 2", len(verrs))
	}
	if verrs[0].Field != "reason" || verrs[0].Message != "must not be blank" {
		t.Errorf("first error = %+v", verrs[0])
	}
	if verrs[1].Field != "severity" {
		t.Errorf("second error = %+v", verrs[1])
	}
}

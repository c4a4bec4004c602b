package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "config error",
			code:    "E101",
			wantMsg: "Config file could not be parsed",
			wantCat: CategoryConfig,
		},
		{
			name:    "store error",
			code:    "E301",
			wantMsg: "Preference write failed",
			wantCat: CategoryStore,
		},
		{
			name:    "protocol error",
			code:    "E400",
			wantMsg: "Malformed client message",
			wantCat: CategoryProtocol,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryRuntime, "file %q not found", "index.html")
	if err.Message != `file "index.html" not found` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Error() != err.Message {
		t.Errorf("Error() = %q, want bare message without code", err.Error())
	}
}

func TestError_Error(t *testing.T) {
	err := New("E300")
	if got := err.Error(); got != "E300: Preference read failed" {
		t.Errorf("Error() = %q", got)
	}

	err.Wrap(fmt.Errorf("timeout"))
	if got := err.Error(); got != "E300: Preference read failed: timeout" {
		t.Errorf("Error() with cause = %q", got)
	}
}

func TestError_WithLocation(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "projet.json")
	content := "{\n  \"server\": {\n    \"port\": -1\n  }\n}\n"
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("E102").WithLocation(tmpFile, 3, 5)
	if err.Location.Line != 3 || err.Location.Column != 5 {
		t.Errorf("Location = %+v", err.Location)
	}
	if len(err.Context) == 0 || !strings.Contains(strings.Join(err.Context, "\n"), `"port": -1`) {
		t.Errorf("Context = %v", err.Context)
	}
}

func TestError_WithOffset(t *testing.T) {
	data := []byte("{\n  \"a\": 1,\n}")
	err := New("E101").WithOffset("projet.json", data, 12)
	if err.Location == nil || err.Location.Line != 3 || err.Location.Column != 1 {
		t.Errorf("Location = %+v", err.Location)
	}

	err = New("E101").WithOffset("projet.json", data, 500)
	if err.Location != nil {
		t.Error("out of range offset should not set a location")
	}
}

func TestError_Builders(t *testing.T) {
	err := New("E302").
		WithSuggestion("use s3").
		WithExample(`"store": "s3"`).
		WithDetail("custom detail").
		WithContext([]string{"line"})

	if err.Suggestion != "use s3" || err.Example != `"store": "s3"` || err.Detail != "custom detail" || len(err.Context) != 1 {
		t.Errorf("builders not applied: %+v", err)
	}
}

func TestError_Wrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := New("E301").Wrap(cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E300") != nil {
		t.Error("FromError(nil) should be nil")
	}

	plain := stderrors.New("boom")
	err := FromError(plain, "E300")
	if err.Code != "E300" || err.Wrapped != plain {
		t.Errorf("FromError = %+v", err)
	}

	coded := New("E400")
	wrapped := fmt.Errorf("decode: %w", coded)
	if FromError(wrapped, "E300") != coded {
		t.Error("FromError should keep an existing coded error")
	}
}

func TestHasCode(t *testing.T) {
	inner := New("E301").Wrap(stderrors.New("denied"))
	outer := New("E104").Wrap(fmt.Errorf("save: %w", inner))

	if !HasCode(outer, "E104") || !HasCode(outer, "E301") {
		t.Error("HasCode should see both codes in the chain")
	}
	if HasCode(outer, "E400") {
		t.Error("HasCode found a code that is not there")
	}
	if HasCode(stderrors.New("plain"), "E301") || HasCode(nil, "E301") {
		t.Error("HasCode on uncoded errors should be false")
	}
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		loc  *Location
		want string
	}{
		{nil, ""},
		{&Location{File: "projet.json", Line: 10}, "projet.json:10"},
		{&Location{File: "projet.json", Line: 10, Column: 5}, "projet.json:10:5"},
	}
	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "projet.yaml")
	content := "server:\n  port: 8080\ntoast:\n  error: -5s\n"
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("E102").
		WithLocation(tmpFile, 4, 10).
		WithSuggestion("Durations must not be negative").
		WithExample("toast:\n  error: 7s").
		Wrap(stderrors.New("toast.error: negative duration"))
	err.DocURL = "https://example.com/errors/E102"

	formatted := err.Format()

	for _, want := range []string{
		"E102",
		"Invalid config value",
		tmpFile,
		"error: -5s",
		"Cause: toast.error: negative duration",
		"Hint: Durations must not be negative",
		"Example:",
		"Learn more:",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() missing %q:\n%s", want, formatted)
		}
	}
}

func TestGetTemplate(t *testing.T) {
	tmpl, ok := GetTemplate("E403")
	if !ok || tmpl.Category != CategoryProtocol {
		t.Errorf("GetTemplate(E403) = %+v, %v", tmpl, ok)
	}
	if _, ok := GetTemplate("E999"); ok {
		t.Error("GetTemplate(E999) should not exist")
	}
}

func TestFormat_WithoutCode(t *testing.T) {
	formatted := (&Error{Message: "disk full", Detail: strings.Repeat("word ", 30)}).Format()
	if !strings.Contains(formatted, "ERROR:") || !strings.Contains(formatted, "disk full") {
		t.Errorf("Format() = %q", formatted)
	}
	for _, line := range strings.Split(formatted, "\n") {
		if len(line) > detailWidth+2 {
			t.Errorf("detail line not wrapped: %q", line)
		}
	}
}

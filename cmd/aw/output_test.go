package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout runs fn with os.Stdout redirected to a buffer.
func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	if err := fn(); err != nil {
		t.Fatalf("emit: %v", err)
	}
	_ = w.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("read: %v", err)
	}
	return buf.String()
}

type sample struct {
	Name  string  `json:"name" yaml:"name"`
	Score float64 `json:"score" yaml:"score"`
}

func TestEmitJSON(t *testing.T) {
	output = "json"
	defer func() { output = "table" }()

	out := captureStdout(t, func() error {
		return emit(sample{Name: "loopy-0", Score: 0.72}, func() {})
	})
	if !strings.Contains(out, `"name": "loopy-0"`) {
		t.Errorf("json output missing field:\n%s", out)
	}
}

func TestEmitYAML(t *testing.T) {
	output = "yaml"
	defer func() { output = "table" }()

	out := captureStdout(t, func() error {
		return emit(sample{Name: "loopy-0", Score: 0.72}, func() {})
	})
	if !strings.Contains(out, "name: loopy-0") {
		t.Errorf("yaml output missing field:\n%s", out)
	}
}

func TestEmitTable(t *testing.T) {
	output = "table"
	called := false
	_ = captureStdout(t, func() error {
		return emit(sample{}, func() { called = true })
	})
	if !called {
		t.Errorf("table renderer should be invoked for table output")
	}
}

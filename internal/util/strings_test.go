package util

import (
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{
			name:   "short string unchanged",
			input:  "hello",
			maxLen: 10,
			want:   "hello",
		},
		{
			name:   "exact length unchanged",
			input:  "hello",
			maxLen: 5,
			want:   "hello",
		},
		{
			name:   "long string truncated",
			input:  "hello world",
			maxLen: 8,
			want:   "hello...",
		},
		{
			name:   "tiny maxLen returns ellipsis",
			input:  "hello",
			maxLen: 3,
			want:   "...",
		},
		{
			name:   "zero maxLen returns ellipsis",
			input:  "hello",
			maxLen: 0,
			want:   "...",
		},
		{
			name:   "empty string unchanged",
			input:  "",
			maxLen: 10,
			want:   "",
		},
		{
			name:   "unicode counted by runes",
			input:  "日本語テスト",
			maxLen: 5,
			want:   "日本...",
		},
		{
			name:   "mixed ascii and unicode",
			input:  "hello日本語world",
			maxLen: 10,
			want:   "hello日本...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateString(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateANSI(t *testing.T) {
	redStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{
			name:     "short plain string unchanged",
			input:    "hello",
			maxWidth: 10,
			want:     "hello",
		},
		{
			name:     "plain string truncated",
			input:    "hello world",
			maxWidth: 8,
			want:     "hello...",
		},
		{
			name:     "tiny maxWidth returns ellipsis",
			input:    "hello",
			maxWidth: 3,
			want:     "...",
		},
		{
			name:     "styled string preserved when it fits",
			input:    redStyle.Render("hi"),
			maxWidth: 10,
			want:     redStyle.Render("hi"),
		},
		{
			name:     "empty string unchanged",
			input:    "",
			maxWidth: 10,
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateANSI(tt.input, tt.maxWidth)
			if got != tt.want {
				t.Errorf("TruncateANSI(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.want)
			}
		})
	}

	// Width is respected even when styles make byte length misleading.
	styled := redStyle.Render("hello world, this is styled")
	if width := lipgloss.Width(TruncateANSI(styled, 12)); width > 12 {
		t.Errorf("TruncateANSI width = %d, want <= 12", width)
	}
	wide := "日本語テスト"
	if width := lipgloss.Width(TruncateANSI(wide, 8)); width > 8 {
		t.Errorf("TruncateANSI width = %d, want <= 8", width)
	}
}

func TestFormatTimeAgo(t *testing.T) {
	if got := FormatTimeAgo(time.Time{}); got != "" {
		t.Errorf("FormatTimeAgo(zero) = %q, want empty", got)
	}

	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"seconds", now.Add(-45 * time.Second), "45s ago"},
		{"minutes", now.Add(-10 * time.Minute), "10m ago"},
		{"hours", now.Add(-3 * time.Hour), "3h ago"},
		{"days", now.Add(-5 * 24 * time.Hour), "5d ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTimeAgo(tt.t); got != tt.want {
				t.Errorf("FormatTimeAgo() = %q, want %q", got, tt.want)
			}
		})
	}
}

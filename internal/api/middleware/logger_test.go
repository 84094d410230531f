package middleware

import (
	"strings"
	"testing"
)

func TestRedactQueryString(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"empty", "", ""},
		{"no sensitive params", "page=2&limit=10", "limit=10&page=2"},
		{"password redacted", "password=hunter2", "password=%5BREDACTED%5D"},
		{"mixed case param", "Token=abc123", "Token=%5BREDACTED%5D"},
		{"oidc callback", "code=authcode&state=xyz", "code=%5BREDACTED%5D&state=%5BREDACTED%5D"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactQueryString(tt.query)
			if got != tt.want {
				t.Errorf("redactQueryString(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestRedactQueryStringKeepsValues(t *testing.T) {
	got := redactQueryString("sortBy=name&password=secret")
	if strings.Contains(got, "secret") {
		t.Errorf("redacted query still contains secret: %q", got)
	}
	if !strings.Contains(got, "sortBy=name") {
		t.Errorf("non-sensitive param lost: %q", got)
	}
}

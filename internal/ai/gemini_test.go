package ai

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		role string
		want genai.Role
	}{
		{name: "assistant maps to model", role: "assistant", want: genai.RoleModel},
		{name: "user maps to user", role: "user", want: genai.RoleUser},
		{name: "unknown defaults to user", role: "system", want: genai.RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := geminiRole(tt.role); got != tt.want {
				t.Errorf("geminiRole(%q) = %q, want %q", tt.role, got, tt.want)
			}
		})
	}
}

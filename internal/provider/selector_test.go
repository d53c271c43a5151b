package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatforge/gateway/internal/tenant"
)

func TestSelect(t *testing.T) {
	mock := &Mock{}
	external := &External{}

	tests := []struct {
		name      string
		preferred tenant.ProviderKind
		forceMock bool
		hasCreds  bool
		want      Provider
	}{
		{"force mock wins over everything", tenant.ProviderExternal, true, true, mock},
		{"no credentials falls back to mock", tenant.ProviderExternal, false, false, mock},
		{"external when requested and possible", tenant.ProviderExternal, false, true, external},
		{"mock preference honored", tenant.ProviderMock, false, true, mock},
		{"mock preference without credentials", tenant.ProviderMock, false, false, mock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.preferred, tt.forceMock, tt.hasCreds, mock, external)
			assert.Same(t, tt.want, got)
		})
	}
}

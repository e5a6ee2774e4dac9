package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvironment(t *testing.T) {
	assert.Equal(t, Production, ParseEnvironment("production"))
	assert.Equal(t, Production, ParseEnvironment(" PRODUCTION "))
	assert.Equal(t, Staging, ParseEnvironment("staging"))
	assert.Equal(t, Testing, ParseEnvironment("testing"))
	assert.Equal(t, Development, ParseEnvironment("whatever"))
	assert.Equal(t, Development, ParseEnvironment(""))
}

func TestEnvironmentLogging(t *testing.T) {
	tests := []struct {
		env   Environment
		json  bool
		level string
	}{
		{Production, true, "info"},
		{Staging, true, "info"},
		{Testing, false, "debug"},
		{Development, false, "warn"},
	}
	for _, tt := range tests {
		t.Run(tt.env.String(), func(t *testing.T) {
			assert.Equal(t, tt.json, tt.env.JSONLogs())
			assert.Equal(t, tt.level, tt.env.DefaultLogLevel())
		})
	}
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindUserConfig(t *testing.T) {
	t.Setenv("USBTOPO_CONFIG", "")
	tests := []struct {
		name string
		args []string
		env  string
		want string
	}{
		{name: "equals form", args: []string{"check", "--config=/etc/usbtopo.toml", "a.yaml"}, want: "/etc/usbtopo.toml"},
		{name: "separate value", args: []string{"--config", "cfg.yaml", "serve", "a.yaml"}, want: "cfg.yaml"},
		{name: "dangling flag", args: []string{"--config"}, want: ""},
		{name: "environment", args: []string{"list"}, env: "env.json", want: "env.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("USBTOPO_CONFIG", tt.env)
			assert.Equal(t, tt.want, findUserConfig(tt.args))
		})
	}
}

func TestDescription(t *testing.T) {
	assert.Contains(t, Description(), "Version: "+Version)
	assert.NotEmpty(t, Commit)
}

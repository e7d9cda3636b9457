package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddr(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "", want: "127.0.0.1:80"},
		{raw: "0.0.0.0:80", want: "127.0.0.1:80"},
		{raw: ":8080", want: "127.0.0.1:8080"},
		{raw: "[::]:8080", want: "127.0.0.1:8080"},
		{raw: "192.168.4.1:80", want: "192.168.4.1:80"},
		{raw: "not-an-addr", want: "127.0.0.1:80"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeAddr(tt.raw))
		})
	}
}

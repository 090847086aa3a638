package strutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrListContains(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	assert.True(StrListContains([]string{"https", "http"}, "http"))
	assert.False(StrListContains([]string{"https", "http"}, "ftp"))
	assert.False(StrListContains(nil, "http"))
}

func TestRemoveDuplicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "empty", in: nil, want: []string{}},
		{name: "no-dupes", in: []string{"b", "a"}, want: []string{"b", "a"}},
		{name: "first-seen-order", in: []string{"b", "a", "b", "a"}, want: []string{"b", "a"}},
		{name: "case-sensitive", in: []string{"OpenID", "openid"}, want: []string{"OpenID", "openid"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, RemoveDuplicates(tt.in))
		})
	}
}

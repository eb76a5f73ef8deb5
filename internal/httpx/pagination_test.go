package httpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	cases := []struct {
		page, limit string
		want        Page
	}{
		{"", "", Page{1, 20}},
		{"3", "10", Page{3, 10}},
		{"0", "0", Page{1, 1}},
		{"-4", "-1", Page{1, 1}},
		{"2", "500", Page{2, 100}},
		{"abc", "xyz", Page{1, 20}},
		{"9223372036854775807", "100", Page{MaxPage, 100}},
		{"99999999999999999999", "", Page{1, 20}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Clamp(tc.page, tc.limit), "page=%q limit=%q", tc.page, tc.limit)
	}
	assert.Equal(t, 20, Page{Page: 3, Limit: 10}.Offset())
	assert.Equal(t, (MaxPage-1)*MaxLimit, Clamp("9223372036854775807", "100").Offset())
}

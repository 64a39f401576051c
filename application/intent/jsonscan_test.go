package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"action":"play"}`,
			want: `{"action":"play"}`,
		},
		{
			name: "leading prose",
			in:   `Sure! Here's the result: {"action":"play"} hope that helps`,
			want: `{"action":"play"}`,
		},
		{
			name: "nested objects",
			in:   `{"action":"play","entities":{"target":"So What"}}`,
			want: `{"action":"play","entities":{"target":"So What"}}`,
		},
		{
			name: "brace inside string value",
			in:   `{"action":"play","entities":{"target":"K}pop {hits"}}`,
			want: `{"action":"play","entities":{"target":"K}pop {hits"}}`,
		},
		{
			name: "escaped quote inside string",
			in:   `{"action":"play","entities":{"target":"say \"}\" loud"}}`,
			want: `{"action":"play","entities":{"target":"say \"}\" loud"}}`,
		},
		{
			name: "only first top-level object",
			in:   `{"a":1} {"b":2}`,
			want: `{"a":1}`,
		},
		{
			name: "no object",
			in:   "no json here",
			want: "",
		},
		{
			name: "unbalanced",
			in:   `{"action":"play"`,
			want: "",
		},
		{
			name: "stray closing brace before object",
			in:   `} oops {"action":"skip"}`,
			want: `{"action":"skip"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstJSONObject(tt.in))
		})
	}
}

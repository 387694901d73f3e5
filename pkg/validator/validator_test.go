package validator

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMessage(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "trims surrounding whitespace", in: "  hi  ", want: "hi"},
		{name: "empty", in: "", wantErr: true},
		{name: "whitespace only", in: " \t\n ", want: "", wantErr: true},
		{name: "exactly max length", in: strings.Repeat("a", 1000), want: strings.Repeat("a", 1000)},
		{name: "over max length", in: strings.Repeat("a", 1001), want: strings.Repeat("a", 1001), wantErr: true},
		{name: "max length counts characters not bytes", in: strings.Repeat("é", 1000), want: strings.Repeat("é", 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, errs := NormalizeMessage(tt.in)
			req.Equal(tt.want, got)
			req.Equal(tt.wantErr, errs.HasErrors())
			if tt.wantErr {
				req.Contains(errs, "content")
			}
		})
	}
}

func TestValidateStartConversation(t *testing.T) {
	require.True(t, ValidateStartConversation(uuid.Nil).HasErrors())
	require.Equal(t, "user_id is required", ValidateStartConversation(uuid.Nil)["user_id"])
	require.False(t, ValidateStartConversation(uuid.New()).HasErrors())
}

package imaging

import (
	"context"
	"testing"

	"github.com/Conceptual-Machines/giftbox-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		want       *Verdict
		wantErr    bool
		wantReason string
	}{
		{
			name:       "plain json",
			raw:        `{"acceptable": true, "missing": [], "explanation": "all good"}`,
			want:       &Verdict{Acceptable: true, Missing: []string{}, Explanation: "all good"},
			wantReason: "all good",
		},
		{
			name:       "fenced json",
			raw:        "```json\n{\"acceptable\": false, \"missing\": [\"mug\"], \"explanation\": \"no mug\"}\n```",
			want:       &Verdict{Acceptable: false, Missing: []string{"mug"}, Explanation: "no mug"},
			wantReason: "missing: mug",
		},
		{
			name:    "empty",
			raw:     "  ",
			wantErr: true,
		},
		{
			name:    "not json",
			raw:     "looks great!",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVerdict(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantReason, got.Reason())
		})
	}
}

func TestOpenAIVerifier_RequiresImage(t *testing.T) {
	verifier := NewOpenAIVerifier("sk-test", "")
	_, err := verifier.Check(context.Background(), &models.ContentRef{}, "notes")
	require.ErrorIs(t, err, ErrNoImage)
}

package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/juridai/lexrag/model"
)

func TestSplit_CountMatchesWindowFormula(t *testing.T) {
	// passage count must be ceil((L-o)/(c-o)) for L > o, else 1.
	tests := []struct {
		name    string
		length  int
		size    int
		overlap int
		want    int
	}{
		{"single exact window", 1000, 1000, 200, 1},
		{"just over one window", 1001, 1000, 200, 2},
		{"two full windows", 1800, 1000, 200, 2},
		{"shorter than overlap", 100, 1000, 200, 1},
		{"equal to overlap", 200, 1000, 200, 1},
		{"no overlap", 25, 10, 0, 3},
		{"small windows", 17, 5, 2, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.Repeat("a", tt.length)
			passages, err := Split(text, nil, func(o *Options) {
				o.ChunkSize = tt.size
				o.Overlap = tt.overlap
			})
			require.NoError(t, err)
			require.Len(t, passages, tt.want)

			if tt.length > tt.overlap {
				c, o, l := tt.size, tt.overlap, tt.length
				expect := (l - o + (c - o) - 1) / (c - o)
				require.Equal(t, expect, len(passages))
			}
		})
	}
}

func TestSplit_ReconstructsOriginalText(t *testing.T) {
	text := strings.Repeat("the moroccan labour code article ", 80)
	const size, overlap = 100, 30

	passages, err := Split(text, nil, func(o *Options) {
		o.ChunkSize = size
		o.Overlap = overlap
	})
	require.NoError(t, err)
	require.NotEmpty(t, passages)

	// Concatenating passages minus their overlaps reproduces the input.
	var b strings.Builder
	b.WriteString(passages[0].Text)
	for _, p := range passages[1:] {
		runes := []rune(p.Text)
		b.WriteString(string(runes[overlap:]))
	}
	require.Equal(t, text, b.String())
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("article 34 of the family code ", 50)

	first, err := Split(text, nil)
	require.NoError(t, err)
	second, err := Split(text, nil)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSplit_EmptyAndWhitespaceOnly(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t\r\n  "} {
		passages, err := Split(text, nil)
		require.NoError(t, err)
		require.Empty(t, passages)
	}
}

func TestSplit_InvalidOptions(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
		{"negative overlap", 100, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split("some text", nil, func(o *Options) {
				o.ChunkSize = tt.size
				o.Overlap = tt.overlap
			})
			var optErr *ErrInvalidOptions
			require.ErrorAs(t, err, &optErr)
			require.Equal(t, tt.size, optErr.ChunkSize)
			require.Equal(t, tt.overlap, optErr.Overlap)
		})
	}
}

func TestSplit_PreservesMetadataPerPassage(t *testing.T) {
	meta := map[string]any{model.MetaSource: "code-penal.pdf", model.MetaPage: 12}

	passages, err := Split(strings.Repeat("x", 2500), meta)
	require.NoError(t, err)
	require.Len(t, passages, 3)

	for _, p := range passages {
		require.Equal(t, "code-penal.pdf", p.Source())
		require.Equal(t, 12, p.Metadata[model.MetaPage])
	}

	// Each passage owns an independent metadata copy.
	passages[0].Metadata[model.MetaPage] = 99
	require.Equal(t, 12, passages[1].Metadata[model.MetaPage])
}

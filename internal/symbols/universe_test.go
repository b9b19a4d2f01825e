package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		universe Universe
		explicit []string
		want     []string
		wantErr  string
	}{
		{"explicit wins", SP500, []string{"aapl", " msft "}, []string{"AAPL", "MSFT"}, ""},
		{"comma separated", Test, []string{"AAPL,TSLA", "aapl"}, []string{"AAPL", "TSLA"}, ""},
		{"class shares", Test, []string{"brk.b"}, []string{"BRK-B"}, ""},
		{"invalid ticker", Test, []string{"AAPL", "TOOLONG"}, nil, "invalid symbol"},
		{"digits rejected", Test, []string{"A1"}, nil, "invalid symbol"},
		{"blank only", Test, []string{" , "}, nil, "no symbols"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.universe, tt.explicit)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUniverses(t *testing.T) {
	for _, u := range Universes {
		t.Run(u.String(), func(t *testing.T) {
			got, err := Resolve(u, nil)
			require.NoError(t, err, "every listed ticker is valid")
			assert.NotEmpty(t, got)
			assert.LessOrEqual(t, len(got), len(u.Symbols()))
		})
	}

	got, err := Resolve(Test, nil)
	require.NoError(t, err)
	assert.Equal(t, TestSymbols, got)
}

func TestUniverseText(t *testing.T) {
	for _, u := range Universes {
		b, err := u.MarshalText()
		require.NoError(t, err)
		var back Universe
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, u, back)
	}

	var u Universe
	require.NoError(t, u.UnmarshalText([]byte("NASDAQ100")))
	assert.Equal(t, Nasdaq100, u)
	assert.Error(t, u.UnmarshalText([]byte("russell")))
}

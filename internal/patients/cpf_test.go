package patients

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCPF(t *testing.T) {
	assert.Equal(t, "52998224725", NormalizeCPF("529.982.247-25"))
	assert.Equal(t, "52998224725", NormalizeCPF("52998224725"))
	assert.Equal(t, "123", NormalizeCPF(" 1a2b3c "))
	assert.Equal(t, "", NormalizeCPF("abc"))
}

func TestValidCPF(t *testing.T) {
	cases := []struct {
		cpf   string
		valid bool
	}{
		{"52998224725", true},
		{"11144477735", true},
		{"52998224724", false},
		{"52998224715", false},
		{"00000000000", false},
		{"11111111111", false},
		{"5299822472", false},
		{"529982247250", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.valid, ValidCPF(tc.cpf), "cpf %q", tc.cpf)
	}
}

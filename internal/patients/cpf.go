package patients

import "strings"

// NormalizeCPF strips punctuation from a CPF, keeping digits only.
func NormalizeCPF(raw string) string {
	var sb strings.Builder
	sb.Grow(11)
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// ValidCPF checks the two mod-11 verification digits of a normalized CPF.
// Repdigit sequences like 00000000000 pass the checksum but are invalid.
func ValidCPF(cpf string) bool {
	if len(cpf) != 11 {
		return false
	}
	allSame := true
	for i := 1; i < 11; i++ {
		if cpf[i] != cpf[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	digit := func(upTo int) byte {
		sum := 0
		for i := 0; i < upTo; i++ {
			sum += int(cpf[i]-'0') * (upTo + 1 - i)
		}
		rem := (sum * 10) % 11
		if rem == 10 {
			rem = 0
		}
		return byte('0' + rem)
	}

	return cpf[9] == digit(9) && cpf[10] == digit(10)
}

package twofa

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// BackupCodeCount is the number of recovery codes issued per setup.
	BackupCodeCount = 10

	// BackupCodeLength is the length of each recovery code.
	BackupCodeLength = 8

	// backupCodeAlphabet is uppercase alphanumeric; codes are case-normalized
	// to uppercase before lookup.
	backupCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateBackupCodes produces count single-use recovery codes from
// crypto/rand. Recovery codes are bearer credentials, so a general-purpose
// PRNG is not acceptable here.
func GenerateBackupCodes(count int) ([]string, error) {
	codes := make([]string, 0, count)
	alphabetSize := big.NewInt(int64(len(backupCodeAlphabet)))

	for i := 0; i < count; i++ {
		code := make([]byte, BackupCodeLength)
		for j := range code {
			n, err := rand.Int(rand.Reader, alphabetSize)
			if err != nil {
				return nil, fmt.Errorf("failed to generate backup code: %w", err)
			}
			code[j] = backupCodeAlphabet[n.Int64()]
		}
		codes = append(codes, string(code))
	}

	return codes, nil
}

// isBackupCodeShaped reports whether the input matches the recovery-code
// shape after case normalization. Used to fast-fail malformed input before
// touching stored state.
func isBackupCodeShaped(code string) bool {
	if len(code) != BackupCodeLength {
		return false
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

package twofa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBackupCodes(t *testing.T) {
	codes, err := GenerateBackupCodes(BackupCodeCount)
	require.NoError(t, err)
	require.Len(t, codes, BackupCodeCount)

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.Len(t, code, BackupCodeLength)
		assert.True(t, isBackupCodeShaped(code), "code %q should match the backup-code shape", code)
		assert.False(t, seen[code], "codes should not repeat within a batch")
		seen[code] = true
	}
}

func TestIsBackupCodeShaped(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{"valid uppercase", "A1B2C3D4", true},
		{"valid digits only", "12345678", true},
		{"valid letters only", "ABCDEFGH", true},
		{"too short", "A1B2C3D", false},
		{"too long", "A1B2C3D4E", false},
		{"lowercase", "a1b2c3d4", false},
		{"punctuation", "A1B2-3D4", false},
		{"empty", "", false},
		{"six digit passcode", "123456", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isBackupCodeShaped(tt.code))
		})
	}
}

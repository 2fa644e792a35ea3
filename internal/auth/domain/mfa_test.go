package domain_test

import (
	"testing"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestParseMFAChallenge(t *testing.T) {
	tests := []struct {
		method  string
		code    string
		want    domain.MFAChallenge
		wantErr bool
	}{
		{method: "totp", code: "123456", want: domain.TOTPChallenge{Value: "123456"}},
		{method: "email", code: " 654321\n", want: domain.EmailChallenge{Value: "654321"}},
		{method: "totp", code: "\t123456 ", want: domain.TOTPChallenge{Value: "123456"}},
		{method: "sms", code: "123456", wantErr: true},
		{method: "TOTP", code: "123456", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.method+"/"+tt.code, func(t *testing.T) {
			got, err := domain.ParseMFAChallenge(tt.method, tt.code)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.method, got.Method())
		})
	}
}

package certificate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQRCodeURL(t *testing.T) {
	tests := []struct {
		name, number, hash, base, want string
	}{
		{
			name:   "plain values",
			number: "CERT-1-AAAA", hash: "abc123", base: "https://x.test",
			want: "https://x.test/validate-certificate?number=CERT-1-AAAA&hash=abc123",
		},
		{
			name:   "trailing slash",
			number: "CERT-1-AAAA", hash: "abc123", base: "https://x.test/",
			want: "https://x.test/validate-certificate?number=CERT-1-AAAA&hash=abc123",
		},
		{
			name:   "reserved characters",
			number: "CERT 1&2", hash: "a=b", base: "https://x.test",
			want: "https://x.test/validate-certificate?number=CERT+1%262&hash=a%3Db",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QRCodeURL(tt.number, tt.hash, tt.base))
		})
	}
}

package certificate

import (
	"net/url"
	"strings"
)

// ValidatePath is the verification page printed into every QR code. Changing
// it or the parameter names breaks certificates already in circulation.
const ValidatePath = "/validate-certificate"

// QRCodeURL builds the public verification URL for a certificate. A trailing
// slash on baseURL is dropped.
func QRCodeURL(number, hash, baseURL string) string {
	return strings.TrimRight(baseURL, "/") + ValidatePath +
		"?number=" + url.QueryEscape(number) +
		"&hash=" + url.QueryEscape(hash)
}

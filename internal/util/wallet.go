package util

import (
	"strings"
	"unicode"
)

// MaxWalletLength bounds wallet identifiers accepted by the API
const MaxWalletLength = 128

// NormalizeWallet trims surrounding whitespace from a wallet identifier
func NormalizeWallet(wallet string) string {
	return strings.TrimSpace(wallet)
}

// ValidateWallet reports whether a normalized wallet identifier is usable.
// Wallets are opaque strings: only emptiness, length and control characters are checked.
func ValidateWallet(wallet string) bool {
	if wallet == "" || len(wallet) > MaxWalletLength {
		return false
	}
	for _, r := range wallet {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// TruncateWallet returns a shortened wallet for display
func TruncateWallet(wallet string) string {
	if len(wallet) <= 16 {
		return wallet
	}
	return wallet[:8] + "..." + wallet[len(wallet)-6:]
}

package usecase

import (
	"crypto/rand"
	"errors"
	"io"
)

// voucherAlphabet is uppercase alphanumerics without look-alikes (O/0, I/1).
// Its length divides 256, so byte-modulo sampling stays uniform.
const voucherAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const defaultVoucherCodeLength = 8

// generateVoucherCode returns a random code used as both voucher username and password.
func generateVoucherCode(length int) (string, error) {
	if length <= 0 {
		length = defaultVoucherCodeLength
	}
	if length > 64 {
		return "", errors.New("voucher code too long")
	}

	buffer := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := range buffer {
		buffer[i] = voucherAlphabet[int(buffer[i])%len(voucherAlphabet)]
	}
	return string(buffer), nil
}

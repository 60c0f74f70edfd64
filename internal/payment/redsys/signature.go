package redsys

import (
	"bytes"
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"motorhome-booking-backend/internal/domain"
)

const SignatureVersion = "HMAC_SHA256_V1"

// deriveKey encrypts the order number with the merchant key using 3DES-CBC,
// a zero IV and zero padding.
func deriveKey(secretKey, order string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(secretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode merchant key: %w", err)
	}
	if len(key) != 24 {
		return nil, fmt.Errorf("merchant key must be 24 bytes, got %d", len(key))
	}
	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create 3DES cipher: %w", err)
	}
	data := []byte(order)
	if rem := len(data) % des.BlockSize; rem != 0 {
		data = append(data, bytes.Repeat([]byte{0}, des.BlockSize-rem)...)
	}
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, make([]byte, des.BlockSize)).CryptBlocks(out, data)
	return out, nil
}

// Sign returns the base64 HMAC-SHA256 of the encoded merchant parameters.
func Sign(secretKey, order, encodedParams string) (string, error) {
	key, err := deriveKey(secretKey, order)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(encodedParams))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func normalizeSignature(s string) string {
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	return strings.TrimRight(s, "=")
}

// Verify checks a notification signature. Redsys may send it URL-safe
// encoded with or without padding.
func Verify(secretKey, encodedParams, signature string) (*Notification, error) {
	n, err := DecodeNotification(encodedParams)
	if err != nil {
		return nil, err
	}
	expected, err := Sign(secretKey, n.Order, encodedParams)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal([]byte(normalizeSignature(expected)), []byte(normalizeSignature(signature))) {
		return nil, fmt.Errorf("%w: redsys order %s", domain.ErrInvalidSignature, n.Order)
	}
	return n, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("merchant parameters are not base64")
}

// DecodeNotification parses Ds_MerchantParameters without checking the signature.
func DecodeNotification(encodedParams string) (*Notification, error) {
	raw, err := decodeBase64(encodedParams)
	if err != nil {
		return nil, err
	}
	var n Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("failed to parse merchant parameters: %w", err)
	}
	if n.Order == "" {
		return nil, domain.MissingField("Ds_Order")
	}
	return &n, nil
}

// EncodeParameters serialises merchant parameters for the payment form.
func EncodeParameters(p MerchantParameters) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode merchant parameters: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

package order

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Sign returns the lowercase hex HMAC-SHA256 of message under secret.
func Sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentMessage is the string the provider signs for a client-side confirmation.
func PaymentMessage(orderRef, paymentRef string) string {
	return orderRef + "|" + paymentRef
}

// SignPayment signs an (order, payment) pair the way the provider does.
func SignPayment(secret, orderRef, paymentRef string) string {
	return Sign(secret, []byte(PaymentMessage(orderRef, paymentRef)))
}

// VerifySignature checks claimed against HMAC-SHA256(secret, orderRef|paymentRef).
func VerifySignature(orderRef, paymentRef, claimed, secret string) bool {
	return VerifyPayload([]byte(PaymentMessage(orderRef, paymentRef)), claimed, secret)
}

// VerifyPayload checks claimed against the HMAC of the raw body.
func VerifyPayload(body []byte, claimed, secret string) bool {
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(claimed))
}

// CheckPaymentSignature is VerifySignature with typed failures.
func CheckPaymentSignature(orderRef, paymentRef, claimed, secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: payment verification unavailable", ErrConfigurationMissing)
	}
	if !VerifySignature(orderRef, paymentRef, claimed, secret) {
		return ErrSignatureMismatch
	}
	return nil
}

// CheckWebhookSignature is VerifyPayload with typed failures.
func CheckWebhookSignature(body []byte, claimed, secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: webhook verification unavailable", ErrConfigurationMissing)
	}
	if claimed == "" {
		return fmt.Errorf("%w: missing signature", ErrSignatureMismatch)
	}
	if !VerifyPayload(body, claimed, secret) {
		return ErrSignatureMismatch
	}
	return nil
}

package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/sahilchouksey/byteboost-api/utils/apperr"
)

// SignatureHeader carries the webhook body signature
const SignatureHeader = "X-Razorpay-Signature"

// Sign returns the lowercase hex HMAC-SHA256 of message under secret
func Sign(secret, message []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// equalHex compares the provided signature byte for byte with the lowercase hex digest
func equalHex(expected, provided string) bool {
	return hmac.Equal([]byte(expected), []byte(provided))
}

// VerifyWebhookSignature checks signature against the HMAC-SHA256 of the exact raw body.
// It returns apperr.ErrInvalidSignature on mismatch and a ConfigurationError when secret is empty.
func VerifyWebhookSignature(rawBody []byte, signature string, secret []byte) error {
	if len(secret) == 0 {
		return apperr.MissingConfig("RAZORPAY_WEBHOOK_SECRET")
	}
	if !equalHex(Sign(secret, rawBody), signature) {
		return apperr.ErrInvalidSignature
	}
	return nil
}

// PaymentMessage is the canonical "order_id|payment_id" string signed by checkout
func PaymentMessage(orderID, paymentID string) string {
	return orderID + "|" + paymentID
}

// VerifyPaymentSignature checks the checkout handler signature for an order/payment pair
func VerifyPaymentSignature(orderID, paymentID, signature string, secret []byte) error {
	if len(secret) == 0 {
		return apperr.MissingConfig("RAZORPAY_KEY_SECRET")
	}
	if !equalHex(Sign(secret, []byte(PaymentMessage(orderID, paymentID))), signature) {
		return apperr.ErrInvalidSignature
	}
	return nil
}

// WebhookVerifier applies the missing-header policy on top of VerifyWebhookSignature
type WebhookVerifier struct {
	secret      []byte
	requireSign bool
}

// NewWebhookVerifier creates a verifier. With requireSignature false a request
// without a signature header is accepted but reported as unverified.
func NewWebhookVerifier(secret string, requireSignature bool) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret), requireSign: requireSignature}
}

// Verify reports whether the body was verified. An absent header (nil) is
// rejected unless the verifier was built with requireSignature false.
func (v *WebhookVerifier) Verify(rawBody []byte, signature *string) (bool, error) {
	if signature == nil {
		if v.requireSign {
			return false, apperr.ErrInvalidSignature
		}
		return false, nil
	}
	if err := VerifyWebhookSignature(rawBody, *signature, v.secret); err != nil {
		return false, err
	}
	return true, nil
}

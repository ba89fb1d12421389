package phonepe

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sahilchouksey/byteboost-api/utils/apperr"
)

// VerifyHeader carries the callback checksum
const VerifyHeader = "X-VERIFY"

// Callback status codes sent by PhonePe
const (
	CodePaymentSuccess = "PAYMENT_SUCCESS"
	CodePaymentError   = "PAYMENT_ERROR"
	CodePaymentPending = "PAYMENT_PENDING"
)

// Verifier checks X-VERIFY checksums with a merchant salt
type Verifier struct {
	merchantID string
	saltKey    string
	saltIndex  string
}

// NewVerifier creates a checksum verifier
func NewVerifier(merchantID, saltKey, saltIndex string) *Verifier {
	return &Verifier{merchantID: merchantID, saltKey: saltKey, saltIndex: saltIndex}
}

// Checksum returns hex(sha256(base64Response + saltKey)) + "###" + saltIndex
func Checksum(base64Response, saltKey, saltIndex string) string {
	sum := sha256.Sum256([]byte(base64Response + saltKey))
	return hex.EncodeToString(sum[:]) + "###" + saltIndex
}

// Verify checks header against the checksum of base64Response
func (v *Verifier) Verify(base64Response, header string) error {
	if v.saltKey == "" {
		return apperr.MissingConfig("PHONEPE_SALT_KEY")
	}
	expected := Checksum(base64Response, v.saltKey, v.saltIndex)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(header))) != 1 {
		return apperr.ErrInvalidSignature
	}
	return nil
}

// CallbackBody is the envelope posted to the callback URL
type CallbackBody struct {
	Response string `json:"response"` // base64 encoded CallbackResponse
}

// CallbackResponse is the decoded callback payload
type CallbackResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantID            string `json:"merchantId"`
		MerchantTransactionID string `json:"merchantTransactionId"`
		TransactionID         string `json:"transactionId"`
		Amount                int    `json:"amount"` // paise
		State                 string `json:"state"`
		ResponseCode          string `json:"responseCode"`
		PaymentInstrument     struct {
			Type string `json:"type"`
		} `json:"paymentInstrument"`
	} `json:"data"`
}

// DecodeCallback verifies header and decodes the base64 response
func (v *Verifier) DecodeCallback(body CallbackBody, header string) (*CallbackResponse, error) {
	if err := v.Verify(body.Response, header); err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(body.Response)
	if err != nil {
		return nil, apperr.Validation("phonepe_callback", "response", "base64", "response is not valid base64")
	}

	var resp CallbackResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode callback response: %w", err)
	}
	if v.merchantID != "" && resp.Data.MerchantID != "" && resp.Data.MerchantID != v.merchantID {
		return nil, apperr.Validation("phonepe_callback", "merchantId", "match", "callback is for another merchant")
	}
	return &resp, nil
}

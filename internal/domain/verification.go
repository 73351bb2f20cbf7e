package domain

import "time"

// VerificationCodeTTL bounds how long a short verification code can be redeemed.
const VerificationCodeTTL = 15 * time.Minute

// VerificationCode maps a short human-relayable code to the identity provider's long oobCode.
// PK: code. GSI email-index on email.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type VerificationCode struct {
	Code      string    `json:"code" dynamodbav:"code"`
	Email     string    `json:"email" dynamodbav:"email"`
	OOBCode   string    `json:"oob_code" dynamodbav:"oob_code"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// Expired reports whether the code's expiry lies in the past.
func (v *VerificationCode) Expired(now time.Time) bool {
	return v.ExpiresAt < now.Unix()
}

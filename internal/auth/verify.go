// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// EmailVerificationTTL is how long a verification link stays valid.
const EmailVerificationTTL = 60 * time.Minute

const verifyAudience = "email-verify"

// ErrInvalidVerification is returned for expired, tampered or foreign tokens.
var ErrInvalidVerification = errors.New("invalid or expired verification link")

type verifyClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// EmailVerifier signs and checks email verification tokens.
type EmailVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewEmailVerifier returns a verifier using an HMAC secret.
func NewEmailVerifier(secret string) *EmailVerifier {
	return &EmailVerifier{secret: []byte(secret), now: time.Now}
}

// Sign returns a token binding userID to email for EmailVerificationTTL.
func (v *EmailVerifier) Sign(userID int64, email string) (string, error) {
	now := v.now()
	claims := verifyClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Audience:  jwt.ClaimStrings{verifyAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(EmailVerificationTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("signing verification token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns the user id and email it carries.
func (v *EmailVerifier) Parse(token string) (int64, string, error) {
	var claims verifyClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(verifyAudience),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return 0, "", ErrInvalidVerification
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || claims.Email == "" {
		return 0, "", ErrInvalidVerification
	}
	return id, claims.Email, nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/httpx"
	"github.com/aleutian-tutor/lessonforge/pkg/jwtauth"
)

// Service implements every Auth operation of the component design.
type Service struct {
	store              *docstore.Store
	issuer             *jwtauth.Issuer
	mailer             Mailer
	federatedVerifiers map[string]FederatedVerifier
}

// New builds a Service backed by store and issuer, sending recovery
// codes through mailer (use NopMailer{} where no transport is wired).
func New(store *docstore.Store, issuer *jwtauth.Issuer, mailer Mailer) *Service {
	return &Service{store: store, issuer: issuer, mailer: mailer}
}

// SweepExpiredRefreshTokens deletes every refresh token past its
// expiry. Intended to run on a recurring cron schedule from cmd/auth.
func (s *Service) SweepExpiredRefreshTokens(c context.Context) (int, error) {
	return s.store.SweepExpiredRefreshTokens(c, time.Now().UTC())
}

// Routes registers the Auth HTTP surface on r. verify-token is the one
// route gated by AuthMiddleware, since it exists specifically to
// validate a bearer token for other services.
func (s *Service) Routes(r gin.IRouter) {
	r.POST("/api/auth/signup", s.signup)
	r.POST("/api/auth/login", s.login)
	r.POST("/api/auth/refresh", s.refresh)
	r.POST("/api/auth/logout", s.logout)
	r.GET("/api/auth/verify-token", httpx.AuthMiddleware(jwtauth.NewVerifier(s.issuer.Keyring())), s.verifyToken)
	r.POST("/api/auth/forgot-password", s.forgotPassword)
	r.POST("/api/auth/verify-otp", s.verifyOTP)
	r.POST("/api/auth/password-reset-confirm", s.resetPassword)
	r.POST("/api/auth/federated_login", s.federatedLogin)
}

func tokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type tokenPair struct {
	AccessToken  string    `json:"access_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
}

func (s *Service) issueTokenPair(c *gin.Context, u docstore.User) (tokenPair, error) {
	sessionID := uuid.New().String()

	access, expiresAt, err := s.issuer.IssueAccess(jwtauth.Principal{
		UserID: u.UserID, Email: u.Email, Name: u.DisplayName, Role: u.Role,
	})
	if err != nil {
		return tokenPair{}, err
	}

	refresh, err := jwtauth.NewRefreshToken()
	if err != nil {
		return tokenPair{}, err
	}

	now := time.Now().UTC()
	rt := docstore.RefreshToken{
		TokenHash: tokenHash(refresh),
		UserID:    u.UserID,
		SessionID: sessionID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.issuer.RefreshTTL()),
	}
	if err := s.store.PutRefreshToken(c.Request.Context(), rt); err != nil {
		return tokenPair{}, err
	}

	return tokenPair{AccessToken: access, ExpiresAt: expiresAt, RefreshToken: refresh}, nil
}

type signupRequest struct {
	FullName        string `json:"full_name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
}

func (s *Service) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.AbortWithError(c, httpx.Validation(err.Error()))
		return
	}
	if req.Password != req.PasswordConfirm {
		httpx.AbortWithError(c, httpx.Validation("password_mismatch"))
		return
	}
	if err := validatePassword(req.Password, req.FullName, req.Email); err != nil {
		httpx.AbortWithError(c, httpx.New(httpx.CodeValidation, "weak_password"))
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		httpx.AbortWithError(c, httpx.Internal("hash password failed"))
		return
	}

	now := time.Now().UTC()
	u := docstore.User{
		UserID:       uuid.New().String(),
		Email:        req.Email,
		PasswordHash: hash,
		DisplayName:  req.FullName,
		Role:         "student",
		CreatedAt:    now,
		LastSeenAt:   now,
		Active:       true,
	}
	if err := s.store.CreateUser(c.Request.Context(), u); err != nil {
		httpx.AbortWithError(c, httpx.New(httpx.CodeConflict, "email_taken"))
		return
	}

	pair, err := s.issueTokenPair(c, u)
	if err != nil {
		httpx.AbortWithError(c, httpx.Internal("token issuance failed"))
		return
	}
	c.JSON(http.StatusCreated, pair)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Service) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.AbortWithError(c, httpx.Validation(err.Error()))
		return
	}

	u, err := s.store.GetUserByEmail(c.Request.Context(), req.Email)
	invalidCreds := httpx.Unauthorized("invalid_credentials")
	if err != nil {
		// Still run bcrypt against a fixed hash so an unknown email takes
		// the same time as a known one with a wrong password.
		comparePassword("$2a$10$CwTycUXWue0Thq9StjUM0uJ8R8ArQHEjf1ZYX2.5dC8J2ZSofgtNO", req.Password)
		httpx.AbortWithError(c, invalidCreds)
		return
	}
	if !comparePassword(u.PasswordHash, req.Password) {
		httpx.AbortWithError(c, invalidCreds)
		return
	}
	if !u.Active {
		httpx.AbortWithError(c, httpx.Unauthorized("account_disabled"))
		return
	}

	u.LastSeenAt = time.Now().UTC()
	_ = s.store.UpdateUser(c.Request.Context(), u)

	pair, err := s.issueTokenPair(c, u)
	if err != nil {
		httpx.AbortWithError(c, httpx.Internal("token issuance failed"))
		return
	}
	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (s *Service) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.AbortWithError(c, httpx.Validation(err.Error()))
		return
	}

	hash := tokenHash(req.RefreshToken)
	rt, err := s.store.GetRefreshToken(c.Request.Context(), hash)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		httpx.AbortWithError(c, httpx.Unauthorized("invalid_refresh_token"))
		return
	}

	u, err := s.store.GetUser(c.Request.Context(), rt.UserID)
	if err != nil {
		httpx.AbortWithError(c, httpx.Unauthorized("invalid_refresh_token"))
		return
	}
	if !u.Active {
		httpx.AbortWithError(c, httpx.Unauthorized("account_disabled"))
		return
	}

	// Invalidate the presented token before issuing its replacement so a
	// retried request never mints two live pairs from one token.
	if err := s.store.RevokeRefreshToken(c.Request.Context(), hash); err != nil {
		httpx.AbortWithError(c, httpx.Internal("revoke failed"))
		return
	}

	pair, err := s.issueTokenPair(c, u)
	if err != nil {
		httpx.AbortWithError(c, httpx.Internal("token issuance failed"))
		return
	}
	c.JSON(http.StatusOK, pair)
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (s *Service) logout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.AbortWithError(c, httpx.Validation(err.Error()))
		return
	}
	hash := tokenHash(req.RefreshToken)
	rt, err := s.store.GetRefreshToken(c.Request.Context(), hash)
	if err != nil {
		c.Status(http.StatusNoContent) // logout is idempotent
		return
	}
	_ = s.store.RevokeSession(c.Request.Context(), rt.SessionID)
	c.Status(http.StatusNoContent)
}

// verifyToken is reached only once AuthMiddleware has already verified
// the bearer token; it re-reads the user row so a deactivated-since-
// issuance account is still rejected rather than trusting stale claims.
func (s *Service) verifyToken(c *gin.Context) {
	claims := httpx.Principal(c)
	u, err := s.store.GetUser(c.Request.Context(), claims.UserID())
	if err != nil || !u.Active {
		httpx.AbortWithError(c, httpx.Unauthorized("account_disabled"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

const otpMinInterval = 60 * time.Second

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// forgotPassword never reveals whether email exists, and rate-limits to
// one OTP per email per otpMinInterval.
func (s *Service) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.AbortWithError(c, httpx.Validation(err.Error()))
		return
	}

	generic := gin.H{"message": "if an account exists for that email, a code has been sent"}

	u, err := s.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusOK, generic)
		return
	}

	if existing, err := s.store.GetOTP(c.Request.Context(), req.Email); err == nil {
		if time.Since(existing.IssuedAt) < otpMinInterval {
			c.JSON(http.StatusOK, generic)
			return
		}
	}

	code, err := generateOTPCode()
	if err != nil {
		httpx.AbortWithError(c, httpx.Internal("otp generation failed"))
		return
	}
	now := time.Now().UTC()
	otp := docstore.OTP{
		Email:             req.Email,
		Code:              code,
		IssuedAt:          now,
		ExpiresAt:         now.Add(10 * time.Minute),
		AttemptsRemaining: otpAttempts,
	}
	if err := s.store.UpsertOTP(c.Request.Context(), otp); err != nil {
		httpx.AbortWithError(c, httpx.Internal("otp persist failed"))
		return
	}
	_ = s.mailer.SendOTP(u.Email, code)
	c.JSON(http.StatusOK, generic)
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

func (s *Service) verifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.AbortWithError(c, httpx.Validation(err.Error()))
		return
	}
	otp, ok := s.checkOTP(c, req.Email, req.Code, false)
	if !ok {
		return
	}
	_ = otp
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// checkOTP validates code against the live OTP for email, decrementing
// attempts_remaining on a mismatch and consuming the OTP on success (if
// consume is true) or on exhaustion. Responds with the mapped error and
// returns ok=false on any failure.
func (s *Service) checkOTP(c *gin.Context, email, code string, consume bool) (docstore.OTP, bool) {
	otp, err := s.store.GetOTP(c.Request.Context(), email)
	if err != nil || otp.Consumed {
		httpx.AbortWithError(c, httpx.New(httpx.CodeValidation, "invalid_otp"))
		return docstore.OTP{}, false
	}
	if time.Now().After(otp.ExpiresAt) {
		httpx.AbortWithError(c, httpx.New(httpx.CodeValidation, "expired_otp"))
		return docstore.OTP{}, false
	}
	if otp.Code != code {
		otp.AttemptsRemaining--
		if otp.AttemptsRemaining <= 0 {
			otp.Consumed = true
		}
		_ = s.store.SaveOTP(c.Request.Context(), otp)
		httpx.AbortWithError(c, httpx.New(httpx.CodeValidation, "invalid_otp"))
		return docstore.OTP{}, false
	}
	if consume {
		otp.Consumed = true
		_ = s.store.SaveOTP(c.Request.Context(), otp)
	}
	return otp, true
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
	Confirm     string `json:"confirm" binding:"required"`
}

func (s *Service) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.AbortWithError(c, httpx.Validation(err.Error()))
		return
	}
	if req.NewPassword != req.Confirm {
		httpx.AbortWithError(c, httpx.Validation("password_mismatch"))
		return
	}

	if _, ok := s.checkOTP(c, req.Email, req.Code, true); !ok {
		return
	}

	u, err := s.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		httpx.AbortWithError(c, httpx.NotFound("user not found"))
		return
	}
	if err := validatePassword(req.NewPassword, u.DisplayName, u.Email); err != nil {
		httpx.AbortWithError(c, httpx.New(httpx.CodeValidation, "weak_password"))
		return
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		httpx.AbortWithError(c, httpx.Internal("hash password failed"))
		return
	}
	u.PasswordHash = hash
	if err := s.store.UpdateUser(c.Request.Context(), u); err != nil {
		httpx.AbortWithError(c, httpx.Internal("update user failed"))
		return
	}
	_ = s.store.RevokeAllSessionsForUser(c.Request.Context(), u.UserID)

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type federatedLoginRequest struct {
	Provider  string `json:"provider" binding:"required"`
	Assertion string `json:"assertion" binding:"required"`
}

// federatedLogin accepts a third-party identity assertion, verifies it
// against the issuer, looks up or creates the user by email, and issues
// the same token pair login does. Assertion verification is delegated to
// a per-provider Verifier; none are wired by default, so this returns
// upstream_unavailable until one is configured via WithFederatedVerifier.
func (s *Service) federatedLogin(c *gin.Context) {
	var req federatedLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.AbortWithError(c, httpx.Validation(err.Error()))
		return
	}
	verifier, ok := s.federatedVerifiers[req.Provider]
	if !ok {
		httpx.AbortWithError(c, httpx.New(httpx.CodeUpstreamUnavailable, "federated provider not configured"))
		return
	}
	identity, err := verifier.Verify(c.Request.Context(), req.Assertion)
	if err != nil {
		httpx.AbortWithError(c, httpx.Unauthorized("invalid_assertion"))
		return
	}

	u, err := s.store.GetUserByEmail(c.Request.Context(), identity.Email)
	if err != nil {
		now := time.Now().UTC()
		u = docstore.User{
			UserID:      uuid.New().String(),
			Email:       identity.Email,
			DisplayName: identity.Name,
			Role:        "student",
			CreatedAt:   now,
			LastSeenAt:  now,
			Active:      true,
		}
		if err := s.store.CreateUser(c.Request.Context(), u); err != nil {
			httpx.AbortWithError(c, httpx.Internal("create user failed"))
			return
		}
	}

	pair, err := s.issueTokenPair(c, u)
	if err != nil {
		httpx.AbortWithError(c, httpx.Internal("token issuance failed"))
		return
	}
	c.JSON(http.StatusOK, pair)
}

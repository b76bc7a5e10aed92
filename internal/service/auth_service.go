package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"storyboard-server/internal/config"
	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "storyboard-server"

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Сообщения для клиента
const (
	msgNameTooShort       = "Name must be at least 2 characters long"
	msgInvalidEmail       = "Invalid email format"
	msgWeakPassword       = "Password must be at least 8 characters long and contain at least one uppercase letter, one lowercase letter, and one digit"
	msgEmailTaken         = "User with this email already exists"
	msgInvalidCredentials = "Invalid email or password"
	msgInvalidRefresh     = "Invalid refresh token"
	msgUserNotFound       = "User not found"
)

// AuthService - регистрация, вход и управление токенами пользователей.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, *models.TokenDetails, error)
	Login(ctx context.Context, email, password string) (*models.User, *models.TokenDetails, error)
	// Refresh выпускает новую пару токенов, старый refresh токен отзывается.
	Refresh(ctx context.Context, refreshToken string) (*models.TokenDetails, error)
	// Logout отзывает access токен и, если передан, refresh токен.
	Logout(ctx context.Context, claims *models.Claims, refreshToken string) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, name, email *string) (*models.User, error)
	// VerifyAccessToken проверяет подпись, срок и наличие токена в хранилище.
	VerifyAccessToken(ctx context.Context, tokenString string) (*models.Claims, error)
}

// Compile-time check to ensure authServiceImpl implements AuthService
var _ AuthService = (*authServiceImpl)(nil)

type authServiceImpl struct {
	userRepo  interfaces.UserRepository
	tokenRepo interfaces.TokenRepository
	cfg       *config.Config
	logger    *zap.Logger
}

// NewAuthService creates a new instance of authServiceImpl.
func NewAuthService(userRepo interfaces.UserRepository, tokenRepo interfaces.TokenRepository, cfg *config.Config, logger *zap.Logger) AuthService {
	return &authServiceImpl{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		cfg:       cfg,
		logger:    logger.Named("AuthService"),
	}
}

// Register creates a new user and issues the first token pair.
func (s *authServiceImpl) Register(ctx context.Context, name, email, password string) (*models.User, *models.TokenDetails, error) {
	// Приводим email к нижнему регистру и убираем пробелы
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	logFields := []zap.Field{zap.String("name", name), zap.String("email", email)}
	s.logger.Info("Registering new user", logFields...)

	if len([]rune(name)) < 2 {
		return nil, nil, models.NewValidationError(msgNameTooShort)
	}
	if !emailPattern.MatchString(email) {
		return nil, nil, models.NewValidationError(msgInvalidEmail)
	}
	if !isStrongPassword(password) {
		return nil, nil, models.NewValidationError(msgWeakPassword)
	}

	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		s.logger.Error("Error checking existing email during registration", append(logFields, zap.Error(err))...)
		return nil, nil, fmt.Errorf("error checking existing email: %w", err)
	}
	if existing != nil {
		s.logger.Warn("Registration attempt for existing email", logFields...)
		return nil, nil, &models.AppError{Kind: models.ErrEmailTaken, Message: msgEmailTaken}
	}

	// Используем перец перед хешированием
	hashed, err := hashPassword(password, s.cfg.PasswordPepper)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", append(logFields, zap.Error(err))...)
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:          name,
		Email:         &email,
		PasswordHash:  &hashed,
		Role:          models.RoleUser,
		LastUsageDate: time.Now().UTC(),
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			return nil, nil, &models.AppError{Kind: models.ErrEmailTaken, Message: msgEmailTaken}
		}
		return nil, nil, err
	}

	td, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	registrationsTotal.Inc()
	s.logger.Info("User registered successfully", zap.String("userID", user.ID.String()))
	return user, td, nil
}

// Login authenticates a user and returns token details.
func (s *authServiceImpl) Login(ctx context.Context, email, password string) (*models.User, *models.TokenDetails, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.logger.Info("Login attempt", zap.String("email", email))

	invalid := &models.AppError{Kind: models.ErrInvalidCredentials, Message: msgInvalidCredentials}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.logger.Warn("Login failed: user not found", zap.String("email", email))
			return nil, nil, invalid
		}
		s.logger.Error("Login failed: error getting user from repository", zap.Error(err), zap.String("email", email))
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Пользователи, созданные по deviceId, пароля не имеют
	if user.PasswordHash == nil || !checkPasswordHash(password, *user.PasswordHash, s.cfg.PasswordPepper) {
		s.logger.Warn("Login failed: invalid password", zap.String("userID", user.ID.String()))
		return nil, nil, invalid
	}

	td, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("Failed to update last login time", zap.String("userID", user.ID.String()), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	s.logger.Info("User logged in successfully", zap.String("userID", user.ID.String()))
	return user, td, nil
}

// Refresh issues new access and refresh tokens based on a valid refresh token.
func (s *authServiceImpl) Refresh(ctx context.Context, refreshToken string) (*models.TokenDetails, error) {
	s.logger.Info("Token refresh attempt")
	invalid := func(cause error) error {
		return &models.AppError{Kind: models.ErrValidation, Message: msgInvalidRefresh, Cause: cause}
	}

	claims, err := s.parseToken(refreshToken)
	if err != nil {
		s.logger.Warn("Refresh attempt with unparsable token", zap.Error(err))
		return nil, invalid(err)
	}
	if claims.TokenType != models.TokenTypeRefresh {
		s.logger.Warn("Refresh attempt with non-refresh token", zap.String("type", claims.TokenType))
		return nil, invalid(models.ErrTokenInvalid)
	}

	refreshUUID := claims.ID
	storedUserID, err := s.tokenRepo.GetUserIDByRefreshUUID(ctx, refreshUUID)
	if err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			s.logger.Warn("Refresh attempt with revoked token", zap.String("refreshUUID", refreshUUID))
			return nil, invalid(err)
		}
		s.logger.Error("Error checking refresh token existence via repository", zap.Error(err), zap.String("refreshUUID", refreshUUID))
		return nil, fmt.Errorf("error checking refresh token existence: %w", err)
	}
	if storedUserID != claims.UserID {
		s.logger.Error("Refresh token user ID mismatch",
			zap.String("tokenUserID", claims.UserID.String()),
			zap.String("storedUserID", storedUserID.String()),
		)
		return nil, invalid(models.ErrTokenInvalid)
	}

	// Роль могла измениться с момента выпуска токена
	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, invalid(err)
		}
		return nil, fmt.Errorf("failed to load user for refresh: %w", err)
	}

	if _, err := s.tokenRepo.DeleteTokens(ctx, claims.UserID, "", refreshUUID); err != nil {
		s.logger.Error("Non-critical: Failed to delete old refresh token during refresh process", zap.Error(err), zap.String("refreshUUID", refreshUUID))
	}

	td, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	refreshesTotal.Inc()
	s.logger.Info("Token refreshed successfully", zap.String("userID", user.ID.String()))
	return td, nil
}

// Logout removes the access token and the optional refresh token from the store.
func (s *authServiceImpl) Logout(ctx context.Context, claims *models.Claims, refreshToken string) error {
	refreshUUID := ""
	if refreshToken != "" {
		if rc, err := s.parseToken(refreshToken); err == nil && rc.TokenType == models.TokenTypeRefresh && rc.UserID == claims.UserID {
			refreshUUID = rc.ID
		}
	}
	log := s.logger.With(zap.String("userID", claims.UserID.String()), zap.String("accessUUID", claims.ID))

	deleted, err := s.tokenRepo.DeleteTokens(ctx, claims.UserID, claims.ID, refreshUUID)
	if err != nil {
		// Токены могли уже истечь, клиенту ошибку не отдаем
		log.Error("Failed to delete tokens during logout", zap.Error(err))
		return nil
	}
	log.Info("User logged out", zap.Int64("deletedCount", deleted))
	return nil
}

func (s *authServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.NewNotFoundError(models.ErrUserNotFound, msgUserNotFound)
		}
		return nil, err
	}
	return user, nil
}

func (s *authServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, name, email *string) (*models.User, error) {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if len([]rune(trimmed)) < 2 {
			return nil, models.NewValidationError(msgNameTooShort)
		}
		name = &trimmed
	}
	if email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*email))
		if !emailPattern.MatchString(normalized) {
			return nil, models.NewValidationError(msgInvalidEmail)
		}
		email = &normalized
	}
	if name == nil && email == nil {
		return s.GetProfile(ctx, userID)
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, name, email)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUserNotFound):
			return nil, models.NewNotFoundError(models.ErrUserNotFound, msgUserNotFound)
		case errors.Is(err, models.ErrEmailTaken):
			return nil, &models.AppError{Kind: models.ErrEmailTaken, Message: msgEmailTaken}
		}
		return nil, err
	}
	s.logger.Info("Profile updated", zap.String("userID", userID.String()))
	return user, nil
}

// VerifyAccessToken parses and validates an access token string.
func (s *authServiceImpl) VerifyAccessToken(ctx context.Context, tokenString string) (*models.Claims, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		tokenVerificationsTotal.WithLabelValues(models.TokenTypeAccess, "invalid").Inc()
		return nil, err
	}
	if claims.TokenType != models.TokenTypeAccess {
		tokenVerificationsTotal.WithLabelValues(models.TokenTypeAccess, "wrong_type").Inc()
		s.logger.Warn("Access token verification failed: wrong token type", zap.String("type", claims.TokenType))
		return nil, models.ErrTokenInvalid
	}

	if _, err := s.tokenRepo.GetUserIDByAccessUUID(ctx, claims.ID); err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			tokenVerificationsTotal.WithLabelValues(models.TokenTypeAccess, "revoked").Inc()
			s.logger.Debug("Access token not found in store (revoked/logged out)", zap.String("accessUUID", claims.ID))
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("Error checking access token existence via repository", zap.Error(err))
		return nil, fmt.Errorf("error checking access token existence: %w", err)
	}

	tokenVerificationsTotal.WithLabelValues(models.TokenTypeAccess, "valid").Inc()
	return claims, nil
}

// parseToken проверяет подпись и срок действия и переводит ошибки jwt в ошибки приложения.
func (s *authServiceImpl) parseToken(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, models.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, models.ErrTokenMalformed
		}
		s.logger.Debug("Failed to parse token", zap.Error(err))
		return nil, models.ErrTokenInvalid
	}
	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid {
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

// issueTokens выпускает пару токенов и сохраняет их идентификаторы в Redis.
func (s *authServiceImpl) issueTokens(ctx context.Context, user *models.User) (*models.TokenDetails, error) {
	td, err := s.createTokens(user)
	if err != nil {
		return nil, err
	}
	if err := s.tokenRepo.SetToken(ctx, user.ID, td); err != nil {
		s.logger.Error("Failed to save token details via repository", zap.Error(err), zap.String("userID", user.ID.String()))
		return nil, fmt.Errorf("failed to save token details: %w", err)
	}
	return td, nil
}

// createTokens generates new access and refresh tokens for a user.
func (s *authServiceImpl) createTokens(user *models.User) (*models.TokenDetails, error) {
	now := time.Now()
	td := &models.TokenDetails{
		AccessUUID:  uuid.NewString(),
		RefreshUUID: uuid.NewString(),
		AtExpires:   now.Add(s.cfg.AccessTokenTTL).Unix(),
		RtExpires:   now.Add(s.cfg.RefreshTokenTTL).Unix(),
	}

	sign := func(tokenType, id string, expires int64) (string, error) {
		claims := &models.Claims{
			UserID:    user.ID,
			Role:      user.Role,
			IsAdmin:   user.IsAdmin,
			TokenType: tokenType,
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        id,
				Subject:   user.ID.String(),
				Issuer:    tokenIssuer,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(time.Unix(expires, 0)),
			},
		}
		return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	}

	var err error
	if td.AccessToken, err = sign(models.TokenTypeAccess, td.AccessUUID, td.AtExpires); err != nil {
		s.logger.Error("Failed to sign access token", zap.Error(err), zap.String("userID", user.ID.String()))
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	if td.RefreshToken, err = sign(models.TokenTypeRefresh, td.RefreshUUID, td.RtExpires); err != nil {
		s.logger.Error("Failed to sign refresh token", zap.Error(err), zap.String("userID", user.ID.String()))
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return td, nil
}

// --- Helper Functions ---

func isStrongPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// applyPepper applies HMAC-SHA256 using the pepper as the key.
func applyPepper(password, pepper string) []byte {
	h := hmac.New(sha256.New, []byte(pepper))
	h.Write([]byte(password))
	return h.Sum(nil)
}

// hashPassword generates a bcrypt hash of the password after applying the pepper.
func hashPassword(password, pepper string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(applyPepper(password, pepper), bcrypt.DefaultCost)
	return string(bytes), err
}

// checkPasswordHash compares a plain text password (after applying pepper) with a stored hash.
func checkPasswordHash(password, hash, pepper string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), applyPepper(password, pepper)) == nil
}

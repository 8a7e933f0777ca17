package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopstack/inventory-api/internal/dto"
	"github.com/shopstack/inventory-api/internal/mailer"
	"github.com/shopstack/inventory-api/internal/model"
	"github.com/shopstack/inventory-api/internal/repository"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("email not verified")
	ErrOTPInvalid         = errors.New("invalid or expired otp")
	ErrOTPRequired        = errors.New("otp verification required")
	ErrUserNotFound       = errors.New("user not found")
)

// verifiedTTL bounds how long a verified email may sit before completing
// registration.
const verifiedTTL = 15 * time.Minute

type AuthService struct {
	userRepo  repository.UserRepository
	otpStore  OTPStore
	mail      mailer.Sender
	jwtSecret []byte
	jwtExpiry time.Duration
	otpTTL    time.Duration
	adminUser string
	adminHash []byte
	log       *slog.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	otpStore OTPStore,
	mail mailer.Sender,
	jwtSecret string,
	jwtExpiry, otpTTL time.Duration,
	adminUser string,
	adminHash []byte,
	log *slog.Logger,
) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{
		userRepo:  userRepo,
		otpStore:  otpStore,
		mail:      mail,
		jwtSecret: []byte(jwtSecret),
		jwtExpiry: jwtExpiry,
		otpTTL:    otpTTL,
		adminUser: adminUser,
		adminHash: adminHash,
		log:       log,
	}
}

// AdminLogin authenticates against the configured admin credentials and
// issues an admin-role token. The admin is not a catalog user, so the
// subject is the nil UUID.
func (s *AuthService) AdminLogin(username, password string) (string, error) {
	if username != s.adminUser {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.generateToken(uuid.Nil.String(), "admin")
}

// SendOTP emails a fresh verification code. Unlike order confirmations,
// failing to send here fails the request: the caller cannot proceed
// without the code.
func (s *AuthService) SendOTP(ctx context.Context, email string) error {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if existing != nil {
		return ErrEmailTaken
	}

	code, err := generateOTP()
	if err != nil {
		return err
	}
	if err := s.otpStore.SetCode(ctx, email, code, s.otpTTL); err != nil {
		return err
	}

	body, err := mailer.OTPBody(code, fmt.Sprintf("%d minutes", int(s.otpTTL.Minutes())))
	if err != nil {
		return err
	}
	if err := s.mail.Send(email, "Your verification code", body); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	return nil
}

func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) error {
	stored, err := s.otpStore.GetCode(ctx, email)
	if err != nil {
		return err
	}
	if stored == "" || stored != code {
		return ErrOTPInvalid
	}
	return s.otpStore.MarkVerified(ctx, email, verifiedTTL)
}

func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	verified, err := s.otpStore.IsVerified(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, ErrOTPRequired
	}

	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashed),
		Verified: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.otpStore.Clear(ctx, req.Email); err != nil {
		s.log.Error("clear otp state", "email", req.Email, "error", err)
	}

	token, err := s.generateToken(user.ID.String(), "customer")
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, User: toUserResponse(user)}, nil
}

func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Verified {
		return nil, ErrNotVerified
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(user.ID.String(), "customer")
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, User: toUserResponse(user)}, nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *AuthService) generateToken(sub, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(s.jwtExpiry).Unix(),
		"iat":  time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func toUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID: user.ID, Username: user.Username, Email: user.Email, Verified: user.Verified,
	}
}

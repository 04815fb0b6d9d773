package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/xaenox/promptlab/internal/models"
	"github.com/xaenox/promptlab/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// FormError is a validation failure meant to be shown inline next to the form.
type FormError struct {
	Message string
	Fields  []string
}

func (e *FormError) Error() string {
	return e.Message
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type registerForm struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type account struct {
	models.User
	PasswordHash string `json:"passwordHash"`
}

// Service is a deliberately simple credential store kept in the same
// key-value storage as the workspace.
type Service struct {
	mu       sync.Mutex
	store    storage.Storage
	logger   *zap.Logger
	validate *validator.Validate
	delay    time.Duration
	hashCost int
}

type Option func(*Service)

// WithDelay sets the artificial pause before each login or register.
func WithDelay(d time.Duration) Option {
	return func(s *Service) { s.delay = d }
}

// WithHashCost lowers the bcrypt cost, for tests.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

func NewService(store storage.Storage, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		logger:   logger,
		validate: validator.New(),
		delay:    600 * time.Millisecond,
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and logs it in.
func (s *Service) Register(ctx context.Context, name, email, password string) (models.User, error) {
	if err := s.pause(ctx); err != nil {
		return models.User{}, err
	}
	form := registerForm{Name: strings.TrimSpace(name), Email: normalizeEmail(email), Password: password}
	if err := s.check(form); err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.accounts(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, a := range accounts {
		if a.Email == form.Email {
			return models.User{}, ErrUserExists
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return models.User{}, fmt.Errorf("error hashing password: %w", err)
	}
	acc := account{
		User:         models.User{ID: uuid.New().String(), Name: form.Name, Email: form.Email},
		PasswordHash: string(hash),
	}
	if err := storage.SetJSON(ctx, s.store, storage.KeyUsers, append(accounts, acc)); err != nil {
		return models.User{}, fmt.Errorf("error saving user: %w", err)
	}
	if err := storage.SetJSON(ctx, s.store, storage.KeySession, acc.User); err != nil {
		return models.User{}, fmt.Errorf("error saving session: %w", err)
	}

	s.logger.Info("Registered user", zap.String("user_id", acc.ID))
	return acc.User, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (models.User, error) {
	if err := s.pause(ctx); err != nil {
		return models.User{}, err
	}
	form := loginForm{Email: normalizeEmail(email), Password: password}
	if err := s.check(form); err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.accounts(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, a := range accounts {
		if a.Email != form.Email {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
			break
		}
		if err := storage.SetJSON(ctx, s.store, storage.KeySession, a.User); err != nil {
			return models.User{}, fmt.Errorf("error saving session: %w", err)
		}
		s.logger.Info("User logged in", zap.String("user_id", a.ID))
		return a.User, nil
	}

	s.logger.Info("Rejected login", zap.String("email", form.Email))
	return models.User{}, ErrInvalidCredentials
}

// Logout clears the current session. The key is overwritten with null since
// the storage port has no delete.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(ctx, storage.KeySession, []byte("null")); err != nil {
		return fmt.Errorf("error clearing session: %w", err)
	}
	return nil
}

// Current returns the logged-in user, if any.
func (s *Service) Current(ctx context.Context) (models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var u *models.User
	err := storage.GetJSON(ctx, s.store, storage.KeySession, &u)
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, err
	}
	if u == nil || u.ID == "" {
		return models.User{}, false, nil
	}
	return *u, true, nil
}

func (s *Service) accounts(ctx context.Context) ([]account, error) {
	var accounts []account
	err := storage.GetJSON(ctx, s.store, storage.KeyUsers, &accounts)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("error loading users: %w", err)
	}
	return accounts, nil
}

func (s *Service) check(form any) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fe := &FormError{Message: "Please enter a valid email address"}
	for _, v := range verrs {
		fe.Fields = append(fe.Fields, v.Field())
		if v.Tag() == "required" {
			fe.Message = "Please fill in all fields"
		}
	}
	return fe
}

func (s *Service) pause(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package auth

import (
	"context"
	"errors"

	"github.com/mehmetcc/todox/internal/person"
	"github.com/mehmetcc/todox/pkg/id"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// PersonRepo is the storage the service needs.
type PersonRepo interface {
	Create(ctx context.Context, dto *person.PersonDTO) (id.PublicID, error)
	GetByUsername(ctx context.Context, username string) (*person.Person, error)
}

type Service struct {
	personRepo PersonRepo
	logger     *zap.Logger
	cost       int
	// dummyHash is compared against when the username is unknown so both
	// paths do the same bcrypt work.
	dummyHash []byte
}

func NewService(personRepo PersonRepo, logger *zap.Logger) (*Service, error) {
	return newService(personRepo, logger, bcrypt.DefaultCost)
}

func newService(personRepo PersonRepo, logger *zap.Logger, cost int) (*Service, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("todox-dummy-password"), cost)
	if err != nil {
		return nil, err
	}
	return &Service{
		personRepo: personRepo,
		logger:     logger,
		cost:       cost,
		dummyHash:  dummy,
	}, nil
}

func (a *Service) Register(ctx context.Context, email, username, password string) (id.PublicID, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		a.logger.Error("failed to hash password", zap.Error(err))
		return "", err
	}

	publicID, err := a.personRepo.Create(ctx, &person.PersonDTO{
		Email:    email,
		Username: username,
		Password: string(hashed),
	})
	if err != nil {
		return "", err
	}
	return publicID, nil
}

// Login returns the person owning username when password matches.
func (a *Service) Login(ctx context.Context, username, password string) (*person.Person, error) {
	p, err := a.personRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, person.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(password)); err != nil {
		a.logger.Debug("password mismatch", zap.String("public_id", p.PublicID.String()))
		return nil, ErrInvalidCredentials
	}
	if !p.CanLogin() {
		return nil, ErrUserNotActive
	}
	return p, nil
}

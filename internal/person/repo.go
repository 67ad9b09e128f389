package person

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mehmetcc/todox/pkg/id"
	"go.uber.org/zap"
)

type PersonDTO struct {
	Email    string
	Username string
	// Password must already be hashed.
	Password string
}

type Repo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRepo(db *sql.DB, logger *zap.Logger) *Repo {
	return &Repo{
		db:     db,
		logger: logger,
	}
}

const (
	insertPersonQuery = `
						INSERT INTO persons (public_id, email, username, password, role, is_active, is_deleted)
						VALUES ($1, $2, $3, $4, $5, $6, $7)
						RETURNING id
						`
	selectByUsernameQuery = `
						SELECT id, public_id, email, username, password, role, is_active, is_deleted, created_at, updated_at
						FROM persons
						WHERE username = $1 AND is_deleted = FALSE
						`
)

func (p *Repo) Create(ctx context.Context, dto *PersonDTO) (id.PublicID, error) {
	publicID := id.NewPublicID()
	row := p.db.QueryRowContext(ctx,
		insertPersonQuery,
		publicID.String(),
		NormalizeEmail(dto.Email),
		strings.TrimSpace(dto.Username),
		dto.Password,
		RoleUser,
		true,
		false,
	)

	var rowID int64
	if err := row.Scan(&rowID); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			p.logger.Warn("create person canceled/timed out", zap.Error(err))
			return "", err
		}
		if mapped := mapUniqueViolation(err); mapped != nil {
			p.logger.Debug("duplicate person", zap.String("username", dto.Username), zap.Error(mapped))
			return "", mapped
		}

		p.logger.Error("failed to insert person", zap.Error(err))
		return "", err
	}

	p.logger.Debug("person created",
		zap.Int64("id", rowID),
		zap.String("public_id", publicID.String()),
	)
	return publicID, nil
}

func (p *Repo) GetByUsername(ctx context.Context, username string) (*Person, error) {
	row := p.db.QueryRowContext(ctx, selectByUsernameQuery, strings.TrimSpace(username))

	var rec Person
	err := row.Scan(
		&rec.ID,
		&rec.PublicID,
		&rec.Email,
		&rec.Username,
		&rec.Password,
		&rec.Role,
		&rec.IsActive,
		&rec.IsDeleted,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		p.logger.Error("failed to load person by username", zap.Error(err))
		return nil, err
	}
	return &rec, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// mapUniqueViolation turns a unique constraint failure into the matching
// sentinel, or returns nil.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}

	switch pgErr.ConstraintName {
	case "persons_email_key":
		return ErrDuplicateEmail
	case "persons_username_key":
		return ErrDuplicateUsername
	}

	// unique index on an expression, fall back to the detail text
	det := strings.ToLower(pgErr.Detail)
	switch {
	case strings.Contains(det, "(email)") || strings.Contains(det, "lower(email)"):
		return ErrDuplicateEmail
	case strings.Contains(det, "(username)"):
		return ErrDuplicateUsername
	}
	return nil
}

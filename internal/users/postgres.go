package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"graintrade.org/internal/ids"
)

const (
	uniqueViolation = "23505"

	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"

	selectColumns = `select id, username, email, full_name, hashed_password, disabled, created_at, updated_at from users`
)

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository implements Repository on top of database/sql with the pgx driver.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres opens a pgx-backed pool. The connection is established lazily.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (User, bool, error) {
	return r.findOne(ctx, selectColumns+` where username=$1`, username)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, bool, error) {
	return r.findOne(ctx, selectColumns+` where id=$1`, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, bool, error) {
	return r.findOne(ctx, selectColumns+` where email=$1`, email)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (User, bool, error) {
	var u User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.Disabled, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, false, nil
		}
		return User{}, false, fmt.Errorf("query user: %w", err)
	}
	return u, true, nil
}

func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	err := r.db.QueryRowContext(ctx,
		`insert into users(id, username, email, full_name, hashed_password, disabled)
		 values($1,$2,$3,$4,$5,$6)
		 returning created_at, updated_at`,
		u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, u.Disabled,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapWriteError("insert user", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` order by created_at asc`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	res := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.Disabled, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, u *User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	err := r.db.QueryRowContext(ctx,
		`update users set username=$1, email=$2, full_name=$3, hashed_password=$4, updated_at=now()
		 where id=$5
		 returning disabled, created_at, updated_at`,
		u.Username, u.Email, u.FullName, u.PasswordHash, u.ID,
	).Scan(&u.Disabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return mapWriteError("update user", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case usernameConstraint:
			return ErrUsernameTaken
		case emailConstraint:
			return ErrEmailTaken
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

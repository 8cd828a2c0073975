// Package users is the users table: accounts, roles and password checks.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
	ErrPasswordRequired   = errors.New("password required for new user")
)

// HashCost is the bcrypt cost for new password hashes.
var HashCost = 12

var roles = map[string]bool{"student": true, "teacher": true, "manager": true, "admin": true}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Account is a user plus an optional plaintext password used on upsert.
type Account struct {
	User     `yaml:",inline"`
	Password string `json:"password,omitempty" yaml:"password"`
}

type Repo struct{ db *sql.DB }

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

// Get looks a user up by id or username.
func (r *Repo) Get(ctx context.Context, sub string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, name, role FROM users WHERE id=$1 OR username=$1`, sub,
	).Scan(&u.ID, &u.Username, &u.Name, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// List returns users ordered by username, optionally filtered by role.
func (r *Repo) List(ctx context.Context, role string) ([]User, error) {
	q := `SELECT id, username, name, role FROM users`
	var args []any
	if role != "" {
		q += ` WHERE role=$1`
		args = append(args, role)
	}
	rows, err := r.db.QueryContext(ctx, q+` ORDER BY username`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.Role); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Authenticate checks a username/password pair.
func (r *Repo) Authenticate(ctx context.Context, username, password string) (User, error) {
	var (
		u    User
		hash string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, name, role, password_hash FROM users WHERE username=$1`, username,
	).Scan(&u.ID, &u.Username, &u.Name, &u.Role, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// ChangePassword replaces the hash after checking the old password.
func (r *Repo) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password required", ErrInvalidCredentials)
	}
	var stored string
	err := r.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id=$1`, id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), HashCost)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), id)
	return err
}

// Upsert inserts or updates accounts by id or username. New accounts need a
// password; existing ones keep their hash when none is given.
func (r *Repo) Upsert(ctx context.Context, accounts []Account) (inserted, updated int, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	for _, a := range accounts {
		a.Role = strings.ToLower(strings.TrimSpace(a.Role))
		if a.Role == "" {
			a.Role = "student"
		}
		if !roles[a.Role] {
			return inserted, updated, fmt.Errorf("%w: %s", ErrInvalidRole, a.Role)
		}
		if a.ID == "" {
			a.ID = a.Username
		}
		var hash string
		if a.Password != "" {
			b, e := bcrypt.GenerateFromPassword([]byte(a.Password), HashCost)
			if e != nil {
				return inserted, updated, e
			}
			hash = string(b)
		}

		var one int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id=$1 OR username=$2`, a.ID, a.Username).Scan(&one)
		switch {
		case err == nil:
			if hash != "" {
				_, err = tx.ExecContext(ctx, `UPDATE users SET username=$1, name=$2, role=$3, password_hash=$4 WHERE id=$5`,
					a.Username, a.Name, a.Role, hash, a.ID)
			} else {
				_, err = tx.ExecContext(ctx, `UPDATE users SET username=$1, name=$2, role=$3 WHERE id=$4`,
					a.Username, a.Name, a.Role, a.ID)
			}
			if err != nil {
				return inserted, updated, err
			}
			updated++
		case errors.Is(err, sql.ErrNoRows):
			if hash == "" {
				return inserted, updated, fmt.Errorf("%w: %s", ErrPasswordRequired, a.Username)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO users (id, username, name, role, password_hash) VALUES ($1,$2,$3,$4,$5)`,
				a.ID, a.Username, a.Name, a.Role, hash)
			if err != nil {
				return inserted, updated, err
			}
			inserted++
		default:
			return inserted, updated, err
		}
	}
	return inserted, updated, nil
}

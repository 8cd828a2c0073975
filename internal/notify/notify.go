// Package notify stores user notifications such as "assessment completed".
package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultLimit is how many notifications a listing returns.
const DefaultLimit = 20

var ErrInvalid = errors.New("invalid notification")

type Notification struct {
	ID        string    `json:"id"`
	User      string    `json:"user" validate:"required"`
	Title     string    `json:"title" validate:"required"`
	Message   string    `json:"message" validate:"required"`
	Type      string    `json:"type,omitempty"` // course_update, assignment, system, grade
	Read      bool      `json:"read"`
	Link      string    `json:"link,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Store interface {
	Create(ctx context.Context, n Notification) (Notification, error)
	List(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, ids []string) error
}

func normalize(n Notification, now time.Time) (Notification, error) {
	if strings.TrimSpace(n.User) == "" || strings.TrimSpace(n.Title) == "" {
		return Notification{}, fmt.Errorf("%w: user and title required", ErrInvalid)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Type == "" {
		n.Type = "system"
	}
	n.CreatedAt = now
	return n, nil
}

// ---- memory ----

type MemoryStore struct {
	mu    sync.Mutex
	items []Notification
	now   func() time.Time
}

func NewInMemoryStore() *MemoryStore { return &MemoryStore{now: time.Now} }

func (m *MemoryStore) Create(_ context.Context, n Notification) (Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := normalize(n, m.now().UTC())
	if err != nil {
		return Notification{}, err
	}
	m.items = append(m.items, n)
	return n, nil
}

func (m *MemoryStore) List(_ context.Context, userID string, limit int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := []Notification{}
	for _, n := range m.items {
		if n.User == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) MarkRead(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for i := range m.items {
		if _, ok := set[m.items[i].ID]; ok {
			m.items[i].Read = true
		}
	}
	return nil
}

// ---- sql ----

type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db, now: time.Now} }

func (s *SQLStore) Create(ctx context.Context, n Notification) (Notification, error) {
	n, err := normalize(n, s.now().UTC().Truncate(time.Second))
	if err != nil {
		return Notification{}, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO notifications (id,user_id,title,message,typ,is_read,link,created_at)
		VALUES ($1,$2,$3,$4,$5,0,$6,$7)`,
		n.ID, n.User, n.Title, n.Message, n.Type, n.Link, n.CreatedAt.Unix())
	if err != nil {
		return Notification{}, err
	}
	return n, nil
}

func (s *SQLStore) List(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id,user_id,title,message,typ,is_read,link,created_at
		FROM notifications WHERE user_id=$1 ORDER BY created_at DESC LIMIT %d`, limit), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Notification{}
	for rows.Next() {
		var (
			n       Notification
			read    int
			created int64
		)
		if err := rows.Scan(&n.ID, &n.User, &n.Title, &n.Message, &n.Type, &read, &n.Link, &created); err != nil {
			return nil, err
		}
		n.Read = read != 0
		n.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLStore) MarkRead(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read=1 WHERE id=$1`, id); err != nil {
			return err
		}
	}
	return nil
}

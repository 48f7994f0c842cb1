package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/keyxmakerx/eventboard/internal/apperror"
)

// EventRepository defines persistence operations for events, categories and
// users.
type EventRepository interface {
	// Events.
	ListEvents(ctx context.Context) ([]Event, error)
	FindEvent(ctx context.Context, id int64) (*Event, error)
	CreateEvent(ctx context.Context, evt *Event) error
	UpdateEvent(ctx context.Context, evt *Event) error
	DeleteEvent(ctx context.Context, id int64) error
	CountEvents(ctx context.Context) (int, error)

	// Categories.
	ListCategories(ctx context.Context) ([]Category, error)
	FindCategory(ctx context.Context, id int64) (*Category, error)

	// Users.
	ListUsers(ctx context.Context) ([]User, error)
	FindUser(ctx context.Context, id int64) (*User, error)

	// Import upserts a whole seed document in one transaction.
	Import(ctx context.Context, seed *Seed) error
}

// eventRepo is the MariaDB implementation of EventRepository.
type eventRepo struct {
	db *sql.DB
}

// NewEventRepository creates a new MariaDB-backed event repository.
func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepo{db: db}
}

// eventCols is the column list for event queries.
const eventCols = `id, title, description, image, location, start_time, end_time,
        created_by, created_at, updated_at`

// scanEvent reads a row into an Event struct.
func scanEvent(scanner interface{ Scan(...any) error }) (*Event, error) {
	evt := &Event{}
	var createdBy sql.NullInt64
	err := scanner.Scan(&evt.ID, &evt.Title, &evt.Description, &evt.Image, &evt.Location,
		&evt.StartTime, &evt.EndTime, &createdBy, &evt.CreatedAt, &evt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if createdBy.Valid {
		evt.CreatedBy = &createdBy.Int64
	}
	evt.StartTime = evt.StartTime.UTC()
	evt.EndTime = evt.EndTime.UTC()
	evt.CategoryIDs = []int64{}
	return evt, nil
}

// ListEvents returns every event ordered by start time with category ids
// attached.
func (r *eventRepo) ListEvents(ctx context.Context) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventCols+` FROM events ORDER BY start_time, id`)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []Event
	index := map[int64]int{}
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		index[evt.ID] = len(events)
		events = append(events, *evt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	links, err := r.db.QueryContext(ctx,
		`SELECT event_id, category_id FROM event_categories ORDER BY event_id, position`)
	if err != nil {
		return nil, fmt.Errorf("querying event categories: %w", err)
	}
	defer links.Close()

	for links.Next() {
		var eventID, categoryID int64
		if err := links.Scan(&eventID, &categoryID); err != nil {
			return nil, fmt.Errorf("scanning event category: %w", err)
		}
		if i, ok := index[eventID]; ok {
			events[i].CategoryIDs = append(events[i].CategoryIDs, categoryID)
		}
	}
	return events, links.Err()
}

// FindEvent returns a single event with its category ids.
func (r *eventRepo) FindEvent(ctx context.Context, id int64) (*Event, error) {
	evt, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventCols+` FROM events WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying event by id: %w", err)
	}

	ids, err := r.categoryIDs(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	evt.CategoryIDs = ids
	return evt, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *eventRepo) categoryIDs(ctx context.Context, q querier, eventID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT category_id FROM event_categories WHERE event_id = ? ORDER BY position`, eventID)
	if err != nil {
		return nil, fmt.Errorf("querying event categories: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateEvent inserts evt and its category links, setting evt.ID.
func (r *eventRepo) CreateEvent(ctx context.Context, evt *Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (title, description, image, location, start_time, end_time, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		evt.Title, evt.Description, evt.Image, evt.Location,
		evt.StartTime.UTC(), evt.EndTime.UTC(), evt.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading event id: %w", err)
	}

	if err := setCategories(ctx, tx, id, evt.CategoryIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	evt.ID = id
	return nil
}

// UpdateEvent replaces every stored field of evt, including its categories.
func (r *eventRepo) UpdateEvent(ctx context.Context, evt *Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// RowsAffected is 0 for an unchanged row in MariaDB, so existence is
	// checked explicitly.
	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ? FOR UPDATE`, evt.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NewNotFound("event not found")
	}
	if err != nil {
		return fmt.Errorf("locking event: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, image = ?, location = ?,
		        start_time = ?, end_time = ?, created_by = ?
		 WHERE id = ?`,
		evt.Title, evt.Description, evt.Image, evt.Location,
		evt.StartTime.UTC(), evt.EndTime.UTC(), evt.CreatedBy, evt.ID,
	); err != nil {
		return fmt.Errorf("updating event: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_categories WHERE event_id = ?`, evt.ID); err != nil {
		return fmt.Errorf("clearing event categories: %w", err)
	}
	if err := setCategories(ctx, tx, evt.ID, evt.CategoryIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func setCategories(ctx context.Context, tx *sql.Tx, eventID int64, ids []int64) error {
	for pos, catID := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_categories (event_id, category_id, position) VALUES (?, ?, ?)`,
			eventID, catID, pos,
		); err != nil {
			return fmt.Errorf("linking category %d: %w", catID, err)
		}
	}
	return nil
}

// DeleteEvent removes an event; category links cascade.
func (r *eventRepo) DeleteEvent(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("event not found")
	}
	return nil
}

// CountEvents returns the number of stored events.
func (r *eventRepo) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return n, nil
}

// ListCategories returns all categories ordered by id.
func (r *eventRepo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	cats := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// FindCategory returns a category by id.
func (r *eventRepo) FindCategory(ctx context.Context, id int64) (*Category, error) {
	c := &Category{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("category not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying category by id: %w", err)
	}
	return c, nil
}

// ListUsers returns all users ordered by id.
func (r *eventRepo) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, image FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Image); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// FindUser returns a user by id.
func (r *eventRepo) FindUser(ctx context.Context, id int64) (*User, error) {
	u := &User{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name, image FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}
	return u, nil
}

// Import upserts categories, users and events keeping their ids. Category
// links of imported events are replaced.
func (r *eventRepo) Import(ctx context.Context, seed *Seed) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range seed.Categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, name) VALUES (?, ?)
			 ON DUPLICATE KEY UPDATE name = VALUES(name)`, c.ID, c.Name); err != nil {
			return fmt.Errorf("importing category %d: %w", c.ID, err)
		}
	}
	for _, u := range seed.Users {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, name, image) VALUES (?, ?, ?)
			 ON DUPLICATE KEY UPDATE name = VALUES(name), image = VALUES(image)`,
			u.ID, u.Name, u.Image); err != nil {
			return fmt.Errorf("importing user %d: %w", u.ID, err)
		}
	}
	for _, evt := range seed.Events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (id, title, description, image, location, start_time, end_time, created_by)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON DUPLICATE KEY UPDATE title = VALUES(title), description = VALUES(description),
			        image = VALUES(image), location = VALUES(location),
			        start_time = VALUES(start_time), end_time = VALUES(end_time),
			        created_by = VALUES(created_by)`,
			evt.ID, evt.Title, evt.Description, evt.Image, evt.Location,
			evt.StartTime.UTC(), evt.EndTime.UTC(), evt.CreatedBy); err != nil {
			return fmt.Errorf("importing event %d: %w", evt.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM event_categories WHERE event_id = ?`, evt.ID); err != nil {
			return fmt.Errorf("clearing categories of event %d: %w", evt.ID, err)
		}
		if err := setCategories(ctx, tx, evt.ID, evt.CategoryIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

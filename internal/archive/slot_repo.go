package archive

import (
	"context"
	"fmt"
	"time"
)

// Slot is one archived save: the raw snapshot plus identifying metadata.
type Slot struct {
	Name    string
	MapName string
	Frame   uint32
	Digest  []byte
	Data    []byte
	SavedAt time.Time
}

type SlotRepo struct {
	db *DB
}

func NewSlotRepo(db *DB) *SlotRepo {
	return &SlotRepo{db: db}
}

// Put stores a save slot, replacing any previous save under the same name.
func (r *SlotRepo) Put(ctx context.Context, s *Slot) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO save_slots (name, map_name, frame, digest, data, saved_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (name) DO UPDATE
		 SET map_name = EXCLUDED.map_name, frame = EXCLUDED.frame,
		     digest = EXCLUDED.digest, data = EXCLUDED.data,
		     saved_at = now()`,
		s.Name, s.MapName, int64(s.Frame), s.Digest, s.Data,
	)
	if err != nil {
		return fmt.Errorf("put slot %s: %w", s.Name, err)
	}
	return nil
}

// Get loads one slot by name, blob included.
func (r *SlotRepo) Get(ctx context.Context, name string) (*Slot, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT name, map_name, frame, digest, data, saved_at
		 FROM save_slots WHERE name = $1`, name)
	var s Slot
	var frame int64
	if err := row.Scan(&s.Name, &s.MapName, &frame, &s.Digest, &s.Data, &s.SavedAt); err != nil {
		return nil, fmt.Errorf("get slot %s: %w", name, err)
	}
	s.Frame = uint32(frame)
	return &s, nil
}

// List returns slot metadata, newest first, without blobs.
func (r *SlotRepo) List(ctx context.Context) ([]Slot, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT name, map_name, frame, digest, saved_at
		 FROM save_slots ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		var s Slot
		var frame int64
		if err := rows.Scan(&s.Name, &s.MapName, &frame, &s.Digest, &s.SavedAt); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		s.Frame = uint32(frame)
		out = append(out, s)
	}
	return out, rows.Err()
}

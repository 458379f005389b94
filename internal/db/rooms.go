package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/piece"
)

// ErrVersionMismatch is returned by CompareAndSwap when another writer
// committed first. Callers reload and retry.
var ErrVersionMismatch = &errors.Error{
	Code:    errors.ErrConflict,
	Status:  409,
	Message: "room changed since it was read",
}

// Snapshot is a room's piece list at a given version.
// Version 0 means the room has never been written.
type Snapshot struct {
	Pieces  []piece.Piece
	Version int64
}

// RoomSummary is one row of ListRooms.
type RoomSummary struct {
	Room       string `json:"room"`
	PieceCount int    `json:"piece_count"`
	Version    int64  `json:"version"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}

// Rooms is the SQLite-backed room store.
type Rooms struct {
	db  *sql.DB
	now func() time.Time
}

// NewRooms wraps an initialized database.
func NewRooms(db *sql.DB) *Rooms {
	return &Rooms{db: db, now: time.Now}
}

// Load returns the current pieces and version of room. A room that was never
// written loads as an empty list at version 0.
func (r *Rooms) Load(ctx context.Context, room string) (Snapshot, error) {
	var (
		raw     string
		version int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT pieces_json, version FROM rooms WHERE room = ?`, room,
	).Scan(&raw, &version)
	if err == sql.ErrNoRows {
		return Snapshot{Pieces: []piece.Piece{}}, nil
	}
	if err != nil {
		return Snapshot{}, wrapErr(ctx, "load", err)
	}

	pieces, err := decodePieces(raw)
	if err != nil {
		return Snapshot{}, errors.NewInternal(fmt.Errorf("room %q: %w", room, err))
	}
	return Snapshot{Pieces: pieces, Version: version}, nil
}

// CompareAndSwap replaces the piece list of room if its version still equals
// expected, returning the new version. It returns ErrVersionMismatch when the
// row moved on (or was created) since it was read.
func (r *Rooms) CompareAndSwap(ctx context.Context, room string, expected int64, pieces []piece.Piece) (int64, error) {
	data, err := encodePieces(pieces)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	now := r.now().Unix()

	var res sql.Result
	if expected == 0 {
		res, err = r.db.ExecContext(ctx, `
			INSERT INTO rooms (room, pieces_json, version, created_at, updated_at)
			VALUES (?, ?, 1, ?, ?)
			ON CONFLICT(room) DO NOTHING
		`, room, data, now, now)
	} else {
		res, err = r.db.ExecContext(ctx, `
			UPDATE rooms
			SET pieces_json = ?, version = version + 1, updated_at = ?
			WHERE room = ? AND version = ?
		`, data, now, room, expected)
	}
	if err != nil {
		return 0, wrapErr(ctx, "write", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	if n == 0 {
		return 0, ErrVersionMismatch
	}
	return expected + 1, nil
}

// ListRooms returns every stored room, most recently updated first.
func (r *Rooms) ListRooms(ctx context.Context) ([]RoomSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT room, json_array_length(pieces_json), version, created_at, updated_at
		FROM rooms
		ORDER BY updated_at DESC, room ASC
	`)
	if err != nil {
		return nil, wrapErr(ctx, "list rooms", err)
	}
	defer rows.Close()

	out := []RoomSummary{}
	for rows.Next() {
		var s RoomSummary
		if err := rows.Scan(&s.Room, &s.PieceCount, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(ctx, "list rooms", err)
	}
	return out, nil
}

func encodePieces(pieces []piece.Piece) (string, error) {
	if pieces == nil {
		pieces = []piece.Piece{}
	}
	data, err := json.Marshal(pieces)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodePieces(raw string) ([]piece.Piece, error) {
	pieces := []piece.Piece{}
	if raw == "" {
		return pieces, nil
	}
	if err := json.Unmarshal([]byte(raw), &pieces); err != nil {
		return nil, fmt.Errorf("decode pieces: %w", err)
	}
	return pieces, nil
}

// wrapErr maps a driver error to a structured one, reporting cancellation
// separately from genuine failures.
func wrapErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return errors.NewCancelled(op)
	}
	return errors.NewInternal(err)
}

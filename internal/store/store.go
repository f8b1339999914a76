// Package store persists legislative records and versioned alignment scores
// in Postgres. The engine itself never touches this layer; callers load a
// batch, run the engine, and save the output here.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/opencivic/alignator/models"
)

// Store wraps a Postgres connection.
type Store struct {
	DB *sql.DB
}

// NewWithDSN opens and pings a Postgres connection.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.DB.Close() }

// UpsertMembers inserts or updates member records. Party label is the only
// field corrected on conflict; identity fields stay as ingested.
func (s *Store) UpsertMembers(ctx context.Context, members []models.Member) error {
	for _, m := range members {
		_, err := s.DB.ExecContext(ctx, `
			INSERT INTO members (id, name, party, jurisdiction, active_from, active_to)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET party = EXCLUDED.party`,
			m.ID, m.Name, nullIfEmpty(m.Party), m.Jurisdiction, m.ActiveFrom, m.ActiveTo)
		if err != nil {
			return fmt.Errorf("upserting member %s: %w", m.ID, err)
		}
	}
	return nil
}

// SaveDocuments stores documents and their co-sponsorship rows.
func (s *Store) SaveDocuments(ctx context.Context, docs []models.Document) error {
	for _, d := range docs {
		_, err := s.DB.ExecContext(ctx, `
			INSERT INTO documents (id, sponsor_id, body, ts, topics)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING`,
			d.ID, d.Sponsor, d.Text, d.Timestamp, pq.Array(d.Topics))
		if err != nil {
			return fmt.Errorf("saving document %s: %w", d.ID, err)
		}
		for _, co := range d.CoSponsors {
			_, err := s.DB.ExecContext(ctx, `
				INSERT INTO document_sponsors (document_id, member_id)
				VALUES ($1, $2) ON CONFLICT DO NOTHING`, d.ID, co)
			if err != nil {
				return fmt.Errorf("saving cosponsor %s on %s: %w", co, d.ID, err)
			}
		}
	}
	return nil
}

// SaveVotes stores roll calls and every recorded ballot.
func (s *Store) SaveVotes(ctx context.Context, votes []models.Vote) error {
	for _, v := range votes {
		_, err := s.DB.ExecContext(ctx, `
			INSERT INTO votes (id, bill_id, ts)
			VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			v.ID, nullIfEmpty(v.BillID), v.Timestamp)
		if err != nil {
			return fmt.Errorf("saving vote %s: %w", v.ID, err)
		}
		for member, val := range v.Ballots {
			_, err := s.DB.ExecContext(ctx, `
				INSERT INTO vote_ballots (vote_id, member_id, value)
				VALUES ($1, $2, $3)
				ON CONFLICT (vote_id, member_id) DO UPDATE SET value = EXCLUDED.value`,
				v.ID, member, string(val))
			if err != nil {
				return fmt.Errorf("saving ballot %s/%s: %w", v.ID, member, err)
			}
		}
	}
	return nil
}

// ListMembers returns all known members ordered by id.
func (s *Store) ListMembers(ctx context.Context) ([]models.Member, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, COALESCE(party, ''), jurisdiction, active_from, active_to
		FROM members ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Member
	for rows.Next() {
		var m models.Member
		var activeTo sql.NullTime
		if err := rows.Scan(&m.ID, &m.Name, &m.Party, &m.Jurisdiction, &m.ActiveFrom, &activeTo); err != nil {
			return nil, err
		}
		if activeTo.Valid {
			t := activeTo.Time
			m.ActiveTo = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LoadBatch assembles the in-memory record set for one window. Documents and
// votes are restricted to [start, end); members are returned unfiltered since
// the engine applies its own active-range check.
func (s *Store) LoadBatch(ctx context.Context, window models.Window) (models.Batch, error) {
	var batch models.Batch
	members, err := s.ListMembers(ctx)
	if err != nil {
		return batch, fmt.Errorf("loading members: %w", err)
	}
	batch.Members = members

	docRows, err := s.DB.QueryContext(ctx, `
		SELECT id, sponsor_id, body, ts, topics FROM documents
		WHERE ts >= $1 AND ts < $2 ORDER BY id`, window.Start, window.End)
	if err != nil {
		return batch, fmt.Errorf("loading documents: %w", err)
	}
	defer docRows.Close()
	for docRows.Next() {
		var d models.Document
		if err := docRows.Scan(&d.ID, &d.Sponsor, &d.Text, &d.Timestamp, pq.Array(&d.Topics)); err != nil {
			return batch, err
		}
		batch.Documents = append(batch.Documents, d)
	}
	if err := docRows.Err(); err != nil {
		return batch, err
	}
	for i, d := range batch.Documents {
		cos, err := s.cosponsors(ctx, d.ID)
		if err != nil {
			return batch, err
		}
		batch.Documents[i].CoSponsors = cos
	}

	voteRows, err := s.DB.QueryContext(ctx, `
		SELECT id, COALESCE(bill_id, ''), ts FROM votes
		WHERE ts >= $1 AND ts < $2 ORDER BY id`, window.Start, window.End)
	if err != nil {
		return batch, fmt.Errorf("loading votes: %w", err)
	}
	defer voteRows.Close()
	for voteRows.Next() {
		var v models.Vote
		if err := voteRows.Scan(&v.ID, &v.BillID, &v.Timestamp); err != nil {
			return batch, err
		}
		batch.Votes = append(batch.Votes, v)
	}
	if err := voteRows.Err(); err != nil {
		return batch, err
	}
	for i, v := range batch.Votes {
		ballots, err := s.ballots(ctx, v.ID)
		if err != nil {
			return batch, err
		}
		batch.Votes[i].Ballots = ballots
	}
	return batch, nil
}

func (s *Store) cosponsors(ctx context.Context, docID string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT member_id FROM document_sponsors WHERE document_id = $1 ORDER BY member_id`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) ballots(ctx context.Context, voteID string) (map[string]models.VoteValue, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT member_id, value FROM vote_ballots WHERE vote_id = $1`, voteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]models.VoteValue)
	for rows.Next() {
		var id, val string
		if err := rows.Scan(&id, &val); err != nil {
			return nil, err
		}
		out[id] = models.VoteValue(val)
	}
	return out, rows.Err()
}

// CreateRun records a new scoring run in the running state.
func (s *Store) CreateRun(ctx context.Context, window models.Window) (string, error) {
	id := uuid.NewString()
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO runs (id, window_start, window_end, status, started_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		id, window.Start, window.End, models.RunStatusRunning)
	if err != nil {
		return "", fmt.Errorf("creating run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run finished with the given status.
func (s *Store) FinishRun(ctx context.Context, id, status string, runErr error) error {
	var msg sql.NullString
	if runErr != nil {
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	_, err := s.DB.ExecContext(ctx, `
		UPDATE runs SET status = $2, error = $3, finished_at = NOW() WHERE id = $1`,
		id, status, msg)
	return err
}

// GetRun returns one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (models.Run, error) {
	var r models.Run
	var errMsg sql.NullString
	var finished sql.NullTime
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, window_start, window_end, status, error, started_at, finished_at
		FROM runs WHERE id = $1`, id).
		Scan(&r.ID, &r.Window.Start, &r.Window.End, &r.Status, &errMsg, &r.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return r, models.ErrRunNotFound
	}
	if err != nil {
		return r, err
	}
	r.Error = errMsg.String
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return r, nil
}

// SaveScores appends one run's output. Scores are versioned, never updated:
// each row carries its run id and computation timestamp.
func (s *Store) SaveScores(ctx context.Context, scores []models.AlignmentScore) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, sc := range scores {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO alignment_scores
				(id, member_id, axis, window_start, window_end, value, confidence, label,
				 text_value, text_confidence, coalition_value, coalition_confidence,
				 vote_value, vote_confidence, run_id, computed_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			uuid.NewString(), sc.MemberID, sc.Axis, sc.Window.Start, sc.Window.End,
			sc.Value, sc.Confidence, sc.Label,
			sc.Text.Value, sc.Text.Confidence,
			sc.Coalition.Value, sc.Coalition.Confidence,
			sc.Vote.Value, sc.Vote.Confidence,
			sc.RunID, sc.ComputedAt)
		if err != nil {
			return fmt.Errorf("saving score %s/%s: %w", sc.MemberID, sc.Axis, err)
		}
	}
	return tx.Commit()
}

// LatestScores returns the most recent score version per (member, axis),
// optionally restricted to one axis.
func (s *Store) LatestScores(ctx context.Context, axis string) ([]models.AlignmentScore, error) {
	query := `
		SELECT DISTINCT ON (member_id, axis)
			member_id, axis, window_start, window_end, value, confidence, label,
			text_value, text_confidence, coalition_value, coalition_confidence,
			vote_value, vote_confidence, run_id, computed_at
		FROM alignment_scores`
	args := []interface{}{}
	if axis != "" {
		query += ` WHERE axis = $1`
		args = append(args, axis)
	}
	query += ` ORDER BY member_id, axis, computed_at DESC`
	return s.queryScores(ctx, query, args...)
}

// MemberScores returns the full score history for one member, newest first.
func (s *Store) MemberScores(ctx context.Context, memberID string) ([]models.AlignmentScore, error) {
	return s.queryScores(ctx, `
		SELECT member_id, axis, window_start, window_end, value, confidence, label,
			text_value, text_confidence, coalition_value, coalition_confidence,
			vote_value, vote_confidence, run_id, computed_at
		FROM alignment_scores WHERE member_id = $1
		ORDER BY computed_at DESC, axis`, memberID)
}

func (s *Store) queryScores(ctx context.Context, query string, args ...interface{}) ([]models.AlignmentScore, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.AlignmentScore
	for rows.Next() {
		var sc models.AlignmentScore
		if err := rows.Scan(
			&sc.MemberID, &sc.Axis, &sc.Window.Start, &sc.Window.End,
			&sc.Value, &sc.Confidence, &sc.Label,
			&sc.Text.Value, &sc.Text.Confidence,
			&sc.Coalition.Value, &sc.Coalition.Confidence,
			&sc.Vote.Value, &sc.Vote.Confidence,
			&sc.RunID, &sc.ComputedAt); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// PartyScore is a per-party rollup of the latest member scores on one axis.
type PartyScore struct {
	Party          string  `json:"party"`
	Axis           string  `json:"axis"`
	Members        int     `json:"members"`
	MeanValue      float64 `json:"mean_value"`
	MeanConfidence float64 `json:"mean_confidence"`
}

// PartyScores aggregates the latest score per member into party means.
func (s *Store) PartyScores(ctx context.Context, axis string) ([]PartyScore, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT COALESCE(m.party, 'independent') AS party,
			COUNT(*), AVG(latest.value), AVG(latest.confidence)
		FROM (
			SELECT DISTINCT ON (member_id) member_id, value, confidence
			FROM alignment_scores WHERE axis = $1
			ORDER BY member_id, computed_at DESC
		) latest
		JOIN members m ON m.id = latest.member_id
		GROUP BY party ORDER BY party`, axis)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PartyScore
	for rows.Next() {
		p := PartyScore{Axis: axis}
		if err := rows.Scan(&p.Party, &p.Members, &p.MeanValue, &p.MeanConfidence); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LatestRunTime returns when the most recent successful run started, or nil.
func (s *Store) LatestRunTime(ctx context.Context) (*time.Time, error) {
	var t sql.NullTime
	err := s.DB.QueryRowContext(ctx, `
		SELECT MAX(started_at) FROM runs WHERE status = $1`, models.RunStatusSucceeded).Scan(&t)
	if err != nil {
		return nil, err
	}
	if !t.Valid {
		return nil, nil
	}
	out := t.Time
	return &out, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

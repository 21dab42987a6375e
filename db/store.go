// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/quota-vote/models"
	"github.com/danielhkuo/quota-vote/store"
)

// sqliteParams serializes writers at BEGIN so concurrent vote
// transactions queue on the busy timeout instead of failing on upgrade.
const sqliteParams = "_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"

// Store is the SQL implementation of store.Store.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the database, verifies the connection and creates the schema.
func Open(ctx context.Context, dbType, url string) (*Store, error) {
	d, err := dialectFor(dbType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("database URL is required")
	}

	dsn := url
	if d.name == TypeSQLite && !strings.Contains(dsn, "_txlock") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + sqliteParams
	}

	sqlDB, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", d.name, err)
	}
	if d.name == TypeSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s db: %w", d.name, err)
	}

	if err := CreateSchema(sqlDB, d.name); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &Store{db: sqlDB, dialect: d}, nil
}

// DB exposes the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	return &tx{tx: sqlTx, d: s.dialect}, nil
}

type tx struct {
	tx *sql.Tx
	d  dialect
}

func (t *tx) Commit() error {
	return classify(t.tx.Commit())
}

func (t *tx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (t *tx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.d.rebind(query), args...)
}

func (t *tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := t.tx.ExecContext(ctx, t.d.rebind(query), args...)
	return res, classify(err)
}

const campaignColumns = `id, title, description, state, start_time, end_time, total_votes, event_seq, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row scanner) (models.Campaign, error) {
	var c models.Campaign
	var start sql.NullTime
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.State, &start, &c.EndTime, &c.TotalVotes, &c.Seq, &c.CreatedAt)
	if err != nil {
		return models.Campaign{}, classify(err)
	}
	if start.Valid {
		st := start.Time.UTC()
		c.StartTime = &st
	}
	c.EndTime = c.EndTime.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func (t *tx) Campaign(ctx context.Context, id string) (models.Campaign, error) {
	row := t.queryRow(ctx, `SELECT `+campaignColumns+` FROM campaign WHERE id = ?`+t.d.forUpdate, id)
	c, err := scanCampaign(row)
	if err != nil {
		return models.Campaign{}, fmt.Errorf("campaign %s: %w", id, err)
	}
	return c, nil
}

func (t *tx) CampaignWithCandidates(ctx context.Context, id string) (models.Campaign, error) {
	c, err := t.Campaign(ctx, id)
	if err != nil {
		return models.Campaign{}, err
	}

	rows, err := t.tx.QueryContext(ctx, t.d.rebind(`
		SELECT id, campaign_id, name, position, vote_count
		FROM candidate WHERE campaign_id = ?
		ORDER BY position
	`), id)
	if err != nil {
		return models.Campaign{}, fmt.Errorf("query candidates: %w", classify(err))
	}
	defer rows.Close()

	c.Candidates = []models.Candidate{}
	for rows.Next() {
		var cand models.Candidate
		if err := rows.Scan(&cand.ID, &cand.CampaignID, &cand.Name, &cand.Position, &cand.VoteCount); err != nil {
			return models.Campaign{}, fmt.Errorf("scan candidate: %w", classify(err))
		}
		c.Candidates = append(c.Candidates, cand)
	}
	if err := rows.Err(); err != nil {
		return models.Campaign{}, fmt.Errorf("iterate candidates: %w", classify(err))
	}
	return c, nil
}

func (t *tx) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+campaignColumns+` FROM campaign ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", classify(err))
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", classify(err))
	}
	return campaigns, nil
}

func (t *tx) InsertCampaign(ctx context.Context, c models.Campaign) error {
	_, err := t.exec(ctx, `
		INSERT INTO campaign (id, title, description, state, start_time, end_time, total_votes, event_seq, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?)
	`, c.ID, c.Title, c.Description, c.State, nullTime(c.StartTime), c.EndTime.UTC(), c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (t *tx) SetCampaignState(ctx context.Context, id, state string, startTime *time.Time) (int64, error) {
	var row *sql.Row
	if startTime != nil {
		row = t.queryRow(ctx, `
			UPDATE campaign SET state = ?, start_time = ?, event_seq = event_seq + 1
			WHERE id = ? RETURNING event_seq
		`, state, startTime.UTC(), id)
	} else {
		row = t.queryRow(ctx, `
			UPDATE campaign SET state = ?, event_seq = event_seq + 1
			WHERE id = ? RETURNING event_seq
		`, state, id)
	}

	var seq int64
	if err := row.Scan(&seq); err != nil {
		return 0, fmt.Errorf("set campaign state: %w", classify(err))
	}
	return seq, nil
}

func (t *tx) UpdateCampaign(ctx context.Context, id, title, description string, endTime time.Time) (int64, error) {
	var seq int64
	err := t.queryRow(ctx, `
		UPDATE campaign SET title = ?, description = ?, end_time = ?, event_seq = event_seq + 1
		WHERE id = ? RETURNING event_seq
	`, title, description, endTime.UTC(), id).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("update campaign: %w", classify(err))
	}
	return seq, nil
}

func (t *tx) BumpCampaignSeq(ctx context.Context, id string) (int64, error) {
	var seq int64
	err := t.queryRow(ctx, `
		UPDATE campaign SET event_seq = event_seq + 1 WHERE id = ? RETURNING event_seq
	`, id).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("bump campaign seq: %w", classify(err))
	}
	return seq, nil
}

func (t *tx) DeleteCampaign(ctx context.Context, id string) error {
	if _, err := t.exec(ctx, `DELETE FROM candidate WHERE campaign_id = ?`, id); err != nil {
		return fmt.Errorf("delete candidates: %w", err)
	}
	res, err := t.exec(ctx, `DELETE FROM campaign WHERE id = ? AND total_votes = 0`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	return requireRow(res, "delete campaign")
}

func (t *tx) Candidate(ctx context.Context, campaignID, candidateID string) (models.Candidate, error) {
	var cand models.Candidate
	err := t.queryRow(ctx, `
		SELECT id, campaign_id, name, position, vote_count
		FROM candidate WHERE id = ? AND campaign_id = ?
	`, candidateID, campaignID).Scan(&cand.ID, &cand.CampaignID, &cand.Name, &cand.Position, &cand.VoteCount)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("candidate %s: %w", candidateID, classify(err))
	}
	return cand, nil
}

func (t *tx) InsertCandidate(ctx context.Context, c models.Candidate) error {
	_, err := t.exec(ctx, `
		INSERT INTO candidate (id, campaign_id, name, position, vote_count)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM candidate WHERE campaign_id = ?), 0)
	`, c.ID, c.CampaignID, c.Name, c.CampaignID)
	if err != nil {
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

func (t *tx) RenameCandidate(ctx context.Context, campaignID, candidateID, name string) error {
	res, err := t.exec(ctx, `UPDATE candidate SET name = ? WHERE id = ? AND campaign_id = ?`, name, candidateID, campaignID)
	if err != nil {
		return fmt.Errorf("rename candidate: %w", err)
	}
	return requireRow(res, "rename candidate")
}

func (t *tx) DeleteCandidate(ctx context.Context, campaignID, candidateID string) error {
	res, err := t.exec(ctx, `DELETE FROM candidate WHERE id = ? AND campaign_id = ? AND vote_count = 0`, candidateID, campaignID)
	if err != nil {
		return fmt.Errorf("delete candidate: %w", err)
	}
	return requireRow(res, "delete candidate")
}

func (t *tx) Elector(ctx context.Context, id string) (models.Elector, error) {
	var e models.Elector
	err := t.queryRow(ctx, `
		SELECT id, code, name, quota, active, created_at FROM elector WHERE id = ?
	`, id).Scan(&e.ID, &e.Code, &e.Name, &e.Quota, &e.Active, &e.CreatedAt)
	if err != nil {
		return models.Elector{}, fmt.Errorf("elector %s: %w", id, classify(err))
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

func (t *tx) InsertElector(ctx context.Context, e models.Elector) error {
	_, err := t.exec(ctx, `
		INSERT INTO elector (id, code, name, quota, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.Code, e.Name, e.Quota, e.Active, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert elector: %w", err)
	}
	return nil
}

func (t *tx) SetElectorActive(ctx context.Context, id string, active bool) error {
	res, err := t.exec(ctx, `UPDATE elector SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("set elector active: %w", err)
	}
	return requireRow(res, "set elector active")
}

func (t *tx) ListElectors(ctx context.Context) ([]models.Elector, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id, code, name, quota, active, created_at FROM elector ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query electors: %w", classify(err))
	}
	defer rows.Close()

	electors := []models.Elector{}
	for rows.Next() {
		var e models.Elector
		if err := rows.Scan(&e.ID, &e.Code, &e.Name, &e.Quota, &e.Active, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan elector: %w", classify(err))
		}
		e.CreatedAt = e.CreatedAt.UTC()
		electors = append(electors, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate electors: %w", classify(err))
	}
	return electors, nil
}

func (t *tx) ElectorUsage(ctx context.Context, campaignID string) ([]models.ElectorUsage, error) {
	rows, err := t.tx.QueryContext(ctx, t.d.rebind(`
		SELECT e.id, e.code, e.name, e.quota, COALESCE(l.consumed, 0)
		FROM elector e
		LEFT JOIN quota_ledger l ON l.elector_id = e.id AND l.campaign_id = ?
		WHERE e.active = ?
		ORDER BY e.code
	`), campaignID, true)
	if err != nil {
		return nil, fmt.Errorf("query elector usage: %w", classify(err))
	}
	defer rows.Close()

	usage := []models.ElectorUsage{}
	for rows.Next() {
		var u models.ElectorUsage
		if err := rows.Scan(&u.ElectorID, &u.Code, &u.Name, &u.Quota, &u.Used); err != nil {
			return nil, fmt.Errorf("scan elector usage: %w", classify(err))
		}
		u.Available = u.Quota - u.Used
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate elector usage: %w", classify(err))
	}
	return usage, nil
}

func (t *tx) LedgerConsumed(ctx context.Context, campaignID, electorID string) (int, error) {
	var consumed int
	err := t.queryRow(ctx, `
		SELECT consumed FROM quota_ledger WHERE campaign_id = ? AND elector_id = ?
	`, campaignID, electorID).Scan(&consumed)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read ledger: %w", classify(err))
	}
	return consumed, nil
}

func (t *tx) ConsumeQuota(ctx context.Context, campaignID, electorID string, quota int) (int, error) {
	var consumed int
	err := t.queryRow(ctx, `
		INSERT INTO quota_ledger (campaign_id, elector_id, consumed)
		VALUES (?, ?, 1)
		ON CONFLICT (campaign_id, elector_id)
		DO UPDATE SET consumed = quota_ledger.consumed + 1
		WHERE quota_ledger.consumed < ?
		RETURNING consumed
	`, campaignID, electorID, quota).Scan(&consumed)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("consume quota: %w: ledger at quota", store.ErrWriteConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("consume quota: %w", classify(err))
	}
	return consumed, nil
}

func (t *tx) InsertBallot(ctx context.Context, b models.Ballot) error {
	_, err := t.exec(ctx, `
		INSERT INTO ballot (id, campaign_id, elector_id, candidate_id, cast_at, ip_hash, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.CampaignID, b.ElectorID, b.CandidateID, b.CastAt.UTC(), b.IPHash, b.UserAgent)
	if err != nil {
		return fmt.Errorf("insert ballot: %w", err)
	}
	return nil
}

func (t *tx) CountBallots(ctx context.Context, campaignID, electorID string) (int, error) {
	var n int
	err := t.queryRow(ctx, `
		SELECT COUNT(*) FROM ballot WHERE campaign_id = ? AND elector_id = ?
	`, campaignID, electorID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count ballots: %w", classify(err))
	}
	return n, nil
}

func (t *tx) IncrementTally(ctx context.Context, campaignID, candidateID string) (int64, int64, int64, error) {
	var candidateVotes int64
	err := t.queryRow(ctx, `
		UPDATE candidate SET vote_count = vote_count + 1
		WHERE id = ? AND campaign_id = ? RETURNING vote_count
	`, candidateID, campaignID).Scan(&candidateVotes)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("increment candidate: %w", classify(err))
	}

	var total, seq int64
	err = t.queryRow(ctx, `
		UPDATE campaign SET total_votes = total_votes + 1, event_seq = event_seq + 1
		WHERE id = ? RETURNING total_votes, event_seq
	`, campaignID).Scan(&total, &seq)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("increment campaign: %w", classify(err))
	}
	return candidateVotes, total, seq, nil
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/dao-reconciler/internal/models"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
)

// dialect captures the SQL differences between the supported databases
type dialect struct {
	name string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
	// appended to row lookups inside transactions
	lockSuffix string
}

var (
	sqliteDialect   = dialect{name: "sqlite"}
	postgresDialect = dialect{name: "postgres", numbered: true, lockSuffix: " FOR UPDATE"}
)

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// sqlStore holds the query code shared by the SQLite and PostgreSQL stores
type sqlStore struct {
	db         *sql.DB
	dialect    dialect
	logger     *logrus.Logger
	migrations []*Migration
}

func (s *sqlStore) rebind(query string) string {
	if !s.dialect.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.WithField("database", s.dialect.name).Info("Database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *sqlStore) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Migrate runs database migrations
func (s *sqlStore) Migrate() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	s.logger.WithField("database", s.dialect.name).Info("Starting database migrations")

	for _, migration := range s.migrations {
		s.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Debug("Applying migration")

		if _, err := s.db.Exec(migration.SQL); err != nil {
			return utils.WrapError(utils.ErrCodeDatabase,
				fmt.Sprintf("Migration %s failed", migration.Version), err)
		}
	}

	s.logger.Info("Database migrations completed")
	return nil
}

// SaveCommunity inserts or replaces a community
func (s *sqlStore) SaveCommunity(ctx context.Context, c *models.Community) error {
	if c.ID == "" {
		c.ID = utils.GenerateID()
	}
	if c.Status == "" {
		c.Status = models.CommunityStatusActive
	}
	stampTimes(&c.CreatedAt, &c.UpdatedAt)

	config, err := encodeJSON(c.Config, "{}")
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to marshal community config", err)
	}

	query := `
		INSERT INTO communities
		(id, on_chain_id, name, description, config, is_active, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			on_chain_id = excluded.on_chain_id,
			name = excluded.name,
			description = excluded.description,
			config = excluded.config,
			is_active = excluded.is_active,
			status = excluded.status,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, s.rebind(query),
		c.ID, c.OnChainID, c.Name, c.Description, config, c.IsActive, c.Status,
		c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to save community", err)
	}
	return nil
}

// SaveMember inserts or replaces a membership
func (s *sqlStore) SaveMember(ctx context.Context, m *models.Member) error {
	if m.ID == "" {
		m.ID = utils.GenerateID()
	}
	if m.Role == "" {
		m.Role = models.RoleMember
	}
	if m.Status == "" {
		m.Status = models.MemberStatusPending
	}
	stampTimes(&m.CreatedAt, &m.UpdatedAt)
	if m.JoinedAt.IsZero() {
		m.JoinedAt = m.CreatedAt
	}

	query := `
		INSERT INTO members
		(id, user_id, community_id, role, status, joined_at, approved_at, approved_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			role = excluded.role,
			status = excluded.status,
			approved_at = excluded.approved_at,
			approved_by = excluded.approved_by,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		m.ID, m.UserID, m.CommunityID, m.Role, m.Status, m.JoinedAt.UTC(),
		nullableTime(m.ApprovedAt), nullableString(m.ApprovedBy),
		m.CreatedAt.UTC(), m.UpdatedAt.UTC())
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to save member", err)
	}
	return nil
}

// SaveQuestion inserts or replaces a voting question
func (s *sqlStore) SaveQuestion(ctx context.Context, q *models.VotingQuestion) error {
	if q.ID == "" {
		q.ID = utils.GenerateID()
	}
	if q.Status == "" {
		q.Status = models.QuestionStatusActive
	}
	stampTimes(&q.CreatedAt, &q.UpdatedAt)

	options, err := encodeJSON(q.Options, "[]")
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to marshal question options", err)
	}

	query := `
		INSERT INTO voting_questions
		(id, on_chain_id, community_id, title, description, options, deadline, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			on_chain_id = excluded.on_chain_id,
			title = excluded.title,
			description = excluded.description,
			options = excluded.options,
			deadline = excluded.deadline,
			status = excluded.status,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, s.rebind(query),
		q.ID, q.OnChainID, q.CommunityID, q.Title, q.Description, options,
		q.Deadline.UTC(), q.Status, q.CreatedAt.UTC(), q.UpdatedAt.UTC())
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to save question", err)
	}
	return nil
}

// SaveVote inserts or replaces a vote
func (s *sqlStore) SaveVote(ctx context.Context, v *models.Vote) error {
	if v.ID == "" {
		v.ID = utils.GenerateID()
	}
	if v.Status == "" {
		v.Status = models.VoteStatusValid
	}
	stampTimes(&v.CreatedAt, &v.UpdatedAt)

	voteData, err := encodeJSON(v.VoteData, "[]")
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to marshal vote data", err)
	}

	query := `
		INSERT INTO votes
		(id, question_id, user_id, vote_data, signature, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			vote_data = excluded.vote_data,
			signature = excluded.signature,
			status = excluded.status,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, s.rebind(query),
		v.ID, v.QuestionID, v.UserID, voteData, v.Signature, v.Status,
		v.CreatedAt.UTC(), v.UpdatedAt.UTC())
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to save vote", err)
	}
	return nil
}

// SaveUser inserts or replaces a user
func (s *sqlStore) SaveUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = utils.GenerateID()
	}
	if u.Status == "" {
		u.Status = models.UserStatusActive
	}
	stampTimes(&u.CreatedAt, &u.UpdatedAt)

	query := `
		INSERT INTO users
		(id, wallet_address, username, email, is_active, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			wallet_address = excluded.wallet_address,
			username = excluded.username,
			email = excluded.email,
			is_active = excluded.is_active,
			status = excluded.status,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		u.ID, utils.NormalizeAddress(u.WalletAddress), u.Username, u.Email, u.IsActive, u.Status,
		u.CreatedAt.UTC(), u.UpdatedAt.UTC())
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to save user", err)
	}
	return nil
}

const (
	communityColumns = `c.id, c.on_chain_id, c.name, c.description, c.config, c.is_active, c.status, c.created_at, c.updated_at`
	memberColumns    = `m.id, m.user_id, m.community_id, m.role, m.status, m.joined_at, m.approved_at, m.approved_by, m.created_at, m.updated_at`
	questionColumns  = `q.id, q.on_chain_id, q.community_id, q.title, q.description, q.options, q.deadline, q.status, q.created_at, q.updated_at`
	voteColumns      = `v.id, v.question_id, v.user_id, v.vote_data, v.signature, v.status, v.created_at, v.updated_at`
	userColumns      = `u.id, u.wallet_address, u.username, u.email, u.is_active, u.status, u.created_at, u.updated_at`
)

// GetCommunities returns every community ordered by id
func (s *sqlStore) GetCommunities(ctx context.Context) ([]*models.Community, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+communityColumns+` FROM communities c ORDER BY c.id`)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to query communities", err)
	}
	defer rows.Close()

	var communities []*models.Community
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, err
		}
		communities = append(communities, c)
	}
	return communities, rows.Err()
}

// GetMembers returns every membership with its community on-chain id and wallet address
func (s *sqlStore) GetMembers(ctx context.Context) ([]*models.Member, error) {
	query := `
		SELECT ` + memberColumns + `, COALESCE(c.on_chain_id, ''), COALESCE(u.wallet_address, '')
		FROM members m
		LEFT JOIN communities c ON c.id = m.community_id
		LEFT JOIN users u ON u.id = m.user_id
		ORDER BY m.id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to query members", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m, err := scanMember(rows, &joined{})
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetQuestions returns every voting question with its community on-chain id
func (s *sqlStore) GetQuestions(ctx context.Context) ([]*models.VotingQuestion, error) {
	query := `
		SELECT ` + questionColumns + `, COALESCE(c.on_chain_id, '')
		FROM voting_questions q
		LEFT JOIN communities c ON c.id = q.community_id
		ORDER BY q.id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to query voting questions", err)
	}
	defer rows.Close()

	var questions []*models.VotingQuestion
	for rows.Next() {
		q, err := scanQuestion(rows, &joined{})
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetVotes returns every vote with its question on-chain id and voter wallet address
func (s *sqlStore) GetVotes(ctx context.Context) ([]*models.Vote, error) {
	query := `
		SELECT ` + voteColumns + `, COALESCE(q.on_chain_id, ''), COALESCE(u.wallet_address, '')
		FROM votes v
		LEFT JOIN voting_questions q ON q.id = v.question_id
		LEFT JOIN users u ON u.id = v.user_id
		ORDER BY v.id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to query votes", err)
	}
	defer rows.Close()

	var votes []*models.Vote
	for rows.Next() {
		v, err := scanVote(rows, &joined{})
		if err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// GetUsers returns every user ordered by id
func (s *sqlStore) GetUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.id`)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to query users", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// BeginTx starts a transaction
func (s *sqlStore) BeginTx(ctx context.Context) (Tx, error) {
	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to begin transaction", err)
	}
	return &sqlTx{tx: tx, store: s}, nil
}

// SaveAuditEvent appends an audit event
func (s *sqlStore) SaveAuditEvent(ctx context.Context, e *models.AuditEvent) error {
	if e.ID == "" {
		e.ID = utils.GenerateID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	details, err := encodeJSON(e.Details, "{}")
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to marshal audit details", err)
	}

	query := `INSERT INTO audit_events (id, event, level, category, details, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, s.rebind(query),
		e.ID, e.Event, e.Level, e.Category, details, e.CreatedAt.UTC())
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to save audit event", err)
	}
	return nil
}

// GetAuditEvents returns audit events newest first
func (s *sqlStore) GetAuditEvents(ctx context.Context, filter models.AuditFilter) ([]*models.AuditEvent, error) {
	query := `SELECT id, event, level, category, details, created_at FROM audit_events WHERE 1=1`
	var args []interface{}

	if filter.Event != nil {
		query += ` AND event = ?`
		args = append(args, *filter.Event)
	}
	if filter.Level != nil {
		query += ` AND level = ?`
		args = append(args, *filter.Level)
	}
	if filter.Category != nil {
		query += ` AND category = ?`
		args = append(args, *filter.Category)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}

	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to query audit events", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		var (
			e       models.AuditEvent
			details sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Event, &e.Level, &e.Category, &details, &e.CreatedAt); err != nil {
			return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to scan audit event", err)
		}
		if err := decodeJSON(details.String, &e.Details); err != nil {
			return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to unmarshal audit details", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// GetStorageStats returns row counts for every table
func (s *sqlStore) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	stats := &StorageStats{DatabaseType: s.dialect.name}

	counts := []struct {
		table Table
		dest  *int64
	}{
		{TableCommunities, &stats.Communities},
		{TableMembers, &stats.Members},
		{TableQuestions, &stats.Questions},
		{TableVotes, &stats.Votes},
		{TableUsers, &stats.Users},
		{TableAuditEvents, &stats.AuditEvents},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+string(c.table)).Scan(c.dest); err != nil {
			return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to count "+string(c.table), err)
		}
	}

	if stats.AuditEvents > 0 {
		var latest time.Time
		err := s.db.QueryRowContext(ctx,
			`SELECT created_at FROM audit_events ORDER BY created_at DESC LIMIT 1`).Scan(&latest)
		if err == nil {
			stats.LatestAudit = &latest
		}
	}

	return stats, nil
}

// update builds an UPDATE statement from whitelisted columns
func (s *sqlStore) update(ctx context.Context, q queryer, table Table, fields, where Fields) (int64, error) {
	allowed, ok := updatableColumns[table]
	if !ok {
		return 0, utils.NewAppError(utils.ErrCodeValidation, "Table is not updatable", string(table))
	}
	if len(fields) == 0 {
		return 0, utils.NewAppError(utils.ErrCodeValidation, "No fields to update", string(table))
	}
	if len(where) == 0 {
		return 0, utils.NewAppError(utils.ErrCodeValidation, "Update requires a where clause", string(table))
	}

	setCols, err := sortedColumns(fields, allowed)
	if err != nil {
		return 0, err
	}
	whereCols, err := sortedColumns(where, allowed)
	if err != nil {
		return 0, err
	}

	sets := make([]string, 0, len(setCols))
	args := make([]interface{}, 0, len(setCols)+len(whereCols))
	for _, col := range setCols {
		v, err := columnValue(fields[col])
		if err != nil {
			return 0, utils.WrapError(utils.ErrCodeDatabase, "Failed to encode column "+col, err)
		}
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	conds := make([]string, 0, len(whereCols))
	for _, col := range whereCols {
		v, err := columnValue(where[col])
		if err != nil {
			return 0, utils.WrapError(utils.ErrCodeDatabase, "Failed to encode column "+col, err)
		}
		conds = append(conds, col+" = ?")
		args = append(args, v)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), strings.Join(conds, " AND "))
	res, err := q.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, utils.WrapError(utils.ErrCodeDatabase, "Failed to update "+string(table), err)
	}
	return res.RowsAffected()
}

func sortedColumns(fields Fields, allowed map[string]bool) ([]string, error) {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !allowed[col] {
			return nil, utils.NewAppError(utils.ErrCodeValidation, "Unknown column", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols, nil
}

// columnValue converts a Go value to what the driver stores
func columnValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC(), nil
	case *time.Time:
		return nullableTime(val), nil
	case map[string]interface{}, []string, []int, []interface{}:
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	default:
		return v, nil
	}
}

// sqlTx implements Tx on top of *sql.Tx
type sqlTx struct {
	tx    *sql.Tx
	store *sqlStore
}

func (t *sqlTx) GetCommunity(ctx context.Context, id string) (*models.Community, error) {
	query := t.store.rebind(`SELECT `+communityColumns+` FROM communities c WHERE c.id = ?`) + t.store.dialect.lockSuffix
	c, err := scanCommunity(t.tx.QueryRowContext(ctx, query, id))
	return c, notFoundIsNil(err)
}

func (t *sqlTx) GetMember(ctx context.Context, id string) (*models.Member, error) {
	query := t.store.rebind(`SELECT `+memberColumns+` FROM members m WHERE m.id = ?`) + t.store.dialect.lockSuffix
	m, err := scanMember(t.tx.QueryRowContext(ctx, query, id), nil)
	return m, notFoundIsNil(err)
}

func (t *sqlTx) GetQuestion(ctx context.Context, id string) (*models.VotingQuestion, error) {
	query := t.store.rebind(`SELECT `+questionColumns+` FROM voting_questions q WHERE q.id = ?`) + t.store.dialect.lockSuffix
	q, err := scanQuestion(t.tx.QueryRowContext(ctx, query, id), nil)
	return q, notFoundIsNil(err)
}

func (t *sqlTx) GetVote(ctx context.Context, id string) (*models.Vote, error) {
	query := t.store.rebind(`SELECT `+voteColumns+` FROM votes v WHERE v.id = ?`) + t.store.dialect.lockSuffix
	v, err := scanVote(t.tx.QueryRowContext(ctx, query, id), nil)
	return v, notFoundIsNil(err)
}

func (t *sqlTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := t.store.rebind(`SELECT `+userColumns+` FROM users u WHERE u.id = ?`) + t.store.dialect.lockSuffix
	u, err := scanUser(t.tx.QueryRowContext(ctx, query, id))
	return u, notFoundIsNil(err)
}

func (t *sqlTx) Update(ctx context.Context, table Table, fields Fields, where Fields) (int64, error) {
	return t.store.update(ctx, t.tx, table, fields, where)
}

func (t *sqlTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to commit transaction", err)
	}
	return nil
}

func (t *sqlTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to roll back transaction", err)
	}
	return nil
}

// joined receives the columns a listing query adds through joins
type joined struct {
	first  string
	second string
}

func scanCommunity(row scanner) (*models.Community, error) {
	var (
		c      models.Community
		config sql.NullString
	)
	err := row.Scan(&c.ID, &c.OnChainID, &c.Name, &c.Description, &config,
		&c.IsActive, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, scanError("community", err)
	}
	if err := decodeJSON(config.String, &c.Config); err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to unmarshal community config", err)
	}
	return &c, nil
}

func scanMember(row scanner, j *joined) (*models.Member, error) {
	var (
		m          models.Member
		approvedAt sql.NullTime
		approvedBy sql.NullString
	)
	dest := []interface{}{&m.ID, &m.UserID, &m.CommunityID, &m.Role, &m.Status,
		&m.JoinedAt, &approvedAt, &approvedBy, &m.CreatedAt, &m.UpdatedAt}
	if j != nil {
		dest = append(dest, &j.first, &j.second)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, scanError("member", err)
	}
	if approvedAt.Valid {
		m.ApprovedAt = &approvedAt.Time
	}
	if approvedBy.Valid {
		m.ApprovedBy = &approvedBy.String
	}
	if j != nil {
		m.CommunityOnChainID, m.WalletAddress = j.first, j.second
	}
	return &m, nil
}

func scanQuestion(row scanner, j *joined) (*models.VotingQuestion, error) {
	var (
		q       models.VotingQuestion
		options sql.NullString
	)
	dest := []interface{}{&q.ID, &q.OnChainID, &q.CommunityID, &q.Title, &q.Description,
		&options, &q.Deadline, &q.Status, &q.CreatedAt, &q.UpdatedAt}
	if j != nil {
		dest = append(dest, &j.first)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, scanError("voting question", err)
	}
	if err := decodeJSON(options.String, &q.Options); err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to unmarshal question options", err)
	}
	if j != nil {
		q.CommunityOnChainID = j.first
	}
	return &q, nil
}

func scanVote(row scanner, j *joined) (*models.Vote, error) {
	var (
		v        models.Vote
		voteData sql.NullString
	)
	dest := []interface{}{&v.ID, &v.QuestionID, &v.UserID, &voteData, &v.Signature,
		&v.Status, &v.CreatedAt, &v.UpdatedAt}
	if j != nil {
		dest = append(dest, &j.first, &j.second)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, scanError("vote", err)
	}
	if err := decodeJSON(voteData.String, &v.VoteData); err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to unmarshal vote data", err)
	}
	if j != nil {
		v.QuestionOnChainID, v.WalletAddress = j.first, j.second
	}
	return &v, nil
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u     models.User
		email sql.NullString
	)
	err := row.Scan(&u.ID, &u.WalletAddress, &u.Username, &email, &u.IsActive,
		&u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, scanError("user", err)
	}
	u.Email = email.String
	return &u, nil
}

func scanError(entity string, err error) error {
	if err == sql.ErrNoRows {
		return err
	}
	return utils.WrapError(utils.ErrCodeDatabase, "Failed to scan "+entity, err)
}

func notFoundIsNil(err error) error {
	if err == sql.ErrNoRows {
		return nil
	}
	return err
}

func stampTimes(createdAt, updatedAt *time.Time) {
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		*updatedAt = *createdAt
	}
}

func encodeJSON(v interface{}, empty string) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(raw) == "null" {
		return empty, nil
	}
	return string(raw), nil
}

func decodeJSON(raw string, dest interface{}) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dest)
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

const defaultMaxConns = 10

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

// NewPostgresStore connects to dsn, pings the server and optionally applies the schema.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	o := options{maxConns: defaultMaxConns}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("repository")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = o.maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool, log: o.log}
	if o.applySchema {
		if err := s.ApplySchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	o.log.Info(ctx, "postgres store ready", logger.Int("max_conns", int(o.maxConns)))
	return s, nil
}

// NewPostgresStoreFromPool wraps an existing pool.
func NewPostgresStoreFromPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, log: logger.Get().Named("repository")}
}

// ApplySchema creates missing tables.
func (s *PostgresStore) ApplySchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	defer observe("list_events", time.Now())

	states := make([]string, 0, len(filter.States))
	for _, st := range filter.States {
		states = append(states, string(st))
	}
	var after *time.Time
	if !filter.StartsAfter.IsZero() {
		after = &filter.StartsAfter
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, start_dttm, users_limit, state
		FROM dating_events
		WHERE ($1::timestamptz IS NULL OR start_dttm > $1)
		  AND (cardinality($2::text[]) = 0 OR state = ANY($2))
		ORDER BY start_dttm ASC, id ASC`, after, states)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events, err := pgx.CollectRows(rows, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	defer observe("get_event", time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT id, start_dttm, users_limit, state
		FROM dating_events
		WHERE id = $1`, id)
	if err != nil {
		return model.Event{}, fmt.Errorf("get event %d: %w", id, err)
	}
	e, err := pgx.CollectExactlyOneRow(rows, scanEvent)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Event{}, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("get event %d: %w", id, err)
	}
	return e, nil
}

func (s *PostgresStore) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	defer observe("create_event", time.Now())

	if e.State == "" {
		e.State = model.StateNotStarted
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO dating_events (start_dttm, state, users_limit)
		VALUES ($1, $2, $3)
		RETURNING id`, e.StartTime, string(e.State), e.GroupCapacity).Scan(&e.ID)
	if err != nil {
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) SetEventState(ctx context.Context, id int64, state model.EventState) error {
	defer observe("set_event_state", time.Now())

	from := make([]string, 0)
	for _, st := range model.Predecessors(state) {
		from = append(from, string(st))
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE dating_events
		SET state = $2
		WHERE id = $1 AND state = ANY($3)`, id, string(state), from)
	if err != nil {
		return fmt.Errorf("set event %d state: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	current, err := s.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", model.ErrInvalidStateTransition, current.State, state)
}

func (s *PostgresStore) ListRegistrations(ctx context.Context, eventID int64) ([]model.Registration, error) {
	defer observe("list_registrations", time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT event_id, user_id, registered_on_dttm, confirmed_on_dttm, confirmation_event_sent, is_ready
		FROM dating_registrations
		WHERE event_id = $1
		ORDER BY registered_on_dttm ASC, user_id ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	regs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Registration, error) {
		var r model.Registration
		err := row.Scan(&r.EventID, &r.UserID, &r.RegisteredAt, &r.ConfirmedAt, &r.ConfirmationSent, &r.Ready)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

func (s *PostgresStore) InsertRegistration(ctx context.Context, r model.Registration) error {
	defer observe("insert_registration", time.Now())

	if r.RegisteredAt.IsZero() {
		r.RegisteredAt = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO dating_registrations
			(user_id, event_id, registered_on_dttm, confirmed_on_dttm, confirmation_event_sent, is_ready)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id, user_id) DO NOTHING`,
		r.UserID, r.EventID, r.RegisteredAt, r.ConfirmedAt, r.ConfirmationSent, r.Ready)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("registration %d/%d: %w", r.EventID, r.UserID, ErrAlreadyExists)
	}
	return nil
}

func (s *PostgresStore) ConfirmRegistration(ctx context.Context, eventID, userID int64, at time.Time) error {
	defer observe("confirm_registration", time.Now())

	tag, err := s.pool.Exec(ctx, `
		UPDATE dating_registrations
		SET confirmed_on_dttm = COALESCE(confirmed_on_dttm, $3)
		WHERE event_id = $1 AND user_id = $2`, eventID, userID, at)
	if err != nil {
		return fmt.Errorf("confirm registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("registration %d/%d: %w", eventID, userID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) MarkConfirmationSent(ctx context.Context, eventID int64, userIDs []int64) error {
	defer observe("mark_confirmation_sent", time.Now())

	if len(userIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE dating_registrations
		SET confirmation_event_sent = TRUE
		WHERE event_id = $1 AND user_id = ANY($2)`, eventID, userIDs)
	if err != nil {
		return fmt.Errorf("mark confirmation sent: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetReady(ctx context.Context, eventID, userID int64) error {
	defer observe("set_ready", time.Now())

	tag, err := s.pool.Exec(ctx, `
		UPDATE dating_registrations
		SET is_ready = TRUE
		WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return fmt.Errorf("set ready: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("registration %d/%d: %w", eventID, userID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) AreAllReady(ctx context.Context, eventID int64) (bool, error) {
	defer observe("are_all_ready", time.Now())

	var ready bool
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) > 0 AND BOOL_AND(is_ready)
		FROM dating_registrations
		WHERE event_id = $1`, eventID).Scan(&ready)
	if err != nil {
		return false, fmt.Errorf("are all ready: %w", err)
	}
	return ready, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (model.User, error) {
	defer observe("get_user", time.Now())

	var (
		u        model.User
		birthday *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, name, bio, birthday, sex, city, rating, manual_score
		FROM users
		WHERE id = $1`, id).Scan(
		&u.ID, &u.Username, &u.Name, &u.Bio, &birthday, &u.Sex, &u.City, &u.Rating, &u.ManualScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	if birthday != nil {
		u.BirthDate = *birthday
	}
	return u, nil
}

func (s *PostgresStore) UpsertUser(ctx context.Context, u model.User) error {
	defer observe("upsert_user", time.Now())

	var birthday *time.Time
	if !u.BirthDate.IsZero() {
		birthday = &u.BirthDate
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, name, bio, birthday, sex, city, rating, manual_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			name = EXCLUDED.name,
			bio = EXCLUDED.bio,
			birthday = EXCLUDED.birthday,
			sex = EXCLUDED.sex,
			city = EXCLUDED.city,
			rating = EXCLUDED.rating,
			manual_score = EXCLUDED.manual_score`,
		u.ID, u.Username, u.Name, u.Bio, birthday, u.Sex, u.City, u.Rating, u.ManualScore)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	return nil
}

func (s *PostgresStore) ReplacePairs(ctx context.Context, eventID int64, pairs []model.Pair) error {
	defer observe("replace_pairs", time.Now())

	rows := make([][]any, 0, len(pairs))
	for _, p := range pairs {
		if p.EventID != eventID {
			return fmt.Errorf("%w: %d != %d", ErrInvalidPairSet, p.EventID, eventID)
		}
		rows = append(rows, []any{p.EventID, p.GroupNo, p.TurnNo, p.FirstUserID, p.SecondUserID})
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM dating_event_groups WHERE event_id = $1`, eventID); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"dating_event_groups"},
			[]string{"event_id", "group_no", "turn_no", "user_1_id", "user_2_id"},
			pgx.CopyFromRows(rows))
		return err
	})
	if err != nil {
		return fmt.Errorf("replace pairs for event %d: %w", eventID, err)
	}
	return nil
}

func (s *PostgresStore) ListPairs(ctx context.Context, eventID int64) ([]model.Pair, error) {
	defer observe("list_pairs", time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT event_id, group_no, turn_no, user_1_id, user_2_id
		FROM dating_event_groups
		WHERE event_id = $1
		ORDER BY group_no, turn_no, user_1_id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	pairs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Pair, error) {
		var p model.Pair
		err := row.Scan(&p.EventID, &p.GroupNo, &p.TurnNo, &p.FirstUserID, &p.SecondUserID)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	return pairs, nil
}

func (s *PostgresStore) SaveLike(ctx context.Context, l model.Like) error {
	defer observe("save_like", time.Now())

	_, err := s.pool.Exec(ctx, `
		INSERT INTO likes (source_user_id, target_user_id, event_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`, l.SourceUserID, l.TargetUserID, l.EventID)
	if err != nil {
		return fmt.Errorf("save like: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMatches(ctx context.Context, eventID int64) ([]model.Match, error) {
	defer observe("list_matches", time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT a.event_id, a.source_user_id, a.target_user_id
		FROM likes AS a
		JOIN likes AS b
		  ON b.event_id = a.event_id
		 AND b.source_user_id = a.target_user_id
		 AND b.target_user_id = a.source_user_id
		WHERE a.event_id = $1
		ORDER BY a.source_user_id, a.target_user_id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Match, error) {
		var m model.Match
		err := row.Scan(&m.EventID, &m.UserID, &m.Partner)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

func scanEvent(row pgx.CollectableRow) (model.Event, error) {
	var (
		e     model.Event
		state string
	)
	if err := row.Scan(&e.ID, &e.StartTime, &e.GroupCapacity, &state); err != nil {
		return model.Event{}, err
	}
	e.State = model.EventState(state)
	return e, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"

	"github.com/benjamonnguyen/clockin-go"
)

const (
	SelectAllSessions = "SELECT user_id, username, locale, shift_day, state, work_started_at, break_started_at, current_break, toilet_count, eat_count, rest_count, total_break_ms, created_at, updated_at FROM user_sessions"
	UpsertSession     = "INSERT INTO user_sessions (user_id, username, locale, shift_day, state, work_started_at, break_started_at, current_break, toilet_count, eat_count, rest_count, total_break_ms, created_at, updated_at) VALUES %s " +
		"ON CONFLICT(user_id) DO UPDATE SET username = excluded.username, locale = excluded.locale, shift_day = excluded.shift_day, state = excluded.state, work_started_at = excluded.work_started_at, break_started_at = excluded.break_started_at, current_break = excluded.current_break, toilet_count = excluded.toilet_count, eat_count = excluded.eat_count, rest_count = excluded.rest_count, total_break_ms = excluded.total_break_ms, updated_at = excluded.updated_at"
)

type sessionEntity struct {
	UserID         string
	Username       string
	Locale         string
	ShiftDay       string
	State          uint8
	WorkStartedAt  int64
	BreakStartedAt int64
	CurrentBreak   uint8
	ToiletCount    int
	EatCount       int
	RestCount      int
	TotalBreakMS   int64
	CreatedAt      int64
	UpdatedAt      int64
}

type sessionRepo struct {
	dbGetter txStdLib.DBGetter
	l        log.Logger
}

func NewSessionRepo(dbGetter txStdLib.DBGetter, logger log.Logger) *sessionRepo {
	return &sessionRepo{
		l:        logger,
		dbGetter: dbGetter,
	}
}

func (r *sessionRepo) SaveSession(ctx context.Context, session clockin.UserSessionRecord) (clockin.ExistingUserSessionRecord, error) {
	if session.UserID == "" {
		return clockin.ExistingUserSessionRecord{}, fmt.Errorf("provide required field 'UserID'")
	}

	e := mapToSessionEntity(clockin.ExistingUserSessionRecord{
		ExistingRecord:    clockin.NewExistingRecord[string](session.UserID, time.Now()),
		UserSessionRecord: session,
	})
	args := []any{
		e.UserID,
		e.Username,
		e.Locale,
		e.ShiftDay,
		e.State,
		e.WorkStartedAt,
		e.BreakStartedAt,
		e.CurrentBreak,
		e.ToiletCount,
		e.EatCount,
		e.RestCount,
		e.TotalBreakMS,
		e.CreatedAt,
		e.UpdatedAt,
	}
	query := fmt.Sprintf(UpsertSession, generateParameters(len(args)))
	r.l.Debug("saving session", "query", query, "args", args)
	if _, err := r.dbGetter(ctx).ExecContext(ctx, query, args...); err != nil {
		return clockin.ExistingUserSessionRecord{}, err
	}

	return r.GetSession(ctx, session.UserID)
}

func (r *sessionRepo) DeleteSession(ctx context.Context, userID string) (clockin.ExistingUserSessionRecord, error) {
	existing, err := r.GetSession(ctx, userID)
	if err != nil {
		return clockin.ExistingUserSessionRecord{}, err
	}

	query := "DELETE FROM user_sessions WHERE user_id = ?"
	r.l.Debug("deleting session", "query", query, "uid", userID)
	if _, err := r.dbGetter(ctx).ExecContext(ctx, query, userID); err != nil {
		return clockin.ExistingUserSessionRecord{}, err
	}

	return existing, nil
}

func (r *sessionRepo) GetSession(ctx context.Context, userID string) (clockin.ExistingUserSessionRecord, error) {
	if userID == "" {
		return clockin.ExistingUserSessionRecord{}, fmt.Errorf("provide userID")
	}

	row := r.dbGetter(ctx).QueryRowContext(
		ctx,
		fmt.Sprintf("%s WHERE user_id=?", SelectAllSessions), userID,
	)

	return extractSession(row)
}

func (r *sessionRepo) GetSessions(ctx context.Context) ([]clockin.ExistingUserSessionRecord, error) {
	r.l.Debug("getting sessions", "query", SelectAllSessions)
	rows, err := r.dbGetter(ctx).QueryContext(ctx, SelectAllSessions)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint

	var sessions []clockin.ExistingUserSessionRecord
	for rows.Next() {
		session, err := extractSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func extractSession(s scannable) (clockin.ExistingUserSessionRecord, error) {
	var e sessionEntity
	if err := s.Scan(&e.UserID, &e.Username, &e.Locale, &e.ShiftDay, &e.State, &e.WorkStartedAt, &e.BreakStartedAt, &e.CurrentBreak, &e.ToiletCount, &e.EatCount, &e.RestCount, &e.TotalBreakMS, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return clockin.ExistingUserSessionRecord{}, ErrNotFound
		}
		return clockin.ExistingUserSessionRecord{}, err
	}

	return mapToExistingSessionRecord(e), nil
}

func mapToSessionEntity(session clockin.ExistingUserSessionRecord) sessionEntity {
	return sessionEntity{
		UserID:         session.UserID,
		Username:       session.Username,
		Locale:         session.Locale,
		ShiftDay:       session.ShiftDay,
		State:          uint8(session.State),
		WorkStartedAt:  toUnixMilli(session.WorkStartedAt),
		BreakStartedAt: toUnixMilli(session.BreakStartedAt),
		CurrentBreak:   uint8(session.CurrentBreak),
		ToiletCount:    session.BreakCounts.Get(clockin.BreakToilet),
		EatCount:       session.BreakCounts.Get(clockin.BreakEat),
		RestCount:      session.BreakCounts.Get(clockin.BreakRest),
		TotalBreakMS:   session.TotalBreak.Milliseconds(),
		CreatedAt:      session.CreatedAt.Unix(),
		UpdatedAt:      session.UpdatedAt.Unix(),
	}
}

func mapToExistingSessionRecord(e sessionEntity) clockin.ExistingUserSessionRecord {
	var counts clockin.BreakCounts
	counts[clockin.BreakToilet] = e.ToiletCount
	counts[clockin.BreakEat] = e.EatCount
	counts[clockin.BreakRest] = e.RestCount

	return clockin.ExistingUserSessionRecord{
		ExistingRecord: clockin.ExistingRecord[string]{
			ID:        e.UserID,
			CreatedAt: time.Unix(e.CreatedAt, 0),
			UpdatedAt: time.Unix(e.UpdatedAt, 0),
		},
		UserSessionRecord: clockin.UserSessionRecord{
			UserID:         e.UserID,
			Username:       e.Username,
			Locale:         e.Locale,
			ShiftDay:       e.ShiftDay,
			State:          clockin.AttendanceState(e.State),
			WorkStartedAt:  fromUnixMilli(e.WorkStartedAt),
			BreakStartedAt: fromUnixMilli(e.BreakStartedAt),
			CurrentBreak:   clockin.BreakType(e.CurrentBreak),
			BreakCounts:    counts,
			TotalBreak:     time.Duration(e.TotalBreakMS) * time.Millisecond,
		},
	}
}

package sqlite

import (
	"context"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/benjamonnguyen/clockin-go"
)

const SelectAllActivity = "SELECT id, user_id, username, kind, detail, at, created_at FROM activity_log"

type activityEntity struct {
	ID        string
	UserID    string
	Username  string
	Kind      string
	Detail    string
	At        int64
	CreatedAt int64
}

type activityRepo struct {
	dbGetter txStdLib.DBGetter
	l        log.Logger
}

func NewActivityRepo(dbGetter txStdLib.DBGetter, logger log.Logger) *activityRepo {
	return &activityRepo{
		dbGetter: dbGetter,
		l:        logger,
	}
}

func (r *activityRepo) InsertActivity(ctx context.Context, activity clockin.ActivityRecord) (clockin.ExistingActivityRecord, error) {
	if activity.UserID == "" || activity.Kind == "" {
		return clockin.ExistingActivityRecord{}, fmt.Errorf("provide required fields 'UserID' and 'Kind'")
	}

	existingRecord := clockin.ExistingActivityRecord{
		ActivityRecord: activity,
		ExistingRecord: clockin.NewExistingRecord[clockin.ActivityID](uuid.NewString(), time.Now()),
	}
	e := mapToActivityEntity(existingRecord)

	args := []any{
		e.ID,
		e.UserID,
		e.Username,
		e.Kind,
		e.Detail,
		e.At,
		e.CreatedAt,
	}
	query := "INSERT INTO activity_log (id, user_id, username, kind, detail, at, created_at) VALUES " + generateParameters(len(args))
	r.l.Debug("inserting activity", "query", query, "args", args)
	if _, err := r.dbGetter(ctx).ExecContext(ctx, query, args...); err != nil {
		return clockin.ExistingActivityRecord{}, err
	}

	return existingRecord, nil
}

func (r *activityRepo) ListActivity(ctx context.Context, limit int) ([]clockin.ExistingActivityRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := SelectAllActivity + " ORDER BY at DESC, created_at DESC LIMIT ?"
	r.l.Debug("listing activity", "query", query, "limit", limit)
	rows, err := r.dbGetter(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint

	var activity []clockin.ExistingActivityRecord
	for rows.Next() {
		var e activityEntity
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Kind, &e.Detail, &e.At, &e.CreatedAt); err != nil {
			return nil, err
		}
		activity = append(activity, mapToExistingActivityRecord(e))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return activity, nil
}

func mapToActivityEntity(a clockin.ExistingActivityRecord) activityEntity {
	return activityEntity{
		ID:        string(a.ID),
		UserID:    a.UserID,
		Username:  a.Username,
		Kind:      string(a.Kind),
		Detail:    a.Detail,
		At:        toUnixMilli(a.At),
		CreatedAt: a.CreatedAt.Unix(),
	}
}

func mapToExistingActivityRecord(e activityEntity) clockin.ExistingActivityRecord {
	createdAt := time.Unix(e.CreatedAt, 0)
	return clockin.ExistingActivityRecord{
		ExistingRecord: clockin.ExistingRecord[clockin.ActivityID]{
			ID:        clockin.ActivityID(e.ID),
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		},
		ActivityRecord: clockin.ActivityRecord{
			UserID:   e.UserID,
			Username: e.Username,
			Kind:     clockin.ActivityKind(e.Kind),
			Detail:   e.Detail,
			At:       fromUnixMilli(e.At),
		},
	}
}

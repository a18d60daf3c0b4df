package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/benjamonnguyen/clockin-go"
)

const activityCollection = "activity_log"

type activityDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Username  string    `bson:"username"`
	Kind      string    `bson:"kind"`
	Detail    string    `bson:"detail"`
	At        time.Time `bson:"at"`
	CreatedAt time.Time `bson:"created_at"`
}

type activityRepo struct {
	coll *mongo.Collection
	l    log.Logger
}

func NewActivityRepo(ctx context.Context, db *DB, logger log.Logger) (*activityRepo, error) {
	coll := db.Collection(activityCollection)
	if _, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "at", Value: -1}}},
	}); err != nil {
		return nil, fmt.Errorf("create %s indexes: %w", activityCollection, err)
	}
	return &activityRepo{coll: coll, l: logger}, nil
}

func (r *activityRepo) InsertActivity(ctx context.Context, activity clockin.ActivityRecord) (clockin.ExistingActivityRecord, error) {
	if activity.UserID == "" || activity.Kind == "" {
		return clockin.ExistingActivityRecord{}, fmt.Errorf("provide required fields 'UserID' and 'Kind'")
	}

	existingRecord := clockin.ExistingActivityRecord{
		ActivityRecord: activity,
		ExistingRecord: clockin.NewExistingRecord[clockin.ActivityID](uuid.NewString(), time.Now()),
	}
	doc := mapToActivityDocument(existingRecord)
	r.l.Debug("inserting activity", "doc", doc)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return clockin.ExistingActivityRecord{}, err
	}
	return existingRecord, nil
}

func (r *activityRepo) ListActivity(ctx context.Context, limit int) ([]clockin.ExistingActivityRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "at", Value: -1}, {Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find activity: %w", err)
	}
	defer cursor.Close(ctx) //nolint

	var docs []activityDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}

	activity := make([]clockin.ExistingActivityRecord, 0, len(docs))
	for _, d := range docs {
		activity = append(activity, mapToExistingActivityRecord(d))
	}
	return activity, nil
}

func mapToActivityDocument(a clockin.ExistingActivityRecord) activityDocument {
	return activityDocument{
		ID:        string(a.ID),
		UserID:    a.UserID,
		Username:  a.Username,
		Kind:      string(a.Kind),
		Detail:    a.Detail,
		At:        a.At.UTC(),
		CreatedAt: a.CreatedAt.UTC(),
	}
}

func mapToExistingActivityRecord(d activityDocument) clockin.ExistingActivityRecord {
	return clockin.ExistingActivityRecord{
		ExistingRecord: clockin.ExistingRecord[clockin.ActivityID]{
			ID:        clockin.ActivityID(d.ID),
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.CreatedAt,
		},
		ActivityRecord: clockin.ActivityRecord{
			UserID:   d.UserID,
			Username: d.Username,
			Kind:     clockin.ActivityKind(d.Kind),
			Detail:   d.Detail,
			At:       d.At,
		},
	}
}

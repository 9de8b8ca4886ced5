package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/IgorGrieder/linkquota/internal/events"
	"github.com/IgorGrieder/linkquota/internal/infrastructure/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ClickArchiveCollection = "clicks_daily"

// BulkWriter is the subset of *mongo.Collection the archive writes through.
type BulkWriter interface {
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
}

// ClickArchive keeps per-day click counters for every link. Counters are keyed
// by link id as well as code, so a code handed out again after reclamation
// starts a fresh history.
type ClickArchive struct {
	coll BulkWriter
}

type dayLinkKey struct {
	linkID string
	code   string
	day    int32 // YYYYMMDD (UTC)
}

func NewClickArchive(m *db.Mongo) (*ClickArchive, error) {
	coll := m.Collection(ClickArchiveCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "linkId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_link_date"),
		},
		{
			Keys:    bson.D{{Key: "code", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("code_date_desc"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s indexes: %w", ClickArchiveCollection, err)
	}

	return newClickArchive(coll), nil
}

func newClickArchive(coll BulkWriter) *ClickArchive {
	return &ClickArchive{coll: coll}
}

func (a *ClickArchive) Name() string { return "mongo:" + ClickArchiveCollection }

func (a *ClickArchive) Handle(ctx context.Context, batch []events.LinkEvent) error {
	models := buildWriteModels(aggregateClicks(batch))
	if len(models) == 0 {
		return nil
	}

	_, err := a.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("archive clicks: %w", err)
	}
	return nil
}

func aggregateClicks(batch []events.LinkEvent) map[dayLinkKey]int64 {
	pending := make(map[dayLinkKey]int64)
	for _, ev := range batch {
		if ev.Type != events.TypeLinkClicked || ev.Code == "" {
			continue
		}
		pending[dayLinkKey{linkID: ev.LinkID, code: ev.Code, day: dayKey(ev.OccurredAt)}]++
	}
	return pending
}

func buildWriteModels(pending map[dayLinkKey]int64) []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, len(pending))

	for key, inc := range pending {
		date := dateStringFromDayKey(key.day)

		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"linkId": key.linkID, "date": date}).
			SetUpdate(bson.M{
				"$inc": bson.M{"count": inc},
				"$setOnInsert": bson.M{
					"linkId": key.linkID,
					"code":   key.code,
					"date":   date,
				},
			}).
			SetUpsert(true),
		)
	}
	return models
}

func dayKey(t time.Time) int32 {
	y, m, d := t.UTC().Date()
	return int32(y*10000 + int(m)*100 + d)
}

func dateStringFromDayKey(day int32) string {
	y := int(day / 10000)
	m := int((day / 100) % 100)
	d := int(day % 100)
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

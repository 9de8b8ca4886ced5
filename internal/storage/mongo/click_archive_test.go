package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IgorGrieder/linkquota/internal/events"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeBulkWriter struct {
	calls  int
	models []mongo.WriteModel
	err    error
}

func (f *fakeBulkWriter) BulkWrite(_ context.Context, models []mongo.WriteModel, _ ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	f.calls++
	f.models = append(f.models, models...)
	if f.err != nil {
		return nil, f.err
	}
	return &mongo.BulkWriteResult{UpsertedCount: int64(len(models))}, nil
}

func TestDayKeyAndDateString(t *testing.T) {
	at := time.Date(2026, 3, 9, 23, 30, 0, 0, time.FixedZone("BRT", -3*3600))

	key := dayKey(at)
	if key != 20260310 {
		t.Fatalf("dayKey() = %d, want 20260310 (UTC day)", key)
	}
	if got := dateStringFromDayKey(key); got != "2026-03-10" {
		t.Errorf("dateStringFromDayKey() = %q", got)
	}
}

func TestAggregateClicksGroupsByLinkAndDay(t *testing.T) {
	owner := uuid.New()
	first, second := uuid.New(), uuid.New()
	day := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	batch := []events.LinkEvent{
		events.NewLinkEvent(events.TypeLinkCreated, "aaa111", first, owner, 0, 5, day),
		events.NewLinkEvent(events.TypeLinkClicked, "aaa111", first, owner, 1, 5, day),
		events.NewLinkEvent(events.TypeLinkClicked, "aaa111", first, owner, 2, 5, day.Add(time.Hour)),
		events.NewLinkEvent(events.TypeLinkClicked, "aaa111", first, owner, 3, 5, day.Add(24*time.Hour)),
		events.NewLinkEvent(events.TypeLinkDeleted, "aaa111", first, owner, 3, 5, day.Add(25*time.Hour)),
		events.NewLinkEvent(events.TypeLinkClicked, "aaa111", second, owner, 1, 5, day.Add(26*time.Hour)),
	}

	got := aggregateClicks(batch)
	want := map[dayLinkKey]int64{
		{linkID: first.String(), code: "aaa111", day: 20260102}:  2,
		{linkID: first.String(), code: "aaa111", day: 20260103}:  1,
		{linkID: second.String(), code: "aaa111", day: 20260103}: 1,
	}

	if len(got) != len(want) {
		t.Fatalf("aggregateClicks() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("count for %+v = %d, want %d", k, got[k], v)
		}
	}
}

func TestHandleWritesOneUpsertPerBucket(t *testing.T) {
	w := &fakeBulkWriter{}
	archive := newClickArchive(w)
	owner, link := uuid.New(), uuid.New()
	at := time.Date(2026, 5, 6, 7, 0, 0, 0, time.UTC)

	batch := []events.LinkEvent{
		events.NewLinkEvent(events.TypeLinkClicked, "zzz999", link, owner, 1, 10, at),
		events.NewLinkEvent(events.TypeLinkClicked, "zzz999", link, owner, 2, 10, at),
	}
	if err := archive.Handle(context.Background(), batch); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if w.calls != 1 || len(w.models) != 1 {
		t.Fatalf("calls = %d, models = %d", w.calls, len(w.models))
	}
	update, ok := w.models[0].(*mongo.UpdateOneModel)
	if !ok {
		t.Fatalf("model type = %T", w.models[0])
	}
	if update.Upsert == nil || !*update.Upsert {
		t.Error("expected upsert")
	}
	filter := update.Filter.(bson.M)
	if filter["linkId"] != link.String() || filter["date"] != "2026-05-06" {
		t.Errorf("filter = %v", filter)
	}
	inc := update.Update.(bson.M)["$inc"].(bson.M)
	if inc["count"] != int64(2) {
		t.Errorf("$inc = %v", inc)
	}
}

func TestHandleSkipsBatchesWithoutClicks(t *testing.T) {
	w := &fakeBulkWriter{}
	at := time.Now()
	batch := []events.LinkEvent{
		events.NewLinkEvent(events.TypeLinkExpired, "abc", uuid.New(), uuid.New(), 0, 1, at),
	}
	if err := newClickArchive(w).Handle(context.Background(), batch); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if w.calls != 0 {
		t.Errorf("BulkWrite called %d times", w.calls)
	}
}

func TestHandleWrapsWriteErrors(t *testing.T) {
	w := &fakeBulkWriter{err: errors.New("no primary")}
	batch := []events.LinkEvent{
		events.NewLinkEvent(events.TypeLinkClicked, "abc", uuid.New(), uuid.New(), 1, 1, time.Now()),
	}
	if err := newClickArchive(w).Handle(context.Background(), batch); !errors.Is(err, w.err) {
		t.Errorf("Handle() error = %v", err)
	}
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utsingh/portfolio-api/internal/portfolio"
)

// codePathNotViable is returned by the server when a path segment cannot be
// created because its parent is a scalar.
const codePathNotViable = 28

// MongoRepo implements Repository on a MongoDB collection. The portfolio is
// the document whose "type" equals portfolio.DocumentType; EnsureIndexes
// makes that field unique so the document is a real singleton.
type MongoRepo struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureIndexes creates the unique index on the discriminator. The non-array
// guard in AddItem depends on it.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "type", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("type_unique"),
	}
	if _, err := m.col.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("create type index: %w", err)
	}
	return nil
}

func docFilter() bson.M {
	return bson.M{"type": portfolio.DocumentType}
}

func (m *MongoRepo) GetData(ctx context.Context) (map[string]interface{}, error) {
	d, err := m.GetDocument(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return map[string]interface{}{}, nil
		}
		return nil, err
	}
	return d.Data, nil
}

func (m *MongoRepo) GetDocument(ctx context.Context) (*portfolio.Document, error) {
	var d portfolio.Document
	if err := m.col.FindOne(ctx, docFilter()).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d.Data = normalizeMap(d.Data)
	if d.Data == nil {
		d.Data = map[string]interface{}{}
	}
	return &d, nil
}

func (m *MongoRepo) ReplaceData(ctx context.Context, data map[string]interface{}) error {
	if data == nil {
		data = map[string]interface{}{}
	}
	now := m.now()
	update := bson.M{
		"$set":         bson.M{"data": data, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	_, err := m.col.UpdateOne(ctx, docFilter(), update, options.Update().SetUpsert(true))
	return err
}

func (m *MongoRepo) GetSection(ctx context.Context, t portfolio.Target) (interface{}, error) {
	var d portfolio.Document
	opts := options.FindOne().SetProjection(bson.M{t.Path(): 1})
	if err := m.col.FindOne(ctx, docFilter(), opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	v, ok := d.Data[t.Section]
	if !ok || v == nil {
		return nil, ErrNotFound
	}
	return normalize(v), nil
}

func (m *MongoRepo) ReplaceSection(ctx context.Context, t portfolio.Target, value interface{}) error {
	now := m.now()
	update := bson.M{
		"$set":         bson.M{t.Path(): value, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	res, err := m.col.UpdateOne(ctx, docFilter(), update, options.Update().SetUpsert(true))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) AddItem(ctx context.Context, t portfolio.Target, item map[string]interface{}) (map[string]interface{}, error) {
	if !t.IsArray() {
		return nil, fmt.Errorf("%w: %q has no array field", portfolio.ErrInvalidTarget, t.String())
	}
	item = portfolio.WithItemID(item)
	for attempt := 0; ; attempt++ {
		_, err := m.col.UpdateOne(ctx, pushFilter(t), pushUpdate(t, item, m.now()), options.Update().SetUpsert(true))
		switch {
		case err == nil:
			return item, nil
		case isPathNotViable(err):
			return nil, fmt.Errorf("%w: %q", ErrNotArray, t.String())
		case !mongo.IsDuplicateKeyError(err) || attempt > 0:
			return nil, err
		}
		// The upsert either met a non-array path or lost a race with
		// another first write. Only the first case is a conflict.
		ok, err := m.acceptsPush(ctx, t)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNotArray, t.String())
		}
	}
}

// acceptsPush reads the target path and reports whether a push could apply.
func (m *MongoRepo) acceptsPush(ctx context.Context, t portfolio.Target) (bool, error) {
	var doc bson.M
	opts := options.FindOne().SetProjection(bson.M{t.Path(): 1})
	if err := m.col.FindOne(ctx, docFilter(), opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return true, nil
		}
		return false, err
	}
	return pushable(normalizeMap(doc), t), nil
}

func (m *MongoRepo) RemoveItem(ctx context.Context, t portfolio.Target, id portfolio.Identifier) error {
	if !t.IsArray() {
		return fmt.Errorf("%w: %q has no array field", portfolio.ErrInvalidTarget, t.String())
	}
	res, err := m.col.UpdateOne(ctx, itemFilter(t, id), pullUpdate(t, id, m.now()))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) ReplaceItem(ctx context.Context, t portfolio.Target, id portfolio.Identifier, item map[string]interface{}) (map[string]interface{}, error) {
	if !t.IsArray() {
		return nil, fmt.Errorf("%w: %q has no array field", portfolio.ErrInvalidTarget, t.String())
	}
	item = withID(item, id)
	opts := options.Update().SetArrayFilters(replaceArrayFilters(id))
	res, err := m.col.UpdateOne(ctx, itemFilter(t, id), replaceUpdate(t, item, m.now()), opts)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return item, nil
}

func (m *MongoRepo) Seed(ctx context.Context, data map[string]interface{}) (bool, error) {
	err := m.col.FindOne(ctx, docFilter()).Err()
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return false, err
	}
	now := m.now()
	doc := portfolio.Document{
		Type:      portfolio.DocumentType,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := m.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// pushFilter matches the portfolio only while the target path is missing or
// already an array. When the path holds anything else the upsert falls
// through to an insert, which the unique type index rejects; AddItem then
// re-reads the path to tell that apart from a concurrent first insert.
func pushFilter(t portfolio.Target) bson.M {
	path := t.Path()
	return bson.M{
		"type": portfolio.DocumentType,
		"$or": bson.A{
			bson.M{path: bson.M{"$exists": false}},
			bson.M{path: bson.M{"$type": "array"}},
		},
	}
}

func pushUpdate(t portfolio.Target, item map[string]interface{}, now time.Time) bson.M {
	return bson.M{
		"$push":        bson.M{t.Path(): item},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
}

// pushable reports whether doc's target path is missing or an array. A
// section that exists but is not an object cannot take a field.
func pushable(doc map[string]interface{}, t portfolio.Target) bool {
	data, _ := doc["data"].(map[string]interface{})
	raw, ok := data[t.Section]
	if !ok {
		return true
	}
	section, isMap := raw.(map[string]interface{})
	if !isMap {
		return false
	}
	v, ok := section[t.Field]
	if !ok {
		return true
	}
	_, isArr := v.([]interface{})
	return isArr
}

// itemFilter requires a matching item so that an unknown id matches nothing
// and leaves updatedAt untouched.
func itemFilter(t portfolio.Target, id portfolio.Identifier) bson.M {
	idPath := t.Path() + "." + portfolio.ItemIDField
	return bson.M{
		"type": portfolio.DocumentType,
		idPath: bson.M{"$in": id.Candidates()},
	}
}

func pullUpdate(t portfolio.Target, id portfolio.Identifier, now time.Time) bson.M {
	return bson.M{
		"$pull": bson.M{t.Path(): bson.M{portfolio.ItemIDField: bson.M{"$in": id.Candidates()}}},
		"$set":  bson.M{"updatedAt": now},
	}
}

// replaceUpdate sets every element picked by the "el" array filter.
func replaceUpdate(t portfolio.Target, item map[string]interface{}, now time.Time) bson.M {
	return bson.M{
		"$set": bson.M{t.Path() + ".$[el]": item, "updatedAt": now},
	}
}

func replaceArrayFilters(id portfolio.Identifier) options.ArrayFilters {
	return options.ArrayFilters{Filters: []interface{}{
		bson.M{"el." + portfolio.ItemIDField: bson.M{"$in": id.Candidates()}},
	}}
}

// withID copies item and pins its _id to the addressed identifier.
func withID(item map[string]interface{}, id portfolio.Identifier) map[string]interface{} {
	out := make(map[string]interface{}, len(item)+1)
	for k, v := range item {
		out[k] = v
	}
	out[portfolio.ItemIDField] = id.Value()
	return out
}

func isPathNotViable(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == codePathNotViable {
				return true
			}
		}
	}
	return false
}

func normalizeMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = normalize(v)
	}
	return out
}

// normalize turns driver container types into plain maps and slices.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case primitive.M:
		return normalizeMap(map[string]interface{}(x))
	case map[string]interface{}:
		return normalizeMap(x)
	case primitive.D:
		out := make(map[string]interface{}, len(x))
		for _, e := range x {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case primitive.A:
		return normalize([]interface{}(x))
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, el := range x {
			out[i] = normalize(el)
		}
		return out
	case primitive.DateTime:
		return x.Time().UTC()
	}
	return v
}

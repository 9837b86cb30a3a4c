// Package mongostore is the MongoDB Record Store.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ledgerlens/internal/core"
	"ledgerlens/internal/log"
	"ledgerlens/internal/store"
)

const (
	CategoriesCollection   = "categories"
	TransactionsCollection = "transactions"
	AssetsCollection       = "assets"
	countersCollection     = "counters"
)

var _ store.RecordStore = (*Store)(nil)

type Store struct {
	client       *mongo.Client
	categories   *mongo.Collection
	transactions *mongo.Collection
	assets       *mongo.Collection
	counters     *mongo.Collection
	now          func() time.Time
	logger       *log.Logger
}

// Connect dials uri, pings the server and ensures indexes on database.
func Connect(ctx context.Context, uri, database string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentStorage)
	logger.DebugContext(ctx, "Attempting to connect to MongoDB", "database", database)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:       client,
		categories:   db.Collection(CategoriesCollection),
		transactions: db.Collection(TransactionsCollection),
		assets:       db.Collection(AssetsCollection),
		counters:     db.Collection(countersCollection),
		now:          time.Now,
		logger:       logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.InfoContext(ctx, "Successfully established connection to MongoDB", "database", database)
	return s, nil
}

// WithClock overrides the time source used for created_at fields.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.categories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "nameKey", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create category index: %w", err)
	}
	_, err = s.transactions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "transactionDate", Value: -1}, {Key: "seq", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create transaction index: %w", err)
	}
	_, err = s.assets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "lastUpdated", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create asset index: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// nextSeq returns the next value of the named counter, starting at 1.
func (s *Store) nextSeq(ctx context.Context, name string) (int64, error) {
	var out struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", name, err)
	}
	return out.Seq, nil
}

func (s *Store) FindCategoryByName(ctx context.Context, userID, name string) (core.Category, error) {
	var doc categoryDoc
	err := s.categories.FindOne(ctx,
		bson.M{"userId": userID, "nameKey": core.CategoryKey(name)},
		options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Category{}, store.ErrNoRows
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("find category: %w", err)
	}
	return doc.toCore(), nil
}

func (s *Store) InsertCategory(ctx context.Context, userID, name string) (core.Category, error) {
	id, err := s.nextSeq(ctx, CategoriesCollection)
	if err != nil {
		return core.Category{}, err
	}
	doc := categoryDoc{
		ID:        id,
		UserID:    userID,
		Name:      name,
		NameKey:   core.CategoryKey(name),
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.categories.InsertOne(ctx, doc); err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return doc.toCore(), nil
}

func (s *Store) InsertTransaction(ctx context.Context, t store.NewTransaction) (core.Transaction, error) {
	seq, err := s.nextSeq(ctx, TransactionsCollection)
	if err != nil {
		return core.Transaction{}, err
	}
	doc, err := newTransactionDoc(uuid.NewString(), seq, t, s.now())
	if err != nil {
		return core.Transaction{}, err
	}
	if _, err := s.transactions.InsertOne(ctx, doc); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	s.logger.DebugContext(ctx, "Transaction saved to MongoDB",
		log.FieldTransactionID, doc.ID,
		log.FieldType, doc.Type)

	return s.GetTransaction(ctx, t.UserID, doc.ID)
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	txs, err := s.aggregateTransactions(ctx, bson.M{"_id": id, "userId": userID}, 1)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	if len(txs) == 0 {
		return core.Transaction{}, store.ErrNoRows
	}
	return txs[0], nil
}

func (s *Store) ListRecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	txs, err := s.aggregateTransactions(ctx, bson.M{"userId": userID}, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *Store) aggregateTransactions(ctx context.Context, match bson.M, limit int) ([]core.Transaction, error) {
	cur, err := s.transactions.Aggregate(ctx, transactionPipeline(match, limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]core.Transaction, 0)
	for cur.Next(ctx) {
		var doc transactionView
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		tx, err := doc.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, cur.Err()
}

// transactionPipeline filters, orders newest first with insertion order
// breaking ties, limits when limit > 0 and joins the category name.
func transactionPipeline(match bson.M, limit int) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "transactionDate", Value: -1}, {Key: "seq", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(limit)}})
	}
	return append(pipeline, bson.D{{Key: "$lookup", Value: bson.M{
		"from":         CategoriesCollection,
		"localField":   "categoryId",
		"foreignField": "_id",
		"as":           "category",
	}}})
}

func (s *Store) ListAssets(ctx context.Context, userID string) ([]core.Asset, error) {
	cur, err := s.assets.Find(ctx,
		bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "lastUpdated", Value: -1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]core.Asset, 0)
	for cur.Next(ctx) {
		var doc assetDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode asset: %w", err)
		}
		a, err := doc.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return out, nil
}

func (s *Store) UpsertAsset(ctx context.Context, userID string, a core.Asset) (core.Asset, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.LastUpdated == "" {
		a.LastUpdated = core.FormatTimestamp(s.now())
	}
	doc, err := newAssetDoc(userID, a)
	if err != nil {
		return core.Asset{}, err
	}
	_, err = s.assets.ReplaceOne(ctx,
		bson.M{"_id": a.ID, "userId": userID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		// The id exists under another user, so the upsert tried to insert.
		return core.Asset{}, store.ErrConflict
	}
	if err != nil {
		return core.Asset{}, fmt.Errorf("upsert asset: %w", err)
	}
	return a, nil
}

type categoryDoc struct {
	ID        int64     `bson:"_id"`
	UserID    string    `bson:"userId"`
	Name      string    `bson:"name"`
	NameKey   string    `bson:"nameKey"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (d categoryDoc) toCore() core.Category {
	return core.Category{ID: d.ID, Name: d.Name, CreatedAt: d.CreatedAt}
}

type transactionDoc struct {
	ID              string               `bson:"_id"`
	Seq             int64                `bson:"seq"`
	UserID          string               `bson:"userId"`
	Amount          primitive.Decimal128 `bson:"amount"`
	Type            string               `bson:"type"`
	CategoryID      *int64               `bson:"categoryId,omitempty"`
	Description     *string              `bson:"description,omitempty"`
	TransactionDate string               `bson:"transactionDate"`
	CreatedAt       string               `bson:"createdAt"`
}

// transactionView is a transaction document after the category $lookup.
type transactionView struct {
	transactionDoc `bson:",inline"`
	Category       []categoryDoc `bson:"category"`
}

func newTransactionDoc(id string, seq int64, t store.NewTransaction, now time.Time) (transactionDoc, error) {
	amount, err := toDecimal128(t.Amount)
	if err != nil {
		return transactionDoc{}, err
	}
	return transactionDoc{
		ID:              id,
		Seq:             seq,
		UserID:          t.UserID,
		Amount:          amount,
		Type:            t.Type.String(),
		CategoryID:      t.CategoryID,
		Description:     t.Description,
		TransactionDate: core.FormatTimestamp(t.TransactionDate),
		CreatedAt:       core.FormatTimestamp(now),
	}, nil
}

func (v transactionView) toCore() (core.Transaction, error) {
	amount, err := fromDecimal128(v.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", v.ID, err)
	}
	tx := core.Transaction{
		ID:              v.ID,
		Amount:          amount,
		Type:            core.TransactionType(v.Type),
		Description:     v.Description,
		TransactionDate: v.TransactionDate,
		CreatedAt:       v.CreatedAt,
	}
	if len(v.Category) > 0 {
		name := v.Category[0].Name
		tx.Category = &name
	}
	return tx, nil
}

type assetDoc struct {
	ID           string               `bson:"_id"`
	UserID       string               `bson:"userId"`
	Name         string               `bson:"name"`
	Type         string               `bson:"type"`
	CurrentValue primitive.Decimal128 `bson:"currentValue"`
	LastUpdated  string               `bson:"lastUpdated"`
}

func newAssetDoc(userID string, a core.Asset) (assetDoc, error) {
	value, err := toDecimal128(a.CurrentValue)
	if err != nil {
		return assetDoc{}, err
	}
	return assetDoc{
		ID:           a.ID,
		UserID:       userID,
		Name:         a.Name,
		Type:         a.Type,
		CurrentValue: value,
		LastUpdated:  a.LastUpdated,
	}, nil
}

func (d assetDoc) toCore() (core.Asset, error) {
	value, err := fromDecimal128(d.CurrentValue)
	if err != nil {
		return core.Asset{}, fmt.Errorf("asset %s: %w", d.ID, err)
	}
	return core.Asset{
		ID:           d.ID,
		Name:         d.Name,
		Type:         d.Type,
		CurrentValue: value,
		LastUpdated:  d.LastUpdated,
	}, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode amount %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode amount %s: %w", v, err)
	}
	return d, nil
}

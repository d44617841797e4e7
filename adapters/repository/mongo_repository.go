package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/ports"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

const (
	IdentitiesCollection = "identities"
	ScoresCollection     = "scores"
	FollowersCollection  = "followers"
	ClientsCollection    = "oauth_clients"
)

// maxScoreUpdateAttempts bounds optimistic retries on version conflicts
const maxScoreUpdateAttempts = 5

var errVersionConflict = errors.New("score record modified concurrently")

type identityDoc struct {
	Address   string    `bson:"_id"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
}

type scoreDoc struct {
	Address           string    `bson:"_id"`
	OwnScore          string    `bson:"own_score"`
	OwnerBonus        string    `bson:"owner_bonus"`
	FollowerCount     int       `bson:"follower_count"`
	SyncState         string    `bson:"sync_state"`
	LastSyncedOnchain time.Time `bson:"last_synced_onchain"`
	Version           int64     `bson:"version"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

type followerDoc struct {
	Owner     string    `bson:"owner"`
	Follower  string    `bson:"follower"`
	CreatedAt time.Time `bson:"created_at"`
}

type clientDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	SecretHash   string    `bson:"secret_hash"`
	RedirectURIs []string  `bson:"redirect_uris"`
	MinScore     int64     `bson:"min_score"`
	RequireNFT   bool      `bson:"require_nft"`
	Active       bool      `bson:"active"`
	CreatedAt    time.Time `bson:"created_at"`
}

// MongoRepository stores identities, scores, followers and clients in MongoDB
type MongoRepository struct {
	client     *mongo.Client
	identities *mongo.Collection
	scores     *mongo.Collection
	followers  *mongo.Collection
	clients    *mongo.Collection
}

// NewMongoRepository connects with tracing enabled and ensures indexes
func NewMongoRepository(ctx context.Context, uri, dbName string) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(uri).SetMonitor(otelmongo.NewMonitor())
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB primary: %w", err)
	}

	db := client.Database(dbName)
	repo := &MongoRepository{
		client:     client,
		identities: db.Collection(IdentitiesCollection),
		scores:     db.Collection(ScoresCollection),
		followers:  db.Collection(FollowersCollection),
		clients:    db.Collection(ClientsCollection),
	}

	if err := repo.createIndexes(ctx); err != nil {
		return nil, err
	}

	log.Info().Str("database", dbName).Msg("MongoDB repository initialized")
	return repo, nil
}

func (r *MongoRepository) createIndexes(ctx context.Context) error {
	_, err := r.followers.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "follower", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "follower", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create follower indexes: %w", err)
	}

	_, err = r.scores.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sync_state", Value: 1}, {Key: "updated_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create score index: %w", err)
	}
	return nil
}

// Close disconnects the client
func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

var (
	_ ports.IdentityRepository = (*MongoRepository)(nil)
	_ ports.ClientRepository   = (*MongoRepository)(nil)
)

func (r *MongoRepository) CreateIdentity(ctx context.Context, address string) (*core.Identity, bool, error) {
	doc := identityDoc{Address: address, Status: string(core.IdentityActive), CreatedAt: time.Now().UTC()}

	_, err := r.identities.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		existing, err := r.GetIdentity(ctx, address)
		return existing, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert identity: %w", err)
	}
	return doc.toIdentity(), true, nil
}

func (r *MongoRepository) GetIdentity(ctx context.Context, address string) (*core.Identity, error) {
	var doc identityDoc
	err := r.identities.FindOne(ctx, bson.M{"_id": address}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	return doc.toIdentity(), nil
}

func (r *MongoRepository) SetIdentityStatus(ctx context.Context, address string, status core.IdentityStatus) error {
	res, err := r.identities.UpdateOne(ctx, bson.M{"_id": address}, bson.M{"$set": bson.M{"status": string(status)}})
	if err != nil {
		return fmt.Errorf("failed to update identity status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *MongoRepository) GetScore(ctx context.Context, address string) (*core.ScoreRecord, error) {
	var doc scoreDoc
	err := r.scores.FindOne(ctx, bson.M{"_id": address}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load score: %w", err)
	}
	return doc.toRecord()
}

// UpdateScore uses the version field for optimistic concurrency and retries
// on conflict
func (r *MongoRepository) UpdateScore(ctx context.Context, address string, mutate func(rec *core.ScoreRecord) error) (*core.ScoreRecord, error) {
	for attempt := 0; attempt < maxScoreUpdateAttempts; attempt++ {
		rec, err := r.GetScore(ctx, address)
		exists := err == nil
		if errors.Is(err, ports.ErrNotFound) {
			rec = core.NewScoreRecord(address, time.Now().UTC())
		} else if err != nil {
			return nil, err
		}

		prevVersion := rec.Version
		if err := mutate(rec); err != nil {
			return nil, err
		}
		rec.Version = prevVersion + 1
		rec.UpdatedAt = time.Now().UTC()
		doc := toScoreDoc(rec)

		if !exists {
			_, err = r.scores.InsertOne(ctx, doc)
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
		} else {
			var res *mongo.UpdateResult
			res, err = r.scores.ReplaceOne(ctx, bson.M{"_id": address, "version": prevVersion}, doc)
			if err == nil && res.MatchedCount == 0 {
				continue
			}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to store score: %w", err)
		}
		return rec, nil
	}
	return nil, errVersionConflict
}

func (r *MongoRepository) ListPendingScores(ctx context.Context, limit int) ([]*core.ScoreRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.scores.Find(ctx, bson.M{"sync_state": string(core.SyncStatePending)}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending scores: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []scoreDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode pending scores: %w", err)
	}

	records := make([]*core.ScoreRecord, 0, len(docs))
	for _, d := range docs {
		rec, err := d.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *MongoRepository) AddFollower(ctx context.Context, owner, follower string) error {
	_, err := r.followers.UpdateOne(ctx,
		bson.M{"owner": owner, "follower": follower},
		bson.M{"$setOnInsert": followerDoc{Owner: owner, Follower: follower, CreatedAt: time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to add follower: %w", err)
	}
	return nil
}

func (r *MongoRepository) RemoveFollower(ctx context.Context, owner, follower string) error {
	if _, err := r.followers.DeleteOne(ctx, bson.M{"owner": owner, "follower": follower}); err != nil {
		return fmt.Errorf("failed to remove follower: %w", err)
	}
	return nil
}

func (r *MongoRepository) ListFollowers(ctx context.Context, owner string) ([]string, error) {
	cursor, err := r.followers.Find(ctx, bson.M{"owner": owner}, options.Find().SetSort(bson.D{{Key: "follower", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []followerDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode followers: %w", err)
	}

	followers := make([]string, 0, len(docs))
	for _, d := range docs {
		followers = append(followers, d.Follower)
	}
	return followers, nil
}

func (r *MongoRepository) ListOwners(ctx context.Context) ([]string, error) {
	values, err := r.followers.Distinct(ctx, "owner", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}

	owners := make([]string, 0, len(values))
	for _, v := range values {
		if owner, ok := v.(string); ok {
			owners = append(owners, owner)
		}
	}
	return owners, nil
}

func (r *MongoRepository) CreateClient(ctx context.Context, client *core.Client) error {
	doc := clientDoc{
		ID:           client.ID,
		Name:         client.Name,
		SecretHash:   client.SecretHash,
		RedirectURIs: client.RedirectURIs,
		MinScore:     client.MinScore,
		RequireNFT:   client.RequireNFT,
		Active:       client.Active,
		CreatedAt:    client.CreatedAt,
	}
	if _, err := r.clients.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert client: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetClient(ctx context.Context, clientID string) (*core.Client, error) {
	var doc clientDoc
	err := r.clients.FindOne(ctx, bson.M{"_id": clientID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	return &core.Client{
		ID:           doc.ID,
		Name:         doc.Name,
		SecretHash:   doc.SecretHash,
		RedirectURIs: doc.RedirectURIs,
		MinScore:     doc.MinScore,
		RequireNFT:   doc.RequireNFT,
		Active:       doc.Active,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (d identityDoc) toIdentity() *core.Identity {
	return &core.Identity{Address: d.Address, Status: core.IdentityStatus(d.Status), CreatedAt: d.CreatedAt}
}

func toScoreDoc(rec *core.ScoreRecord) scoreDoc {
	return scoreDoc{
		Address:           rec.Address,
		OwnScore:          rec.OwnScore.String(),
		OwnerBonus:        rec.OwnerBonus.String(),
		FollowerCount:     rec.FollowerCount,
		SyncState:         string(rec.SyncState),
		LastSyncedOnchain: rec.LastSyncedOnchain,
		Version:           rec.Version,
		UpdatedAt:         rec.UpdatedAt,
	}
}

func (d scoreDoc) toRecord() (*core.ScoreRecord, error) {
	own, err := decimal.NewFromString(d.OwnScore)
	if err != nil {
		return nil, fmt.Errorf("invalid own_score %q: %w", d.OwnScore, err)
	}
	bonus, err := decimal.NewFromString(d.OwnerBonus)
	if err != nil {
		return nil, fmt.Errorf("invalid owner_bonus %q: %w", d.OwnerBonus, err)
	}
	return &core.ScoreRecord{
		Address:           d.Address,
		OwnScore:          own,
		OwnerBonus:        bonus,
		FollowerCount:     d.FollowerCount,
		SyncState:         core.SyncState(d.SyncState),
		LastSyncedOnchain: d.LastSyncedOnchain,
		Version:           d.Version,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}

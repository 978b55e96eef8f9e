package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/account-system/internal/core/domain"
	"github.com/99minutos/account-system/internal/core/ports"
)

const (
	identityCollection = "identities"
	counterCollection  = "counters"
	identitySequence   = "identities"
	opTimeout          = 5 * time.Second
)

// IdentityRepository implements ports.AccountDirectory on MongoDB. Ids are
// int64 values drawn from a counters document so they match the other
// backends.
type IdentityRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{db: db, coll: db.Collection(identityCollection)}
}

type identityDoc struct {
	ID           int64     `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	Active       bool      `bson:"is_active"`
	Privileged   bool      `bson:"is_superuser"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toDoc(i *domain.Identity) identityDoc {
	return identityDoc{
		ID:           i.ID,
		Username:     i.Username,
		Email:        i.Email,
		PasswordHash: i.PasswordHash,
		Active:       i.Active,
		Privileged:   i.Privileged,
		CreatedAt:    i.CreatedAt.UTC(),
		UpdatedAt:    i.UpdatedAt.UTC(),
	}
}

func (d identityDoc) toDomain() *domain.Identity {
	return &domain.Identity{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Active:       d.Active,
		Privileged:   d.Privileged,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// patchSet translates a patch into a $set document; nil fields are omitted.
func patchSet(p ports.IdentityPatch) bson.M {
	set := bson.M{}
	if p.Username != nil {
		set["username"] = *p.Username
	}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.PasswordHash != nil {
		set["password_hash"] = *p.PasswordHash
	}
	if p.Active != nil {
		set["is_active"] = *p.Active
	}
	if p.Privileged != nil {
		set["is_superuser"] = *p.Privileged
	}
	if len(set) > 0 && !p.UpdatedAt.IsZero() {
		set["updated_at"] = p.UpdatedAt.UTC()
	}
	return set
}

// EnsureIndexes creates the unique username and email indexes.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create identity indexes: %w", err)
	}
	return nil
}

func (r *IdentityRepository) FindByID(ctx context.Context, id int64) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *IdentityRepository) FindByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *IdentityRepository) findOne(ctx context.Context, filter bson.M) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc identityDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) List(ctx context.Context, offset, limit int) ([]*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]*domain.Identity, 0, limit)
	for cur.Next(ctx) {
		var doc identityDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode identity: %w", err)
		}
		out = append(out, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return out, nil
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return nil, err
	}

	doc := toDoc(identity)
	doc.ID = id
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.db.Collection(counterCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": identitySequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next identity id: %w", err)
	}
	return counter.Seq, nil
}

func (r *IdentityRepository) Update(ctx context.Context, id int64, patch ports.IdentityPatch) (*domain.Identity, error) {
	set := patchSet(patch)
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc identityDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, domain.ErrIdentityNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, domain.ErrConflict
	case err != nil:
		return nil, fmt.Errorf("update identity: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

// Ping checks the server behind the repository's database.
func (r *IdentityRepository) Ping(ctx context.Context) error {
	return r.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}

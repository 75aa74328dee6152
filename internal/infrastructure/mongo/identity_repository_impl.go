package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/oksasatya/reach-identity/internal/domain/entity"
	"github.com/oksasatya/reach-identity/internal/domain/repository"
)

// collections holds one collection per identity kind.
var collections = map[entity.Kind]string{
	entity.KindStudent:   "students",
	entity.KindVolunteer: "volunteers",
	entity.KindAdmin:     "admins",
}

type identityDoc struct {
	ID               bson.ObjectID  `bson:"_id,omitempty"`
	Username         string         `bson:"username"`
	Password         string         `bson:"password"`
	Email            string         `bson:"email"`
	Phone            string         `bson:"phone"`
	VerificationCode string         `bson:"verification_code"`
	Verified         bool           `bson:"verified"`
	Profile          map[string]any `bson:"profile,omitempty"`
	CreatedAt        time.Time      `bson:"created_at"`
	UpdatedAt        time.Time      `bson:"updated_at"`
}

func (d *identityDoc) toEntity(kind entity.Kind) *entity.Identity {
	return &entity.Identity{
		Handle:           d.ID.Hex(),
		Kind:             kind,
		Username:         d.Username,
		Password:         d.Password,
		Email:            d.Email,
		Phone:            d.Phone,
		VerificationCode: d.VerificationCode,
		Verified:         d.Verified,
		Profile:          d.Profile,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// IdentityRepository stores identities in MongoDB; the handle is the ObjectID hex.
type IdentityRepository struct {
	db  *mongo.Database
	now func() time.Time
}

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{db: db, now: time.Now}
}

// EnsureIndexes creates the username lookup index on every kind collection.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	for _, name := range collections {
		_, err := r.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "username", Value: 1}, {Key: "created_at", Value: 1}},
		})
		if err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
	}
	return nil
}

func (r *IdentityRepository) coll(kind entity.Kind) (*mongo.Collection, error) {
	name, ok := collections[kind]
	if !ok {
		return nil, fmt.Errorf("identity kind %q: %w", kind, repository.ErrNotFound)
	}
	return r.db.Collection(name), nil
}

func notFound(kind entity.Kind, key string) error {
	return fmt.Errorf("%s %s: %w", kind, key, repository.ErrNotFound)
}

func (r *IdentityRepository) Insert(ctx context.Context, u *entity.Identity) (string, error) {
	c, err := r.coll(u.Kind)
	if err != nil {
		return "", err
	}
	now := r.now().UTC()
	doc := identityDoc{
		ID:               bson.NewObjectID(),
		Username:         u.Username,
		Password:         u.Password,
		Email:            u.Email,
		Phone:            u.Phone,
		VerificationCode: u.VerificationCode,
		Verified:         u.Verified,
		Profile:          u.Profile,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := c.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert %s: %w", u.Kind, err)
	}
	return doc.ID.Hex(), nil
}

func (r *IdentityRepository) FindByHandle(ctx context.Context, kind entity.Kind, handle string) (*entity.Identity, error) {
	c, err := r.coll(kind)
	if err != nil {
		return nil, err
	}
	id, err := bson.ObjectIDFromHex(handle)
	if err != nil {
		return nil, notFound(kind, handle)
	}
	var doc identityDoc
	err = c.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(kind, handle)
	}
	if err != nil {
		return nil, err
	}
	return doc.toEntity(kind), nil
}

func (r *IdentityRepository) FindByUsername(ctx context.Context, kind entity.Kind, username string) (*entity.Identity, error) {
	c, err := r.coll(kind)
	if err != nil {
		return nil, err
	}
	var doc identityDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	err = c.FindOne(ctx, bson.M{"username": username}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(kind, fmt.Sprintf("%q", username))
	}
	if err != nil {
		return nil, err
	}
	return doc.toEntity(kind), nil
}

func (r *IdentityRepository) UpdateVerified(ctx context.Context, kind entity.Kind, handle string, verified bool) error {
	c, err := r.coll(kind)
	if err != nil {
		return err
	}
	id, err := bson.ObjectIDFromHex(handle)
	if err != nil {
		return notFound(kind, handle)
	}
	res, err := c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"verified": verified, "updated_at": r.now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return notFound(kind, handle)
	}
	return nil
}

func (r *IdentityRepository) Delete(ctx context.Context, kind entity.Kind, handle string) error {
	c, err := r.coll(kind)
	if err != nil {
		return err
	}
	id, err := bson.ObjectIDFromHex(handle)
	if err != nil {
		return notFound(kind, handle)
	}
	res, err := c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return notFound(kind, handle)
	}
	return nil
}

func (r *IdentityRepository) ListUnverified(ctx context.Context, kind entity.Kind) ([]*entity.Identity, error) {
	c, err := r.coll(kind)
	if err != nil {
		return nil, err
	}
	cur, err := c.Find(ctx, bson.M{"verified": false}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []identityDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*entity.Identity, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toEntity(kind))
	}
	return out, nil
}

var _ repository.IdentityRepository = (*IdentityRepository)(nil)

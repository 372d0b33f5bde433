package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	accountdomain "github.com/sngm3741/wanderlust/api/internal/account/domain"
	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository implements account/application.AccountRepository using MongoDB.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new Mongo-backed user repository.
func NewUserRepository(db *mongo.Database, collectionName string) *UserRepository {
	return &UserRepository{collection: db.Collection(collectionName)}
}

// Create はユーザー名の重複チェックを行った上でアカウントを登録する。
// 並行登録はユニークインデックス (EnsureIndexes) で弾く。
func (r *UserRepository) Create(ctx context.Context, account *accountdomain.Account) error {
	username := strings.TrimSpace(account.Username)
	if err := r.collection.FindOne(ctx, bson.M{"username": username}).Err(); err == nil {
		return accountdomain.ErrUsernameTaken
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	doc := UserDocument{
		ID:           primitive.NewObjectID(),
		Username:     username,
		Email:        strings.TrimSpace(account.Email),
		PasswordHash: account.PasswordHash,
		CreatedAt:    createdAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return accountdomain.ErrUsernameTaken
		}
		return err
	}
	account.ID = doc.ID.Hex()
	account.CreatedAt = createdAt
	return nil
}

// FindByUsername returns domain.ErrNotFound when no account matches.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*accountdomain.Account, error) {
	var doc UserDocument
	if err := r.collection.FindOne(ctx, bson.M{"username": strings.TrimSpace(username)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &accountdomain.Account{
		ID:           doc.ID.Hex(),
		Username:     doc.Username,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

// loadUsers は公開用の User を ID 引きで返す。パスワードハッシュは射影で除外する。
func loadUsers(ctx context.Context, collection *mongo.Collection, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.User, error) {
	users := make(map[primitive.ObjectID]domain.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	cursor, err := collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(bson.M{"passwordHash": 0}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var doc UserDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		users[doc.ID] = domain.User{ID: doc.ID.Hex(), Username: doc.Username, Email: doc.Email}
	}
	return users, cursor.Err()
}

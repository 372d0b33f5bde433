package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ImageDocument はリスティング画像の埋め込み構造。
type ImageDocument struct {
	URL      string `bson:"url"`
	Filename string `bson:"filename"`
}

// GeometryDocument is the GeoJSON point stored on each listing.
// Type が空のドキュメントは geometry 導入前に作られたレコード。
type GeometryDocument struct {
	Type        string     `bson:"type,omitempty"`
	Coordinates [2]float64 `bson:"coordinates"`
}

// ListingDocument は MongoDB 上でのリスティングスキーマ。
type ListingDocument struct {
	ID          primitive.ObjectID   `bson:"_id"`
	Title       string               `bson:"title"`
	Description string               `bson:"description,omitempty"`
	Image       ImageDocument        `bson:"image"`
	Price       int                  `bson:"price"`
	Location    string               `bson:"location"`
	Country     string               `bson:"country"`
	Reviews     []primitive.ObjectID `bson:"reviews,omitempty"`
	Owner       *primitive.ObjectID  `bson:"owner,omitempty"`
	Geometry    *GeometryDocument    `bson:"geometry,omitempty"`
	CreatedAt   *time.Time           `bson:"createdAt,omitempty"`
	UpdatedAt   *time.Time           `bson:"updatedAt,omitempty"`
}

// ReviewDocument はリスティングに紐づくレビュー。
type ReviewDocument struct {
	ID        primitive.ObjectID  `bson:"_id"`
	Listing   primitive.ObjectID  `bson:"listing"`
	Author    *primitive.ObjectID `bson:"author,omitempty"`
	Comment   string              `bson:"comment"`
	Rating    int                 `bson:"rating"`
	CreatedAt time.Time           `bson:"createdAt"`
}

// UserDocument holds identity and the bcrypt password hash.
type UserDocument struct {
	ID           primitive.ObjectID `bson:"_id"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"passwordHash"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

package domain

import "time"

// GeometryTypePoint は GeoJSON Point の type タグ。
const GeometryTypePoint = "Point"

// Listing represents a rentable property record.
type Listing struct {
	ID          string
	Title       string
	Description string
	Price       int
	Location    string
	Country     string
	Image       Image
	Geometry    Geometry
	OwnerID     string
	ReviewIDs   []string
	// Owner と Reviews は Show のときだけ展開される。
	Owner     *User
	Reviews   []Review
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Image はストレージに置かれた画像の公開 URL と保存キーの組。
type Image struct {
	URL      string
	Filename string
}

// IsZero は画像が未設定かどうかを返す。
func (i Image) IsZero() bool {
	return i.URL == "" && i.Filename == ""
}

// Geometry is a GeoJSON-like point. Coordinates are ordered [longitude, latitude].
type Geometry struct {
	Type        string
	Coordinates [2]float64
}

// SentinelGeometry は座標が解決できなかったときの原点ポイントを返す。
func SentinelGeometry() Geometry {
	return Geometry{Type: GeometryTypePoint, Coordinates: [2]float64{0, 0}}
}

// PointGeometry は座標から Point を組み立てる。
func PointGeometry(c Coordinate) Geometry {
	return Geometry{Type: GeometryTypePoint, Coordinates: [2]float64{c.Longitude, c.Latitude}}
}

// HasType reports whether the geometry carries a type tag. Records created before
// geometry existed decode without one.
func (g Geometry) HasType() bool {
	return g.Type != ""
}

// Longitude returns the first coordinate.
func (g Geometry) Longitude() float64 { return g.Coordinates[0] }

// Latitude returns the second coordinate.
func (g Geometry) Latitude() float64 { return g.Coordinates[1] }

// User is the public identity of an account, used for owner/author expansion.
type User struct {
	ID       string
	Username string
	Email    string
}

// Review is a rating left on a listing.
type Review struct {
	ID        string
	ListingID string
	AuthorID  string
	Author    *User
	Comment   string
	Rating    int
	CreatedAt time.Time
}

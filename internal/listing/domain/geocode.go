package domain

// Coordinate is a WGS 84 position.
type Coordinate struct {
	Longitude float64
	Latitude  float64
}

// GeocodeResult はジオコーディング結果のタグ付き値。Resolved か Unresolved のどちらかで、
// エラーは持たない。失敗は呼び出し側に伝えず Unresolved として吸収する。
type GeocodeResult struct {
	coordinate Coordinate
	resolved   bool
}

// Resolved wraps a coordinate returned by the lookup service.
func Resolved(c Coordinate) GeocodeResult {
	return GeocodeResult{coordinate: c, resolved: true}
}

// Unresolved is returned for no match, upstream failures and blank input.
func Unresolved() GeocodeResult {
	return GeocodeResult{}
}

// Coordinate returns the resolved coordinate and whether there was one.
func (r GeocodeResult) Coordinate() (Coordinate, bool) {
	return r.coordinate, r.resolved
}

// IsResolved reports whether a coordinate was found.
func (r GeocodeResult) IsResolved() bool {
	return r.resolved
}

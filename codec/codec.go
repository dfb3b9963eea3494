// Package codec centralizes encoding of structured records inside binary sets.
//
// Codec selection is a breaking-change boundary: persisted meta blobs record the
// name of the codec that wrote them, and every built-in codec must read plain
// JSON so the name itself can be recovered with the default.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

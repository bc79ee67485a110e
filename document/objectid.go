package document

import (
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"
)

// BSONTypeObjectID is the BSON type tag of an object identifier. It is the
// value projected into the virtual "bsontype" sub-field.
const BSONTypeObjectID = 7

// ObjectID is a 12-byte document identifier that schemas describe as the
// composite {oid: STRING, bsontype: INT}.
type ObjectID [12]byte

// ObjectIDFromHex parses a 24 character hex string.
func ObjectIDFromHex(s string) (ObjectID, error) {
	var id ObjectID
	if len(s) != 2*len(id) {
		return id, fmt.Errorf("invalid object id %q: want %d hex characters", s, 2*len(id))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("invalid object id %q: %w", s, err)
	}
	return id, nil
}

// Hex returns the lower-case hex form of id.
func (id ObjectID) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id ObjectID) String() string {
	return fmt.Sprintf("ObjectId(%q)", id.Hex())
}

// Field projects the virtual sub-fields of the composite.
func (id ObjectID) Field(name string) (any, bool) {
	switch name {
	case "oid":
		return id.Hex(), true
	case "bsontype":
		return int64(BSONTypeObjectID), true
	}
	return nil, false
}

// MarshalJSON writes id in MongoDB extended JSON form.
func (id ObjectID) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"$oid": id.Hex()})
}

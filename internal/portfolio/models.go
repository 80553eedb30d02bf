package portfolio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DocumentType is the discriminator of the single portfolio document.
const DocumentType = "portfolio_data"

// ItemIDField is the key under which array items carry their identifier.
const ItemIDField = "_id"

var ErrInvalidTarget = errors.New("invalid target")

// Document is the persisted portfolio. Exactly one exists per deployment.
type Document struct {
	ID        primitive.ObjectID     `json:"id,omitempty" bson:"_id,omitempty"`
	Type      string                 `json:"type" bson:"type"`
	Data      map[string]interface{} `json:"data" bson:"data"`
	CreatedAt time.Time              `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt" bson:"updatedAt"`
}

// Target addresses a section of the document, or an array field inside a
// section when Field is set.
type Target struct {
	Section string
	Field   string
}

// SectionTarget validates name and returns a target for the whole section.
func SectionTarget(section string) (Target, error) {
	if err := validateName("section", section); err != nil {
		return Target{}, err
	}
	return Target{Section: section}, nil
}

// ArrayTarget validates both names and returns a target for an array field.
func ArrayTarget(section, field string) (Target, error) {
	if err := validateName("section", section); err != nil {
		return Target{}, err
	}
	if err := validateName("array field", field); err != nil {
		return Target{}, err
	}
	return Target{Section: section, Field: field}, nil
}

// IsArray reports whether the target names an array field.
func (t Target) IsArray() bool { return t.Field != "" }

// Path is the dotted store path, e.g. "data.about.skills".
func (t Target) Path() string {
	if t.Field == "" {
		return "data." + t.Section
	}
	return "data." + t.Section + "." + t.Field
}

func (t Target) String() string {
	if t.Field == "" {
		return t.Section
	}
	return t.Section + "." + t.Field
}

// names become path segments, so they may not introduce extra segments or operators
func validateName(kind, name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty %s name", ErrInvalidTarget, kind)
	case strings.Contains(name, "."):
		return fmt.Errorf("%w: %s name %q contains '.'", ErrInvalidTarget, kind, name)
	case strings.HasPrefix(name, "$"):
		return fmt.Errorf("%w: %s name %q starts with '$'", ErrInvalidTarget, kind, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %s name contains NUL", ErrInvalidTarget, kind)
	}
	return nil
}

// Identifier is an item id as given by a caller: a valid ObjectID hex, an
// integer, or any other string.
type Identifier struct {
	raw   string
	oid   primitive.ObjectID
	typed bool
	num   int64
	isNum bool
}

// ParseIdentifier resolves s once: hex ObjectIDs become typed, integers also
// match numeric ids, everything else stays a raw string.
func ParseIdentifier(s string) Identifier {
	if oid, err := primitive.ObjectIDFromHex(s); err == nil {
		return Identifier{raw: s, oid: oid, typed: true}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Identifier{raw: s, num: n, isNum: true}
	}
	return Identifier{raw: s}
}

func (id Identifier) String() string { return id.raw }

// Value is the canonical stored form: the ObjectID for typed ids, the raw
// string otherwise.
func (id Identifier) Value() interface{} {
	if id.typed {
		return id.oid
	}
	return id.raw
}

// Candidates lists the stored values this identifier matches. A typed id
// also matches an item whose _id was stored as the same hex string, and an
// integer id matches the same number stored as any numeric type.
func (id Identifier) Candidates() []interface{} {
	switch {
	case id.typed:
		return []interface{}{id.oid, id.raw}
	case id.isNum:
		return []interface{}{id.raw, id.num}
	}
	return []interface{}{id.raw}
}

// Matches reports whether a stored _id value equals this identifier.
func (id Identifier) Matches(v interface{}) bool {
	switch x := v.(type) {
	case primitive.ObjectID:
		return id.typed && x == id.oid
	case string:
		return x == id.raw
	case int:
		return id.isNum && int64(x) == id.num
	case int32:
		return id.isNum && int64(x) == id.num
	case int64:
		return id.isNum && x == id.num
	case float64:
		return id.isNum && x == float64(id.num)
	}
	return false
}

// WithItemID returns a shallow copy of item carrying an _id. A present id is
// preserved; a missing, null, empty, zero, fractional or boolean one is
// replaced with a new ObjectID.
func WithItemID(item map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(item)+1)
	for k, v := range item {
		out[k] = v
	}
	if !hasID(out[ItemIDField]) {
		out[ItemIDField] = primitive.NewObjectID()
	}
	return out
}

// hasID reports whether v can later be addressed by an Identifier.
func hasID(v interface{}) bool {
	switch x := v.(type) {
	case nil, bool:
		return false
	case string:
		return x != ""
	case int:
		return x != 0
	case int32:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0 && x == float64(int64(x))
	}
	return true
}

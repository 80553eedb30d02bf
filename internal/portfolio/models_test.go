package portfolio

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTargetPaths(t *testing.T) {
	s, err := SectionTarget("about")
	require.NoError(t, err)
	require.False(t, s.IsArray())
	require.Equal(t, "data.about", s.Path())
	require.Equal(t, "about", s.String())

	a, err := ArrayTarget("about", "skills")
	require.NoError(t, err)
	require.True(t, a.IsArray())
	require.Equal(t, "data.about.skills", a.Path())
	require.Equal(t, "about.skills", a.String())
}

func TestTargetRejectsPathInjection(t *testing.T) {
	for _, name := range []string{"", "a.b", "$set", "x\x00y"} {
		_, err := SectionTarget(name)
		require.ErrorIs(t, err, ErrInvalidTarget, "section %q", name)

		_, err = ArrayTarget("about", name)
		require.ErrorIs(t, err, ErrInvalidTarget, "field %q", name)
	}
	// '$' is only rejected as a prefix
	_, err := SectionTarget("cost$")
	require.NoError(t, err)
}

func TestParseIdentifier(t *testing.T) {
	oid := primitive.NewObjectID()

	typed := ParseIdentifier(oid.Hex())
	require.Equal(t, oid, typed.Value())
	require.Equal(t, []interface{}{oid, oid.Hex()}, typed.Candidates())
	require.True(t, typed.Matches(oid))
	require.True(t, typed.Matches(oid.Hex()))
	require.False(t, typed.Matches(primitive.NewObjectID()))

	raw := ParseIdentifier("skill-1")
	require.Equal(t, "skill-1", raw.Value())
	require.Equal(t, []interface{}{"skill-1"}, raw.Candidates())
	require.True(t, raw.Matches("skill-1"))
	require.False(t, raw.Matches(oid))
	require.False(t, raw.Matches(42))

	num := ParseIdentifier("7")
	require.Equal(t, "7", num.Value())
	require.Equal(t, []interface{}{"7", int64(7)}, num.Candidates())
	require.True(t, num.Matches("7"))
	require.True(t, num.Matches(7.0))
	require.True(t, num.Matches(int32(7)))
	require.False(t, num.Matches(8.0))
}

func TestWithItemID(t *testing.T) {
	in := map[string]interface{}{"name": "Go"}
	out := WithItemID(in)
	require.IsType(t, primitive.ObjectID{}, out[ItemIDField])
	_, mutated := in[ItemIDField]
	require.False(t, mutated, "input must not be modified")

	kept := WithItemID(map[string]interface{}{"name": "Go", "_id": "custom"})
	require.Equal(t, "custom", kept[ItemIDField])

	empty := WithItemID(map[string]interface{}{"_id": ""})
	require.IsType(t, primitive.ObjectID{}, empty[ItemIDField])
}

func TestWithItemIDReplacesUnaddressableIDs(t *testing.T) {
	for _, v := range []interface{}{0.0, 0, int64(0), false, true, 1.5} {
		out := WithItemID(map[string]interface{}{"_id": v})
		require.IsType(t, primitive.ObjectID{}, out[ItemIDField], "id %#v", v)
	}
	for _, v := range []interface{}{7.0, int32(3), "x"} {
		out := WithItemID(map[string]interface{}{"_id": v})
		require.Equal(t, v, out[ItemIDField])
	}

	// a kept numeric id can be addressed again
	stored := WithItemID(map[string]interface{}{"_id": 7.0})
	require.True(t, ParseIdentifier("7").Matches(stored[ItemIDField]))
}

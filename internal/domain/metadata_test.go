package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_PreservesKeyOrder(t *testing.T) {
	m := NewMetadata().
		Set("zebra", StringValue("first")).
		Set("apple", NumberValue(2)).
		Set("mango", BoolValue(true))

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"zebra":"first","apple":2,"mango":true}`, string(out))

	// Round trip keeps the same order.
	decoded := NewMetadata()
	require.NoError(t, json.Unmarshal(out, decoded))
	assert.Equal(t, []string{"zebra", "apple", "mango"}, decoded.Keys())

	again, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again))
}

func TestMetadata_NestedObjects(t *testing.T) {
	raw := `{"sender":{"name":"alice","level":3},"flag":false}`

	m := NewMetadata()
	require.NoError(t, json.Unmarshal([]byte(raw), m))

	v, ok := m.Get("sender")
	require.True(t, ok)
	require.Equal(t, KindMap, v.Kind())

	nested := v.Map()
	name, ok := nested.Get("name")
	require.True(t, ok)
	assert.Equal(t, "alice", name.String())

	level, ok := nested.Get("level")
	require.True(t, ok)
	assert.Equal(t, float64(3), level.Number())

	flag, ok := m.Get("flag")
	require.True(t, ok)
	assert.Equal(t, KindBool, flag.Kind())
	assert.False(t, flag.Bool())
}

func TestMetadata_RejectsArrays(t *testing.T) {
	m := NewMetadata()
	err := json.Unmarshal([]byte(`{"tags":["a","b"]}`), m)
	assert.Error(t, err)
}

func TestMetadata_RejectsNull(t *testing.T) {
	m := NewMetadata()
	err := json.Unmarshal([]byte(`{"gone":null}`), m)
	assert.Error(t, err)
}

func TestMetadata_SetOverwritesWithoutDuplicatingKey(t *testing.T) {
	m := NewMetadata().
		Set("k", StringValue("one")).
		Set("k", StringValue("two"))

	assert.Equal(t, 1, m.Len())
	v, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, "two", v.String())
}

func TestChatMessage_MetadataRoundTrip(t *testing.T) {
	msg := ChatMessage{
		ID:       "msg_1_abc",
		SenderID: "alice",
		RoomID:   "event_fest",
		Content:  "hello",
		Metadata: NewMetadata().Set("priority", NumberValue(1)),
	}

	out, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded ChatMessage
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.NotNil(t, decoded.Metadata)

	v, ok := decoded.Metadata.Get("priority")
	require.True(t, ok)
	assert.Equal(t, float64(1), v.Number())
}

package genai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGroupingObject(t *testing.T) {
	t.Run("preserves the object's key order", func(t *testing.T) {
		groups, err := ParseGroupingObject([]byte(`{"Zebra":[2],"Apple":[0,1],"Mango":[]}`))
		require.NoError(t, err)

		require.Len(t, groups, 3)
		assert.Equal(t, AnswerGroup{Label: "Zebra", Indices: []int{2}}, groups[0])
		assert.Equal(t, AnswerGroup{Label: "Apple", Indices: []int{0, 1}}, groups[1])
		assert.Equal(t, "Mango", groups[2].Label)
		assert.Empty(t, groups[2].Indices)
	})

	t.Run("accepts an empty object", func(t *testing.T) {
		groups, err := ParseGroupingObject([]byte(`{}`))
		require.NoError(t, err)
		assert.Empty(t, groups)
	})

	t.Run("rejects non-object payloads", func(t *testing.T) {
		_, err := ParseGroupingObject([]byte(`["Apple","Zebra"]`))
		assert.Error(t, err)
	})

	t.Run("rejects non-integer-list values", func(t *testing.T) {
		_, err := ParseGroupingObject([]byte(`{"Apple":"not a list"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"Apple"`)
	})

	t.Run("rejects truncated JSON", func(t *testing.T) {
		_, err := ParseGroupingObject([]byte(`{"Apple":[0`))
		assert.Error(t, err)
	})
}

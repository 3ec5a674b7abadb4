package inference

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment_UnmarshalDetectronFields(t *testing.T) {
	var seg Segment
	err := json.Unmarshal([]byte(`{"id": 3, "isthing": false, "category_id": 40, "area": 1234.0, "score": 0.9}`), &seg)
	require.NoError(t, err)

	assert.Equal(t, 40, seg.CategoryID)
	assert.Equal(t, 1234, seg.Area)
	assert.True(t, seg.IsBackgroundClass, "isthing=false means a stuff class")
	assert.JSONEq(t, `3`, string(seg.Extra["id"]))
	assert.JSONEq(t, `0.9`, string(seg.Extra["score"]))
	assert.NotContains(t, seg.Extra, "isthing")
}

func TestSegment_UnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "missing category", data: `{"isthing": true, "area": 1}`},
		{name: "missing area", data: `{"isthing": true, "category_id": 1}`},
		{name: "missing class flag", data: `{"category_id": 1, "area": 1}`},
		{name: "fractional area", data: `{"isthing": true, "category_id": 1, "area": 1.5}`},
		{name: "not an object", data: `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seg Segment
			assert.Error(t, json.Unmarshal([]byte(tt.data), &seg))
		})
	}
}

func TestSegment_MarshalKeepsExtraFields(t *testing.T) {
	seg := Segment{
		CategoryID:        7,
		IsBackgroundClass: true,
		Area:              450,
		CategoryTitle:     "wall-wood",
		Extra:             map[string]json.RawMessage{"id": json.RawMessage(`12`)},
	}

	out, err := json.Marshal(seg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":12,"category_id":7,"is_background_class":true,"area":450,"category_title":"wall-wood"}`, string(out))

	var back Segment
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, seg, back)
}

func TestMetadata_Name(t *testing.T) {
	meta := Metadata{
		ThingClasses: []string{"person", "chair"},
		StuffClasses: []string{"sky", "wall"},
	}

	name, ok := meta.Name(Segment{CategoryID: 1, IsBackgroundClass: false})
	assert.True(t, ok)
	assert.Equal(t, "chair", name)

	name, ok = meta.Name(Segment{CategoryID: 1, IsBackgroundClass: true})
	assert.True(t, ok)
	assert.Equal(t, "wall", name)

	_, ok = meta.Name(Segment{CategoryID: 2, IsBackgroundClass: true})
	assert.False(t, ok)
	_, ok = meta.Name(Segment{CategoryID: -1})
	assert.False(t, ok)
}

package inference

import (
	"encoding/json"
	"fmt"
	"math"
)

// Segment describes one region of a panoptic segmentation.
// Fields the model attaches beyond the known ones are kept in Extra and
// written back out unchanged.
type Segment struct {
	CategoryID        int
	IsBackgroundClass bool
	Area              int
	CategoryTitle     string
	Extra             map[string]json.RawMessage
}

const (
	keyCategoryID        = "category_id"
	keyIsBackgroundClass = "is_background_class"
	keyIsThing           = "isthing"
	keyArea              = "area"
	keyCategoryTitle     = "category_title"
)

// MarshalJSON flattens Extra next to the known fields.
func (s Segment) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+4)
	for k, v := range s.Extra {
		out[k] = v
	}
	out[keyCategoryID] = s.CategoryID
	out[keyIsBackgroundClass] = s.IsBackgroundClass
	out[keyArea] = s.Area
	if s.CategoryTitle != "" {
		out[keyCategoryTitle] = s.CategoryTitle
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts either is_background_class or the detectron2 style isthing flag.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var seg Segment
	var err error
	if seg.CategoryID, err = intField(raw, keyCategoryID); err != nil {
		return err
	}
	if seg.Area, err = intField(raw, keyArea); err != nil {
		return err
	}

	switch {
	case raw[keyIsBackgroundClass] != nil:
		if err := json.Unmarshal(raw[keyIsBackgroundClass], &seg.IsBackgroundClass); err != nil {
			return fmt.Errorf("segment field %s: %w", keyIsBackgroundClass, err)
		}
	case raw[keyIsThing] != nil:
		var isThing bool
		if err := json.Unmarshal(raw[keyIsThing], &isThing); err != nil {
			return fmt.Errorf("segment field %s: %w", keyIsThing, err)
		}
		seg.IsBackgroundClass = !isThing
	default:
		return fmt.Errorf("segment is missing %s", keyIsBackgroundClass)
	}

	if v, ok := raw[keyCategoryTitle]; ok {
		if err := json.Unmarshal(v, &seg.CategoryTitle); err != nil {
			return fmt.Errorf("segment field %s: %w", keyCategoryTitle, err)
		}
	}

	for k, v := range raw {
		switch k {
		case keyCategoryID, keyArea, keyIsBackgroundClass, keyIsThing, keyCategoryTitle:
			continue
		}
		if seg.Extra == nil {
			seg.Extra = make(map[string]json.RawMessage)
		}
		seg.Extra[k] = v
	}

	*s = seg
	return nil
}

// intField reads a required integral number; values like 12.0 are accepted.
func intField(raw map[string]json.RawMessage, key string) (int, error) {
	v, ok := raw[key]
	if !ok {
		return 0, fmt.Errorf("segment is missing %s", key)
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, fmt.Errorf("segment field %s: %w", key, err)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("segment field %s is not an integer: %v", key, f)
	}
	return int(f), nil
}

// Metadata holds the category names of the dataset the model was trained on.
type Metadata struct {
	ThingClasses []string `json:"thing_classes"`
	StuffClasses []string `json:"stuff_classes"`
}

// Name looks the category up in the thing or stuff table selected by IsBackgroundClass.
func (m Metadata) Name(seg Segment) (string, bool) {
	classes := m.ThingClasses
	if seg.IsBackgroundClass {
		classes = m.StuffClasses
	}
	if seg.CategoryID < 0 || seg.CategoryID >= len(classes) {
		return "", false
	}
	return classes[seg.CategoryID], true
}

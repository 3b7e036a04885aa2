package frameworks

type Category struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
}

type ScaleEntry struct {
	Value       float64 `json:"value" yaml:"value"`
	Label       string  `json:"label" yaml:"label"`
	Description string  `json:"description,omitempty" yaml:"description"`
}

type Scale []ScaleEntry

// Contains reports whether value is one of the scale's points.
func (s Scale) Contains(value float64) bool {
	for _, entry := range s {
		if entry.Value == value {
			return true
		}
	}
	return false
}

// Label returns the label for value, or "" when value is off the scale.
func (s Scale) Label(value float64) string {
	for _, entry := range s {
		if entry.Value == value {
			return entry.Label
		}
	}
	return ""
}

type Framework struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description"`
	Categories  []Category `json:"categories" yaml:"categories"`
	RatingScale Scale      `json:"ratingScale" yaml:"ratingScale"`
	Version     int        `json:"version" yaml:"-"`
}

func (f Framework) Category(id string) (Category, bool) {
	for _, category := range f.Categories {
		if category.ID == id {
			return category, true
		}
	}
	return Category{}, false
}

func (f Framework) clone() Framework {
	out := f
	out.Categories = append([]Category(nil), f.Categories...)
	out.RatingScale = append(Scale(nil), f.RatingScale...)
	return out
}

package frameworks

// Defaults returns the frameworks shipped with the product.
func Defaults() []Framework {
	return []Framework{
		{
			ID:   "framework1",
			Name: "Leadership & Innovation Framework",
			Categories: []Category{
				{ID: "driving-results", Name: "Driving Results"},
				{ID: "delivering-expertise", Name: "Delivering Expertise"},
				{ID: "inspiring-others", Name: "Inspiring Others"},
				{ID: "continuous-improvement", Name: "Continuous Improvement & Innovation"},
			},
			RatingScale: Scale{
				{Value: 5, Label: "Distinctive", Description: "Consistently exceeds expectations"},
				{Value: 4, Label: "Very Strong", Description: "Frequently exceeds expectations"},
				{Value: 3, Label: "Strong", Description: "Meets expectations consistently"},
				{Value: 2, Label: "Needs Development", Description: "Partially meets expectations"},
				{Value: 1, Label: "Did Not Meet", Description: "Does not meet expectations"},
			},
		},
		{
			ID:   "framework2",
			Name: "Project Management Framework",
			Categories: []Category{
				{ID: "project-management", Name: "Project & Task Management"},
				{ID: "stakeholder-engagement", Name: "Stakeholder Engagement"},
				{ID: "quality", Name: "Quality"},
				{ID: "strategic-initiatives", Name: "Strategic Initiatives"},
			},
			RatingScale: Scale{
				{Value: 5, Label: "Significantly Exceeds", Description: "Far exceeds expectations"},
				{Value: 4, Label: "Exceeds", Description: "Exceeds expectations"},
				{Value: 3, Label: "Meets", Description: "Meets expectations"},
				{Value: 2, Label: "Almost Met", Description: "Nearly meets expectations"},
				{Value: 1, Label: "Did Not Meet", Description: "Does not meet expectations"},
			},
		},
	}
}

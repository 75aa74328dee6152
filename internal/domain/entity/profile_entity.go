package entity

// StudentProfile, VolunteerProfile and AdminProfile are the kind-specific
// sign-up payloads. They are flattened into Identity.Profile on sign-up.

type StudentProfile struct {
	Name         string    `json:"name"`
	GuardianName string    `json:"guardian_name"`
	School       string    `json:"school"`
	Scores       []float64 `json:"scores"`
	Badges       []int     `json:"badges"`
}

type VolunteerProfile struct {
	Name           string   `json:"name"`
	School         string   `json:"school"`
	VolunteerHours float64  `json:"volunteer_hours"`
	Badges         []string `json:"badges"`
}

type AdminProfile struct {
	Name string `json:"name"`
}

func (p StudentProfile) ToMap() map[string]any {
	return map[string]any{
		"name":          p.Name,
		"guardian_name": p.GuardianName,
		"school":        p.School,
		"scores":        nonNil(p.Scores),
		"badges":        nonNil(p.Badges),
	}
}

func (p VolunteerProfile) ToMap() map[string]any {
	return map[string]any{
		"name":            p.Name,
		"school":          p.School,
		"volunteer_hours": p.VolunteerHours,
		"badges":          nonNil(p.Badges),
	}
}

func (p AdminProfile) ToMap() map[string]any {
	return map[string]any{"name": p.Name}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

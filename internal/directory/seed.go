package directory

import model "github.com/peoplegrid/backend/internal/model/directory"

func floatPtr(v float64) *float64 { return &v }

// Seed provides development-mode directory records so the service is usable
// before a sync from the directory of record runs.
func Seed() []model.Participant {
	return []model.Participant{
		{
			ID:           "p-1001",
			Name:         "Asha Raman",
			Email:        "asha.raman@example.org",
			Phone:        "+1-415-555-0183",
			Organization: "Bay Area Makers Collective",
			Role:         "Community Lead",
			Latitude:     floatPtr(37.7749),
			Longitude:    floatPtr(-122.4194),
		},
		{
			ID:             "p-1002",
			Name:           "Diego Fuentes",
			Email:          "diego.fuentes@example.org",
			Phone:          "+1-510-555-0124",
			Organization:   "Oakland Urban Gardens",
			Role:           "Volunteer Coordinator",
			Latitude:       floatPtr(37.8044),
			Longitude:      floatPtr(-122.2712),
			IsPhonePrivate: true,
		},
		{
			ID:           "p-1003",
			Name:         "Mira Kovač",
			Email:        "mira.kovac@example.org",
			Organization: "SF Language Exchange",
			Role:         "Organizer",
			Latitude:     floatPtr(37.7599),
			Longitude:    floatPtr(-122.4148),
		},
	}
}

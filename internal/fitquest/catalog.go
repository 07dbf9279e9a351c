package fitquest

// DefaultZones returns a fresh copy of the Doha zone catalog. All zones start
// uncaptured.
func DefaultZones() []Zone {
	zones := []Zone{
		{
			ID:           "z1",
			Name:         "Museum of Islamic Art",
			Description:  "Waterfront museum on its own island off the Corniche.",
			Latitude:     25.2948,
			Longitude:    51.5390,
			RadiusMeters: 200,
			Points:       250,
			Category:     CategoryLandmark,
			CanCapture:   true,
		},
		{
			ID:           "z2",
			Name:         "Souq Waqif",
			Description:  "Restored market quarter with spice stalls and falcon shops.",
			Latitude:     25.2867,
			Longitude:    51.5333,
			RadiusMeters: 250,
			Points:       200,
			Category:     CategoryCultural,
			CanCapture:   true,
		},
		{
			ID:           "z3",
			Name:         "Katara Cultural Village",
			Description:  "Amphitheatre, galleries and beach north of West Bay.",
			Latitude:     25.3604,
			Longitude:    51.5257,
			RadiusMeters: 300,
			Points:       200,
			Category:     CategoryCultural,
			CanCapture:   true,
		},
		{
			ID:           "z4",
			Name:         "Aspire Park",
			Description:  "The city's largest park, with a lake and running loops.",
			Latitude:     25.2631,
			Longitude:    51.4421,
			RadiusMeters: 400,
			Points:       150,
			Category:     CategoryPark,
			CanCapture:   true,
		},
		{
			ID:           "z5",
			Name:         "MIA Park",
			Description:  "Seafront park beside the Museum of Islamic Art.",
			Latitude:     25.2966,
			Longitude:    51.5436,
			RadiusMeters: 300,
			Points:       150,
			Category:     CategoryPark,
			CanCapture:   true,
		},
		{
			ID:           "z6",
			Name:         "Villaggio Mall",
			Description:  "Venetian-themed mall next to Aspire Zone.",
			Latitude:     25.2593,
			Longitude:    51.4435,
			RadiusMeters: 200,
			Points:       100,
			Category:     CategoryMall,
			CanCapture:   true,
		},
		{
			ID:           "z7",
			Name:         "The Pearl-Qatar",
			Description:  "Marina promenade on an artificial island.",
			Latitude:     25.3705,
			Longitude:    51.5511,
			RadiusMeters: 350,
			Points:       180,
			Category:     CategoryLandmark,
			CanCapture:   true,
		},
		{
			ID:           "z8",
			Name:         "National Museum of Qatar",
			Description:  "Desert-rose building at the south end of the Corniche.",
			Latitude:     25.2873,
			Longitude:    51.5481,
			RadiusMeters: 250,
			Points:       220,
			Category:     CategoryLandmark,
			CanCapture:   true,
		},
		{
			ID:           "z9",
			Name:         "Partner Gym West Bay",
			Description:  "Check in at the partner gym for bonus points.",
			Latitude:     25.3215,
			Longitude:    51.5290,
			RadiusMeters: 100,
			Points:       120,
			Category:     CategoryPartner,
			CanCapture:   true,
		},
		{
			ID:           "z10",
			Name:         "Al Bidda Park",
			Description:  "Green belt between the Corniche and the Diwan.",
			Latitude:     25.2980,
			Longitude:    51.5180,
			RadiusMeters: 350,
			Points:       150,
			Category:     CategoryPark,
			CanCapture:   false,
		},
	}
	for i := range zones {
		zones[i].Tag = TagUncaptured
	}
	return zones
}

// DefaultMilestones returns a fresh copy of the distance milestone catalog.
func DefaultMilestones() []Milestone {
	return []Milestone{
		{
			ID:          "m1",
			Distance:    5,
			Title:       "First Steps",
			Description: "Walk your first 5 km.",
			Reward:      "10% off your next delivery",
			RewardType:  RewardDiscount,
			IconName:    "footprints",
		},
		{
			ID:          "m2",
			Distance:    25,
			Title:       "City Walker",
			Description: "Cover 25 km across Doha.",
			Reward:      "QAR 25 food voucher",
			RewardType:  RewardVoucher,
			IconName:    "medal",
		},
		{
			ID:          "m3",
			Distance:    50,
			Title:       "Half Century",
			Description: "Reach 50 km total distance.",
			Reward:      "Free pharmacy delivery for a month",
			RewardType:  RewardDiscount,
			IconName:    "trophy",
		},
		{
			ID:          "m4",
			Distance:    100,
			Title:       "Century Club",
			Description: "Walk 100 km.",
			Reward:      "Branded water bottle",
			RewardType:  RewardPhysical,
			IconName:    "crown",
		},
	}
}

// DefaultStats is the aggregate a new player starts with.
func DefaultStats() UserStats {
	return UserStats{Level: 1}
}

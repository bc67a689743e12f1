package tier

// Leaderboard bands
const BAND_PREMIUM = "premium"
const BAND_STANDARD = "standard"
const BAND_HALL_OF_FAME = "hall_of_fame"
const BAND_NONE = ""

type Tier struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Band        string `json:"band"`
}

var tiers = []Tier{
	{
		Name:        "premium",
		DisplayName: "Premium",
		Description: "Position #1, forever.",
		Amount:      30000,
		Band:        BAND_PREMIUM,
	},
	{
		Name:        "standard",
		DisplayName: "Standard",
		Description: "Positions 2-11 on the board.",
		Amount:      15000,
		Band:        BAND_STANDARD,
	},
	{
		Name:        "hall_of_fame",
		DisplayName: "Hall of Fame",
		Description: "Positions 12-100 on the board.",
		Amount:      7500,
		Band:        BAND_HALL_OF_FAME,
	},
	{
		Name:        "bare_minimum",
		DisplayName: "Bare Minimum",
		Description: "We build it. No board position.",
		Amount:      5000,
		Band:        BAND_NONE,
	},
}

// List returns the catalog in display order.
func List() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// ByName returns the tier for a tier name, or false for an unknown name.
func ByName(name string) (Tier, bool) {
	for _, t := range tiers {
		if t.Name == name {
			return t, true
		}
	}
	return Tier{}, false
}

// ByAmount returns the tier matching an amount in cents. Reconciliation uses
// this to recover the band from the provider-reported amount.
func ByAmount(amount int64) (Tier, bool) {
	for _, t := range tiers {
		if t.Amount == amount {
			return t, true
		}
	}
	return Tier{}, false
}

// BandRange returns the inclusive position range for a band. ok is false for
// bands with no leaderboard presence.
func BandRange(band string) (int, int, bool) {
	switch band {
	case BAND_PREMIUM:
		return 1, 1, true
	case BAND_STANDARD:
		return 2, 11, true
	case BAND_HALL_OF_FAME:
		return 12, 100, true
	}
	return 0, 0, false
}

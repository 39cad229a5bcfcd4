package daily

import "time"

// PageUser marks that a client has been counted for a page on a given
// UTC day. Its mere existence is the deduplication fact; the unique index
// on (client_id, page, day) is what makes the upsert race-safe.
type PageUser struct {
	ClientID  string    `bson:"client_id"`
	Page      string    `bson:"page"`
	Day       string    `bson:"day"`
	FirstSeen time.Time `bson:"first_seen"`
}

// PageCount is the derived unique-visitor aggregate for (page, day).
type PageCount struct {
	Page  string `bson:"page"`
	Day   string `bson:"day"`
	Count int64  `bson:"count"`
}

// PageView is the raw traffic counter for (page, day); every start call
// increments it regardless of uniqueness.
type PageView struct {
	Page  string `bson:"page"`
	Day   string `bson:"day"`
	Count int64  `bson:"count"`
}

// ActiveUser is the site-wide, page-less daily active marker driven by
// presence heartbeats.
type ActiveUser struct {
	ClientID  string    `bson:"client_id"`
	Day       string    `bson:"day"`
	FirstSeen time.Time `bson:"first_seen"`
}

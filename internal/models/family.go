package models

import "time"

// Family is the tenant boundary grouping a head, parents and children
type Family struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// FamilyWithMembers combines a family with its members, ordered by id
type FamilyWithMembers struct {
	Family
	Members []User `json:"members"`
}

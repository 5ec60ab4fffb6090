// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data: plain values, no behaviour
// beyond what the type itself needs.
package model

// DefaultColor is the map color used when no user is selected.
const DefaultColor = "teal"

// User is a family member whose visited countries are tracked.
//
// Name is unique across users and at most MaxUserNameLength characters.
// Color is any CSS color the browser understands ("teal", "#ff8800").
type User struct {
	ID    int64  `json:"id"    db:"id"`
	Name  string `json:"name"  db:"name"`
	Color string `json:"color" db:"color"`
}

// MaxUserNameLength is the longest accepted user name, in characters.
const MaxUserNameLength = 15

package models

import "time"

// User is a local account. Accounts created from a directory login have an
// empty PasswordHash; Email and FullName mirror the directory.
type User struct {
	ID           string
	UserName     string
	Email        string
	FullName     string
	PasswordHash string
	CreatedAt    time.Time
}

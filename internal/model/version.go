package model

import "time"

// Version is one entry of the published game update history.
type Version struct {
	Number int         `json:"number"`
	Type   VersionType `json:"type"`
	Date   time.Time   `json:"date"`
}

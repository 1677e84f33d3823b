package database

import "time"

const (
	OutcomeDone     = "done"
	OutcomeAborted  = "aborted"
	OutcomeVanished = "vanished"
)

// Download is one finished session in the history table.
type Download struct {
	ID         uint   `gorm:"primaryKey"`
	TorrentID  string `gorm:"index"`
	Name       string
	Kind       string
	Outcome    string `gorm:"index"`
	Size       int64
	StartedAt  time.Time
	FinishedAt time.Time `gorm:"index"`
}

package models

import (
	"time"

	"github.com/favipie/FPL-hacker/internal/optimizer"
)

// Club is a Premier League club as delivered by the bootstrap feed. The
// primary key is the feed's own team id.
type Club struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	ShortName string    `gorm:"uniqueIndex;size:10;not null" json:"short_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Club) TableName() string {
	return "clubs"
}

type Player struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ElementID       int       `gorm:"uniqueIndex:idx_element_gameweek;not null" json:"element_id"`
	Name            string    `gorm:"not null" json:"name"`
	Position        string    `gorm:"not null" json:"position"`
	Club            string    `gorm:"not null" json:"club"`
	ClubID          uint      `json:"club_id"`
	Cost            int       `gorm:"not null" json:"cost"`
	PredictedPoints float64   `gorm:"not null" json:"predicted_points"`
	Status          string    `gorm:"not null" json:"status"`
	News            string    `json:"news,omitempty"`
	Gameweek        int       `gorm:"uniqueIndex:idx_element_gameweek;index;not null" json:"gameweek"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Player) TableName() string {
	return "players"
}

// Price returns the player's cost in whole £m.
func (p Player) Price() float64 {
	return float64(p.Cost) / 10.0
}

// ToEntity converts a stored player into an optimizer entity. Entity ids
// are the feed's element ids, which are stable across gameweeks.
func (p Player) ToEntity() optimizer.Entity {
	return optimizer.Entity{
		ID:             p.ElementID,
		Name:           p.Name,
		Category:       p.Position,
		Club:           p.Club,
		Cost:           p.Cost,
		PredictedValue: p.PredictedPoints,
		Availability:   p.Status,
	}
}

// EntitiesFrom converts a player batch for pool construction.
func EntitiesFrom(players []Player) []optimizer.Entity {
	entities := make([]optimizer.Entity, 0, len(players))
	for _, p := range players {
		entities = append(entities, p.ToEntity())
	}
	return entities
}

// ClubCodes returns the distinct short names present in a club batch.
func ClubCodes(clubs []Club) []string {
	codes := make([]string, 0, len(clubs))
	for _, c := range clubs {
		codes = append(codes, c.ShortName)
	}
	return codes
}

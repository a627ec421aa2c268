package domain

import (
	"time"

	"github.com/google/uuid"
)

type AnimeEntry struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string    `gorm:"size:255;not null;index" json:"title"`
	TitleEnglish string    `gorm:"size:255" json:"title_english"`
	Description  string    `gorm:"type:text" json:"description"`
	Genre        string    `gorm:"size:64;index" json:"genre"`
	Year         int       `gorm:"index" json:"year"`
	Season       string    `gorm:"size:16" json:"season"`
	Studio       string    `gorm:"size:128" json:"studio"`
	Episodes     int       `json:"episodes"`
	Status       string    `gorm:"size:32" json:"status"`
	PosterURL    string    `gorm:"size:1024" json:"poster_url"`
	VideoURL     string    `gorm:"size:1024" json:"video_url"`
	Rating       float64   `json:"rating"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (AnimeEntry) TableName() string { return "anime" }

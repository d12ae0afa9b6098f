package models

import (
	"time"
	"unicode/utf8"
)

// ExcerptLength is the number of characters of content kept in an excerpt.
const ExcerptLength = 150

// Post represents a post in the Inkwell application.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:100;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Excerpt   string    `gorm:"type:text;not null" json:"excerpt"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MakeExcerpt returns the first ExcerptLength characters of content followed by "...".
// The ellipsis is appended even when content is shorter.
func MakeExcerpt(content string) string {
	if utf8.RuneCountInString(content) <= ExcerptLength {
		return content + "..."
	}
	runes := []rune(content)
	return string(runes[:ExcerptLength]) + "..."
}

package models

import "time"

// ItemType selects which content field of an Item is populated.
type ItemType string

const (
	ItemTypePDF     ItemType = "pdf"
	ItemTypeYouTube ItemType = "youtube_url"
)

// Item is a piece of content filed under a Subcategory.
type Item struct {
	ID          string     `json:"_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Type        ItemType   `json:"type"`
	FilePath    string     `json:"file_path,omitempty"`
	YouTubeURL  string     `json:"youtube_url,omitempty"`
	Subcategory Ref        `json:"subcategory_id"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func (i Item) EntityID() string   { return i.ID }
func (i Item) Created() time.Time { return i.CreatedAt }

// Source returns the content location selected by the item type.
func (i Item) Source() string {
	if i.Type == ItemTypePDF {
		return i.FilePath
	}
	return i.YouTubeURL
}

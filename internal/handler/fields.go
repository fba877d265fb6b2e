package handler

import (
	"github.com/noah-isme/academy-admin/internal/crud"
	"github.com/noah-isme/academy-admin/internal/models"
)

func staticOptions(options ...Option) func(crud.Lookups) []Option {
	return func(crud.Lookups) []Option { return options }
}

func categoryOptions(l crud.Lookups) []Option {
	out := make([]Option, 0, len(l.Categories))
	for _, c := range l.Categories {
		out = append(out, Option{Value: c.ID, Label: c.Name})
	}
	return out
}

func subcategoryOptions(l crud.Lookups) []Option {
	out := make([]Option, 0, len(l.Subcategories))
	for _, s := range l.Subcategories {
		label := s.Name
		if parent := l.CategoryName(s.Category.ID); parent != crud.UnknownCategory {
			label = parent + " / " + s.Name
		}
		out = append(out, Option{Value: s.ID, Label: label})
	}
	return out
}

// UserFields is the user dialog.
var UserFields = []Field{
	{Name: "fullName", Label: "Full Name", Kind: "text"},
	{Name: "email", Label: "Email", Kind: "email"},
	{Name: "password", Label: "Password", Kind: "password", Placeholder: "Leave blank to keep the current password when editing"},
	{Name: "role", Label: "Role", Kind: "select", Options: staticOptions(
		Option{Value: string(models.RoleUser), Label: "User"},
		Option{Value: string(models.RoleAdmin), Label: "Admin"},
	)},
}

// CategoryFields is the category dialog.
var CategoryFields = []Field{
	{Name: "name", Label: "Name", Kind: "text"},
	{Name: "description", Label: "Description", Kind: "textarea"},
}

// SubcategoryFields is the subcategory dialog.
var SubcategoryFields = []Field{
	{Name: "name", Label: "Name", Kind: "text"},
	{Name: "categoryId", Label: "Category", Kind: "select", Options: categoryOptions},
	{Name: "description", Label: "Description", Kind: "textarea"},
}

// ItemFields is the item dialog.
var ItemFields = []Field{
	{Name: "name", Label: "Name", Kind: "text"},
	{Name: "subcategoryId", Label: "Subcategory", Kind: "select", Options: subcategoryOptions},
	{Name: "type", Label: "Type", Kind: "select", Options: staticOptions(
		Option{Value: string(models.ItemTypePDF), Label: "PDF"},
		Option{Value: string(models.ItemTypeYouTube), Label: "YouTube"},
	)},
	{Name: "filePath", Label: "File Path", Kind: "text", Placeholder: "/uploads/..."},
	{Name: "youtubeUrl", Label: "YouTube URL", Kind: "url", Placeholder: "https://www.youtube.com/watch?v=..."},
	{Name: "description", Label: "Description", Kind: "textarea"},
}

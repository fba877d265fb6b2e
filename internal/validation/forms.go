package validation

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/academy-admin/internal/models"
)

// LoginForm is the sign-in form.
type LoginForm struct {
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required,min=6"`
}

func (LoginForm) FieldMessages() map[string]string {
	return map[string]string{
		"email.required":    "Email is required",
		"email.email":       "Invalid email format",
		"password.required": "Password is required",
		"password.min":      "Password must be at least 6 characters",
	}
}

var userMessages = map[string]string{
	"fullName.required": "Full name is required",
	"fullName.min":      "Full name must be at least 2 characters",
	"email.required":    "Email is required",
	"email.email":       "Invalid email format",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 6 characters",
	"role.required":     "Role is required",
	"role.oneof":        "Role must be either admin or user",
}

// UserCreateForm requires a password.
type UserCreateForm struct {
	FullName string `form:"fullName" json:"fullName" validate:"required,min=2"`
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required,min=6"`
	Role     string `form:"role" json:"role" validate:"required,oneof=admin user"`
}

func (UserCreateForm) FieldMessages() map[string]string { return userMessages }

// UserUpdateForm treats an empty password as "leave unchanged".
type UserUpdateForm struct {
	FullName string `form:"fullName" json:"fullName" validate:"required,min=2"`
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"omitempty,min=6"`
	Role     string `form:"role" json:"role" validate:"required,oneof=admin user"`
}

func (UserUpdateForm) FieldMessages() map[string]string { return userMessages }

// ProfileForm edits the signed-in admin. The role is not editable here.
type ProfileForm struct {
	FullName string `form:"fullName" json:"fullName" validate:"required,min=2"`
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"omitempty,min=6"`
}

func (ProfileForm) FieldMessages() map[string]string { return userMessages }

// CategoryForm creates or edits a category.
type CategoryForm struct {
	Name        string `form:"name" json:"name" validate:"required,min=2"`
	Description string `form:"description" json:"description"`
}

func (CategoryForm) FieldMessages() map[string]string {
	return map[string]string{
		"name.required": "Category name is required",
		"name.min":      "Category name must be at least 2 characters",
	}
}

// SubcategoryForm creates or edits a subcategory.
type SubcategoryForm struct {
	Name        string `form:"name" json:"name" validate:"required,min=2"`
	Description string `form:"description" json:"description"`
	CategoryID  string `form:"categoryId" json:"categoryId" validate:"required"`
}

func (SubcategoryForm) FieldMessages() map[string]string {
	return map[string]string{
		"name.required":       "Subcategory name is required",
		"name.min":            "Subcategory name must be at least 2 characters",
		"categoryId.required": "Parent category is required",
	}
}

// ItemForm creates or edits an item. Exactly one of FilePath and YouTubeURL
// is meaningful, selected by Type.
type ItemForm struct {
	Name          string `form:"name" json:"name" validate:"required,min=2"`
	Description   string `form:"description" json:"description"`
	Type          string `form:"type" json:"type" validate:"required,oneof=pdf youtube_url"`
	SubcategoryID string `form:"subcategoryId" json:"subcategoryId" validate:"required"`
	FilePath      string `form:"filePath" json:"filePath" validate:"required_if=Type pdf"`
	YouTubeURL    string `form:"youtubeUrl" json:"youtubeUrl" validate:"required_if=Type youtube_url"`
}

func (ItemForm) FieldMessages() map[string]string {
	return map[string]string{
		"name.required":          "Name is required",
		"name.min":               "Name must be at least 2 characters",
		"type.required":          "Type is required",
		"type.oneof":             "Type must be either pdf or youtube_url",
		"subcategoryId.required": "Subcategory is required",
		"filePath.required_if":   "File path is required for PDF type",
		"youtubeUrl.required_if": "YouTube URL is required for YouTube type",
		"youtubeUrl.url":         "Must be a valid URL",
	}
}

// itemStructLevel checks the URL shape only when the item is a YouTube link.
func itemStructLevel(sl validator.StructLevel) {
	form := sl.Current().Interface().(ItemForm)
	if form.Type != string(models.ItemTypeYouTube) || form.YouTubeURL == "" {
		return
	}
	if err := sl.Validator().Var(form.YouTubeURL, "url"); err != nil {
		sl.ReportError(form.YouTubeURL, "youtubeUrl", "YouTubeURL", "url", "")
	}
}

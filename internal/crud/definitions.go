package crud

import (
	"context"
	"strings"

	"github.com/noah-isme/academy-admin/internal/apiclient"
	"github.com/noah-isme/academy-admin/internal/models"
	"github.com/noah-isme/academy-admin/internal/validation"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
	"github.com/noah-isme/academy-admin/pkg/format"
)

// Reference label names.
const (
	LabelCategory    = "category"
	LabelSubcategory = "subcategory"
)

// requireParent turns a failed existence check into a field error.
func requireParent(exists bool, err error, field, message string) error {
	if err != nil {
		return err
	}
	if !exists {
		return appErrors.WithFields(map[string]string{field: message})
	}
	return nil
}

// Users builds the user screen definition. Create and edit share the form
// shape; edit validates it with the optional-password rules.
func Users(res Resource[models.User], v *validation.Validator) Definition[models.User, validation.UserCreateForm] {
	return Definition[models.User, validation.UserCreateForm]{
		Key:      "users",
		Title:    "Users",
		Label:    "User",
		Resource: res,
		Validate: func(form validation.UserCreateForm, mode Mode) error {
			if mode == ModeUpdate {
				return v.Check(validation.UserUpdateForm(form))
			}
			return v.Check(form)
		},
		ToWire: func(form validation.UserCreateForm, mode Mode) apiclient.Payload {
			body := map[string]interface{}{
				"fullName": strings.TrimSpace(form.FullName),
				"email":    strings.TrimSpace(form.Email),
				"role":     form.Role,
			}
			if form.Password != "" {
				body["password"] = form.Password
			}
			return apiclient.JSON(body)
		},
		Prefill: func(u models.User) validation.UserCreateForm {
			return validation.UserCreateForm{FullName: u.FullName, Email: u.Email, Role: string(u.Role)}
		},
		SearchText: func(u models.User, _ map[string]string) []string {
			return []string{u.FullName, u.Email}
		},
		DeleteWarning: "Are you sure you want to delete this user?",
		Columns: []Column[models.User]{
			{Header: "Full Name", Value: func(r Row[models.User]) string { return r.Record.FullName }},
			{Header: "Email", Value: func(r Row[models.User]) string { return r.Record.Email }},
			{Header: "Role", Value: func(r Row[models.User]) string { return string(r.Record.Role) }},
			{Header: "Created", Value: func(r Row[models.User]) string { return format.Date(r.Record.CreatedAt) }},
		},
	}
}

// Categories builds the category screen definition.
func Categories(res Resource[models.Category], v *validation.Validator) Definition[models.Category, validation.CategoryForm] {
	return Definition[models.Category, validation.CategoryForm]{
		Key:      "categories",
		Title:    "Categories",
		Label:    "Category",
		Resource: res,
		Validate: func(form validation.CategoryForm, _ Mode) error { return v.Check(form) },
		ToWire: func(form validation.CategoryForm, _ Mode) apiclient.Payload {
			return apiclient.JSON(map[string]interface{}{
				"name":        strings.TrimSpace(form.Name),
				"description": strings.TrimSpace(form.Description),
			})
		},
		Prefill: func(c models.Category) validation.CategoryForm {
			return validation.CategoryForm{Name: c.Name, Description: c.Description}
		},
		SearchText: func(c models.Category, _ map[string]string) []string {
			return []string{c.Name, c.Description}
		},
		DeleteWarning: "Are you sure you want to delete this category? This will also delete all associated subcategories and items.",
		Columns: []Column[models.Category]{
			{Header: "Name", Value: func(r Row[models.Category]) string { return r.Record.Name }},
			{Header: "Description", Value: func(r Row[models.Category]) string { return r.Record.Description }},
			{Header: "Created", Value: func(r Row[models.Category]) string { return format.Date(r.Record.CreatedAt) }},
		},
	}
}

// Subcategories builds the subcategory screen definition.
func Subcategories(res Resource[models.Subcategory], taxonomy *Taxonomy, v *validation.Validator) Definition[models.Subcategory, validation.SubcategoryForm] {
	return Definition[models.Subcategory, validation.SubcategoryForm]{
		Key:      "subcategories",
		Title:    "Subcategories",
		Label:    "Subcategory",
		Resource: res,
		Validate: func(form validation.SubcategoryForm, _ Mode) error { return v.Check(form) },
		CheckReferences: func(ctx context.Context, creds apiclient.Credentials, form validation.SubcategoryForm) error {
			exists, err := taxonomy.CategoryExists(ctx, creds, form.CategoryID)
			return requireParent(exists, err, "categoryId", "Parent category is required")
		},
		ToWire: func(form validation.SubcategoryForm, _ Mode) apiclient.Payload {
			return apiclient.JSON(map[string]interface{}{
				"name":        strings.TrimSpace(form.Name),
				"description": strings.TrimSpace(form.Description),
				"category_id": form.CategoryID,
			})
		},
		Prefill: func(s models.Subcategory) validation.SubcategoryForm {
			return validation.SubcategoryForm{Name: s.Name, Description: s.Description, CategoryID: s.Category.ID}
		},
		Labels: func(s models.Subcategory, l Lookups) map[string]string {
			return map[string]string{LabelCategory: l.CategoryName(s.Category.ID)}
		},
		SearchText: func(s models.Subcategory, labels map[string]string) []string {
			return []string{s.Name, s.Description, labels[LabelCategory]}
		},
		LoadLookups: func(ctx context.Context, creds apiclient.Credentials) Lookups {
			return taxonomy.Categories(ctx, creds)
		},
		DeleteWarning: "Are you sure you want to delete this subcategory? This will also delete all associated items.",
		Columns: []Column[models.Subcategory]{
			{Header: "Name", Value: func(r Row[models.Subcategory]) string { return r.Record.Name }},
			{Header: "Category", Value: func(r Row[models.Subcategory]) string { return r.Label(LabelCategory) }},
			{Header: "Description", Value: func(r Row[models.Subcategory]) string { return r.Record.Description }},
			{Header: "Created", Value: func(r Row[models.Subcategory]) string { return format.Date(r.Record.CreatedAt) }},
		},
	}
}

// Items builds the item screen definition. Only the content field selected by
// the item type is sent; updates blank the other one so a type change never
// leaves both populated.
func Items(res Resource[models.Item], taxonomy *Taxonomy, v *validation.Validator) Definition[models.Item, validation.ItemForm] {
	return Definition[models.Item, validation.ItemForm]{
		Key:      "items",
		Title:    "Items",
		Label:    "Item",
		Resource: res,
		Validate: func(form validation.ItemForm, _ Mode) error { return v.Check(form) },
		CheckReferences: func(ctx context.Context, creds apiclient.Credentials, form validation.ItemForm) error {
			exists, err := taxonomy.SubcategoryExists(ctx, creds, form.SubcategoryID)
			return requireParent(exists, err, "subcategoryId", "Subcategory is required")
		},
		ToWire: func(form validation.ItemForm, mode Mode) apiclient.Payload {
			body := map[string]interface{}{
				"name":           strings.TrimSpace(form.Name),
				"description":    strings.TrimSpace(form.Description),
				"type":           form.Type,
				"subcategory_id": form.SubcategoryID,
			}
			switch models.ItemType(form.Type) {
			case models.ItemTypePDF:
				body["file_path"] = strings.TrimSpace(form.FilePath)
				if mode == ModeUpdate {
					body["youtube_url"] = ""
				}
			case models.ItemTypeYouTube:
				body["youtube_url"] = strings.TrimSpace(form.YouTubeURL)
				if mode == ModeUpdate {
					body["file_path"] = ""
				}
			}
			return apiclient.JSON(body)
		},
		Prefill: func(i models.Item) validation.ItemForm {
			return validation.ItemForm{
				Name:          i.Name,
				Description:   i.Description,
				Type:          string(i.Type),
				SubcategoryID: i.Subcategory.ID,
				FilePath:      i.FilePath,
				YouTubeURL:    i.YouTubeURL,
			}
		},
		Labels: func(i models.Item, l Lookups) map[string]string {
			labels := map[string]string{LabelSubcategory: UnknownSubcategory, LabelCategory: UnknownCategory}
			if sub, ok := l.Subcategory(i.Subcategory.ID); ok {
				labels[LabelSubcategory] = sub.Name
				labels[LabelCategory] = l.CategoryName(sub.Category.ID)
			}
			return labels
		},
		SearchText: func(i models.Item, labels map[string]string) []string {
			return []string{i.Name, i.Description, labels[LabelSubcategory], labels[LabelCategory]}
		},
		LoadLookups: func(ctx context.Context, creds apiclient.Credentials) Lookups {
			return taxonomy.Full(ctx, creds)
		},
		DeleteWarning:   "Are you sure you want to delete this item?",
		ResolvePrevious: true,
		Columns: []Column[models.Item]{
			{Header: "Name", Value: func(r Row[models.Item]) string { return r.Record.Name }},
			{Header: "Type", Value: func(r Row[models.Item]) string { return string(r.Record.Type) }},
			{Header: "Subcategory", Value: func(r Row[models.Item]) string { return r.Label(LabelSubcategory) }},
			{Header: "Category", Value: func(r Row[models.Item]) string { return r.Label(LabelCategory) }},
			{Header: "Source", Value: func(r Row[models.Item]) string { return r.Record.Source() }},
			{Header: "Created", Value: func(r Row[models.Item]) string { return format.Date(r.Record.CreatedAt) }},
		},
	}
}

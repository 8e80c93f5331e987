package directory

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldError reports a validation failure for one field of one element.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidateSettings rejects malformed settings before they reach the store.
func ValidateSettings(settings Settings) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(settings.Title) == "" {
		errs = append(errs, FieldError{Path: "title", Message: "title is required"})
	}
	if settings.Logo != "" && !isHTTPURL(settings.Logo) {
		errs = append(errs, FieldError{Path: "logo", Message: "logo must be an absolute http(s) URL"})
	}
	return errs
}

// ValidateCategories rejects a malformed tree before anything is persisted.
// Errors are reported per field so the admin UI can point at the offender.
func ValidateCategories(categories []Category) []FieldError {
	var errs []FieldError
	seenCategory := make(map[string]struct{}, len(categories))
	for i, category := range categories {
		path := fmt.Sprintf("categories[%d]", i)
		if strings.TrimSpace(category.ID) == "" {
			errs = append(errs, FieldError{Path: path + ".id", Message: "id is required"})
		} else if _, dup := seenCategory[category.ID]; dup {
			errs = append(errs, FieldError{Path: path + ".id", Message: "duplicate category id"})
		} else {
			seenCategory[category.ID] = struct{}{}
		}
		if strings.TrimSpace(category.Name) == "" {
			errs = append(errs, FieldError{Path: path + ".name", Message: "name is required"})
		}

		seenLink := make(map[string]struct{}, len(category.Links))
		for j, link := range category.Links {
			linkPath := fmt.Sprintf("%s.links[%d]", path, j)
			if strings.TrimSpace(link.ID) == "" {
				errs = append(errs, FieldError{Path: linkPath + ".id", Message: "id is required"})
			} else if _, dup := seenLink[link.ID]; dup {
				errs = append(errs, FieldError{Path: linkPath + ".id", Message: "duplicate link id"})
			} else {
				seenLink[link.ID] = struct{}{}
			}
			if strings.TrimSpace(link.Name) == "" {
				errs = append(errs, FieldError{Path: linkPath + ".name", Message: "name is required"})
			}
			if !isHTTPURL(link.URL) {
				errs = append(errs, FieldError{Path: linkPath + ".url", Message: "url must be an absolute http(s) URL"})
			}
			if link.LogoURL != "" && !isHTTPURL(link.LogoURL) {
				errs = append(errs, FieldError{Path: linkPath + ".logoUrl", Message: "logoUrl must be an absolute http(s) URL"})
			}
		}
	}
	return errs
}

func isHTTPURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

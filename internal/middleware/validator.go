package middleware

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

// Input validation utilities

var uuidPattern = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)

// ValidateID validates client/report identifiers (UUID format)
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if !uuidPattern.MatchString(strings.ToLower(id)) {
		return fmt.Errorf("invalid id format")
	}
	return nil
}

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}

	// Allow alphanumeric, dash, underscore (max 64 chars)
	pattern := `^[a-zA-Z0-9_-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, tenant)
	if !matched {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}

	return nil
}

// ValidateVendors checks vendor names against the known sources. An empty
// list is valid and means "all configured vendors".
func ValidateVendors(names []string) ([]entities.Source, error) {
	allowed := map[string]entities.Source{
		string(entities.SourceCWPSA): entities.SourceCWPSA,
		string(entities.SourceImmy):  entities.SourceImmy,
		string(entities.SourceM365):  entities.SourceM365,
	}

	var out []entities.Source
	for _, name := range names {
		src, ok := allowed[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("invalid vendor: %s (allowed: cwpsa, immy, m365)", name)
		}
		out = append(out, src)
	}
	return out, nil
}

// ValidatePagination parses and bounds page/page_size query values.
func ValidatePagination(pageStr, sizeStr string) (page, size int, err error) {
	page = 1
	size = 20

	if pageStr != "" {
		page, err = strconv.Atoi(pageStr)
		if err != nil || page <= 0 {
			return 0, 0, fmt.Errorf("invalid page: %s", pageStr)
		}
	}
	if sizeStr != "" {
		size, err = strconv.Atoi(sizeStr)
		if err != nil || size <= 0 {
			return 0, 0, fmt.Errorf("invalid page_size: %s", sizeStr)
		}
	}
	if size > 100 {
		size = 100
	}
	return page, size, nil
}

// ValidateLimit bounds a list limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

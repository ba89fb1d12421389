package database

import (
	"errors"
	"regexp"
	"strings"

	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"gorm.io/gorm"
)

// sqlite: "UNIQUE constraint failed: modules.course_id, modules.order_index"
var sqliteColumns = regexp.MustCompile(`constraint failed: (.+)$`)

// Translate maps driver and GORM errors for entity onto the apperr taxonomy.
// Errors that are already typed pass through unchanged.
func Translate(entity string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.AsValidation(err); ok {
		return err
	}
	if errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity)
	}

	msg := err.Error()
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value"):
		return apperr.Validation(entity, columns(msg), "unique", entity+" already exists")

	case errors.Is(err, gorm.ErrForeignKeyViolated) ||
		strings.Contains(msg, "FOREIGN KEY constraint failed") ||
		strings.Contains(msg, "violates foreign key constraint"):
		return apperr.Validation(entity, "", "foreign_key", "referenced row does not exist")

	case errors.Is(err, gorm.ErrCheckConstraintViolated) ||
		strings.Contains(msg, "CHECK constraint failed") ||
		strings.Contains(msg, "violates check constraint"):
		return apperr.Validation(entity, columns(msg), "check", "value is out of range")
	}

	return err
}

func columns(msg string) string {
	m := sqliteColumns.FindStringSubmatch(msg)
	if len(m) < 2 {
		return ""
	}
	parts := strings.Split(m[1], ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if dot := strings.LastIndex(p, "."); dot >= 0 {
			p = p[dot+1:]
		}
		parts[i] = p
	}
	return strings.Join(parts, ",")
}

// IsUniqueViolation reports whether err is a translated uniqueness failure
func IsUniqueViolation(err error) bool {
	v, ok := apperr.AsValidation(err)
	return ok && v.Rule == "unique"
}

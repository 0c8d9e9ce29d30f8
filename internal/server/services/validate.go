package services

import (
	"regexp"

	"github.com/dmitrijs2005/axiomvault/internal/common"
)

const (
	maxUsernameLen    = 150
	maxKeyMaterialLen = 4096
	maxFileNameLen    = 255
	maxFileTypeLen    = 255
	maxCategoryLen    = 20
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

func validateUsername(username string) error {
	switch {
	case username == "":
		return &common.ValidationError{Field: "username", Reason: "is required"}
	case len(username) > maxUsernameLen:
		return &common.ValidationError{Field: "username", Reason: "is too long"}
	case !usernamePattern.MatchString(username):
		return &common.ValidationError{Field: "username", Reason: "may contain only letters, digits and @.+-_"}
	}
	return nil
}

// keyMaterial is a named opaque blob supplied by the client.
type keyMaterial struct {
	field string
	value []byte
}

func validateKeyMaterial(items ...keyMaterial) error {
	for _, it := range items {
		if len(it.value) == 0 {
			return &common.ValidationError{Field: it.field, Reason: "is required"}
		}
		if len(it.value) > maxKeyMaterialLen {
			return &common.ValidationError{Field: it.field, Reason: "is too long"}
		}
	}
	return nil
}

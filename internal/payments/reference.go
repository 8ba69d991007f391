package payments

import (
	"errors"
	"strings"

	"github.com/wagmicrew/trafikskolax-backend/internal/models"
)

var ErrInvalidReference = errors.New("invalid merchant reference")

var kindPrefixes = map[models.EntityKind]string{
	models.KindBooking: "booking",
	models.KindPackage: "package",
	models.KindTeori:   "teori",
}

// EncodeReference builds the merchant reference handed to the gateway,
// e.g. "booking_abc123". The inverse is DecodeReference.
func EncodeReference(kind models.EntityKind, id string) string {
	prefix, ok := kindPrefixes[kind]
	if !ok {
		return ""
	}
	return prefix + "_" + strings.TrimSpace(id)
}

// DecodeReference parses a merchant reference back to its entity kind and id.
func DecodeReference(ref string) (models.EntityKind, string, error) {
	parts := strings.SplitN(strings.TrimSpace(ref), "_", 2)
	if len(parts) != 2 {
		return "", "", ErrInvalidReference
	}
	var kind models.EntityKind
	switch parts[0] {
	case "booking":
		kind = models.KindBooking
	case "package":
		kind = models.KindPackage
	case "teori":
		kind = models.KindTeori
	default:
		return "", "", ErrInvalidReference
	}
	id := parts[1]
	if !isValidEntityID(id) {
		return "", "", ErrInvalidReference
	}
	return kind, id, nil
}

func isValidEntityID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}

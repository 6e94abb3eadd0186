package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidStatus = errors.New("invalid availability status")

// Status is a user's answer to the daily poll.
type Status string

const (
	StatusYes      Status = "yes"
	StatusNo       Status = "no"
	StatusYesLater Status = "yes_later"
)

// ParseStatus normalizes free-form availability text.
// Accepts "yes", "no" and the "yes but later" variants.
func ParseStatus(raw string) (Status, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "yes", "y":
		return StatusYes, nil
	case "no", "n":
		return StatusNo, nil
	case "yes but later", "yes later", "later", "yes_later":
		return StatusYesLater, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

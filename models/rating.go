package models

import "strings"

// Rating is the star rating shown on a catalog entry.
type Rating int

const (
	RatingUnknown Rating = iota
	RatingOne
	RatingTwo
	RatingThree
	RatingFour
	RatingFive
)

// UnknownRatingLabel is the label of RatingUnknown.
const UnknownRatingLabel = "unknown"

// ParseRating maps a star-rating class token to a Rating. Tokens outside
// One..Five yield RatingUnknown.
func ParseRating(token string) Rating {
	switch strings.TrimSpace(token) {
	case "One":
		return RatingOne
	case "Two":
		return RatingTwo
	case "Three":
		return RatingThree
	case "Four":
		return RatingFour
	case "Five":
		return RatingFive
	default:
		return RatingUnknown
	}
}

// Label returns the class token for the rating, or "unknown".
func (r Rating) Label() string {
	switch r {
	case RatingOne:
		return "One"
	case RatingTwo:
		return "Two"
	case RatingThree:
		return "Three"
	case RatingFour:
		return "Four"
	case RatingFive:
		return "Five"
	default:
		return UnknownRatingLabel
	}
}

// Value returns the numeric rating, 0 when unknown.
func (r Rating) Value() int {
	if r < RatingOne || r > RatingFive {
		return 0
	}
	return int(r)
}

func (r Rating) String() string {
	return r.Label()
}

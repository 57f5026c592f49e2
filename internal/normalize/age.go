// Package normalize holds small data cleaning helpers for tabular data.
package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAge is returned for ages that are not positive integers.
var ErrInvalidAge = errors.New("invalid age")

// Age buckets, in ascending order.
const (
	AgeUnder18 = "<18"
	Age18To25  = "18-25"
	Age26To35  = "26-35"
	Age36To45  = "36-45"
	Age46To55  = "46-55"
	Age56To65  = "56-65"
	AgeOver65  = ">65"
)

// AgeBuckets lists every bucket CategorizeAge can return, youngest first.
var AgeBuckets = []string{AgeUnder18, Age18To25, Age26To35, Age36To45, Age46To55, Age56To65, AgeOver65}

// CategorizeAge maps an age in years to its bucket. Bucket upper bounds are
// inclusive: 25 is "18-25", 66 is ">65".
func CategorizeAge(age int) (string, error) {
	switch {
	case age < 1:
		return "", fmt.Errorf("%w: %d is not positive", ErrInvalidAge, age)
	case age < 18:
		return AgeUnder18, nil
	case age <= 25:
		return Age18To25, nil
	case age <= 35:
		return Age26To35, nil
	case age <= 45:
		return Age36To45, nil
	case age <= 55:
		return Age46To55, nil
	case age <= 65:
		return Age56To65, nil
	default:
		return AgeOver65, nil
	}
}

// ParseAge converts a numeric string such as "10" or " 42 " to an age.
func ParseAge(s string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidAge, s)
	}
	if age < 1 {
		return 0, fmt.Errorf("%w: %d is not positive", ErrInvalidAge, age)
	}
	return age, nil
}

// CategorizeAgeString parses s and returns its bucket.
func CategorizeAgeString(s string) (string, error) {
	age, err := ParseAge(s)
	if err != nil {
		return "", err
	}
	return CategorizeAge(age)
}

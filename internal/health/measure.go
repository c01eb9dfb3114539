package health

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	poundsToKg = 0.453592
	inchToM    = 0.0254
)

var (
	ErrInvalidHeight = errors.New("invalid height")
	ErrInvalidWeight = errors.New("invalid weight")
)

// CalculateBMI returns weight / height^2, or 0 for a non-positive height.
func CalculateBMI(weightKg, heightM float64) float64 {
	if heightM <= 0 {
		return 0
	}
	return weightKg / (heightM * heightM)
}

// WeightStatusFor maps a BMI onto the WHO adult categories.
func WeightStatusFor(bmi float64) WeightStatus {
	switch {
	case bmi <= 0:
		return WeightUnknown
	case bmi < 18.5:
		return WeightUnderweight
	case bmi < 25:
		return WeightNormal
	case bmi < 30:
		return WeightOverweight
	default:
		return WeightObese
	}
}

var (
	feetInchesRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(?:'|ft|feet|foot)\s*(?:(\d+(?:\.\d+)?)\s*(?:"|''|in|inch|inches)?)?$`)
	numberUnitRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([a-z]*)$`)
)

// ParseHeight reads "175 cm", "1.75m", "5'10\"" or "5 ft 10 in" into meters.
// A bare number above 3 is taken as centimeters.
func ParseHeight(s string) (float64, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	if m := feetInchesRe.FindStringSubmatch(in); m != nil {
		feet, _ := strconv.ParseFloat(m[1], 64)
		inches := 0.0
		if m[2] != "" {
			inches, _ = strconv.ParseFloat(m[2], 64)
		}
		h := (feet*12 + inches) * inchToM
		if h <= 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidHeight, s)
		}
		return h, nil
	}

	m := numberUnitRe.FindStringSubmatch(in)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHeight, s)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHeight, s)
	}
	switch m[2] {
	case "cm", "cms", "centimeter", "centimeters":
		return v / 100, nil
	case "m", "meter", "meters", "metre", "metres":
		return v, nil
	case "in", "inch", "inches":
		return v * inchToM, nil
	case "":
		if v > 3 {
			return v / 100, nil
		}
		return v, nil
	default:
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidHeight, m[2])
	}
}

// ParseWeight reads "70kg", "154 lbs" or a bare kilogram number.
func ParseWeight(s string) (float64, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	m := numberUnitRe.FindStringSubmatch(in)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeight, s)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeight, s)
	}
	switch m[2] {
	case "", "kg", "kgs", "kilogram", "kilograms":
		return v, nil
	case "lb", "lbs", "pound", "pounds":
		return v * poundsToKg, nil
	default:
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidWeight, m[2])
	}
}

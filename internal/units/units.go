// Package units parses and formats the rate and time strings the simulator understands.
package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// rateUnits maps a unit suffix to its multiplier in bit/s. SI prefixes, as ns-3 DataRate.
var rateUnits = map[string]float64{
	"bps":  1,
	"b/s":  1,
	"kbps": 1e3,
	"kb/s": 1e3,
	"mbps": 1e6,
	"mb/s": 1e6,
	"gbps": 1e9,
	"gb/s": 1e9,
}

// byteRateUnits are case sensitive since "B" means bytes.
var byteRateUnits = map[string]float64{
	"Bps":  8,
	"B/s":  8,
	"kBps": 8e3,
	"KBps": 8e3,
	"kB/s": 8e3,
	"KB/s": 8e3,
	"MBps": 8e6,
	"MB/s": 8e6,
	"GBps": 8e9,
	"GB/s": 8e9,
}

// WifiRates lists the OFDM rates (Mbps) accepted for the Wi-Fi link.
var WifiRates = []int{6, 9, 12, 18, 24, 36, 48, 54}

// ParseDataRate converts a rate such as "64kbps" or "10Mbps" to bit/s.
func ParseDataRate(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	num, unit := splitNumber(s)
	if num == "" {
		return 0, fmt.Errorf("invalid data rate %q: missing value", s)
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid data rate %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid data rate %q: negative", s)
	}
	mult, ok := byteRateUnits[unit]
	if !ok {
		mult, ok = rateUnits[strings.ToLower(unit)]
	}
	if !ok {
		return 0, fmt.Errorf("invalid data rate %q: unknown unit %q", s, unit)
	}
	bits := v*mult + 0.5
	// float64(math.MaxUint64) rounds up to 2^64
	if math.IsNaN(bits) || bits >= math.MaxUint64 {
		return 0, fmt.Errorf("invalid data rate %q: out of range", s)
	}
	return uint64(bits), nil
}

// FormatDataRate renders bit/s using the largest unit that divides it exactly.
func FormatDataRate(bps uint64) string {
	switch {
	case bps == 0:
		return "0bps"
	case bps%1_000_000_000 == 0:
		return fmt.Sprintf("%dGbps", bps/1_000_000_000)
	case bps%1_000_000 == 0:
		return fmt.Sprintf("%dMbps", bps/1_000_000)
	case bps%1_000 == 0:
		return fmt.Sprintf("%dkbps", bps/1_000)
	default:
		return fmt.Sprintf("%dbps", bps)
	}
}

// ParseDuration accepts Go durations ("150ms", "6560ns", "0.150s") plus bare
// numbers, which are seconds, and the "min" suffix.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty")
	}
	if strings.HasSuffix(s, "min") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "min"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		return scaleDuration(s, v, time.Minute)
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return scaleDuration(s, v, time.Second)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

func scaleDuration(s string, v float64, unit time.Duration) (time.Duration, error) {
	d := v * float64(unit)
	if math.IsNaN(d) || d >= math.MaxInt64 || d < math.MinInt64 {
		return 0, fmt.Errorf("invalid duration %q: out of range", s)
	}
	return time.Duration(d), nil
}

// FormatDuration renders d in the largest of s, ms, us or ns that keeps it integral.
// The output never contains the micro sign, which the simulator's parser rejects.
func FormatDuration(d time.Duration) string {
	switch {
	case d == 0:
		return "0s"
	case d%time.Second == 0:
		return fmt.Sprintf("%ds", d/time.Second)
	case d%time.Millisecond == 0:
		return fmt.Sprintf("%dms", d/time.Millisecond)
	case d%time.Microsecond == 0:
		return fmt.Sprintf("%dus", d/time.Microsecond)
	default:
		return fmt.Sprintf("%dns", int64(d))
	}
}

// WifiMode maps a Wi-Fi rate like "9Mbps" to the OFDM mode name "OfdmRate9Mbps".
func WifiMode(rate string) (string, error) {
	bps, err := ParseDataRate(rate)
	if err != nil {
		return "", err
	}
	for _, r := range WifiRates {
		if bps == uint64(r)*1_000_000 {
			return fmt.Sprintf("OfdmRate%dMbps", r), nil
		}
	}
	return "", fmt.Errorf("unsupported wifi rate %q (want one of %v Mbps)", rate, WifiRates)
}

func splitNumber(s string) (string, string) {
	i := 0
	for i < len(s) {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' && i > 0 && isDigit(s[i-1]) && i+1 < len(s) && (isDigit(s[i+1]) || s[i+1] == '-') {
			i++
			continue
		}
		break
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Package humanfmt formats sizes, durations, counts, and CRUSH weights for
// people to read.
package humanfmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Binary (IEC) units for bytes.
const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
	TiB = 1024 * GiB
)

var byteUnits = []struct {
	size float64
	name string
}{
	{TiB, "TiB"},
	{GiB, "GiB"},
	{MiB, "MiB"},
	{KiB, "KiB"},
}

func scaleBytes(v float64, suffix string) string {
	for _, u := range byteUnits {
		if v >= u.size {
			return fmt.Sprintf("%.2f %s%s", v/u.size, u.name, suffix)
		}
	}
	return fmt.Sprintf("%.0f B%s", v, suffix)
}

// Bytes formats a byte count using IEC binary units, e.g. "1.23 GiB".
func Bytes(b int64) string {
	if b < 0 {
		return fmt.Sprintf("%d B", b)
	}
	return scaleBytes(float64(b), "")
}

// Throughput formats bytes per duration, e.g. "123.40 MiB/s".
func Throughput(bytes int64, d time.Duration) string {
	if d <= 0 {
		return "∞"
	}
	return scaleBytes(float64(bytes)/d.Seconds(), "/s")
}

// Duration formats d compactly: "1.23s", "45.6ms", "1m30s", "2h15m".
func Duration(d time.Duration) string {
	switch {
	case d < 0:
		return d.String()
	case d >= time.Hour:
		return wholeUnits(d, time.Hour, "h", time.Minute, "m")
	case d >= time.Minute:
		return wholeUnits(d, time.Minute, "m", time.Second, "s")
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fµs", float64(d)/float64(time.Microsecond))
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

func wholeUnits(d, major time.Duration, majorName string, minor time.Duration, minorName string) string {
	hi := d / major
	lo := (d % major) / minor
	if lo == 0 {
		return fmt.Sprintf("%d%s", hi, majorName)
	}
	return fmt.Sprintf("%d%s%d%s", hi, majorName, lo, minorName)
}

// Count formats n with a K/M/B suffix, e.g. "1.23M".
func Count(n int64) string {
	switch {
	case n >= 1e9:
		return fmt.Sprintf("%.2fB", float64(n)/1e9)
	case n >= 1e6:
		return fmt.Sprintf("%.2fM", float64(n)/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.2fK", float64(n)/1e3)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// weightOne is 1.0 in 16.16 fixed point.
const weightOne = 0x10000

// Weight formats a 16.16 fixed-point weight with five decimals, the way
// cluster tooling prints them: Weight(0x10000) is "1.00000".
func Weight(w uint32) string {
	return strconv.FormatFloat(float64(w)/weightOne, 'f', 5, 64)
}

// ParseWeight converts a decimal weight such as "1.5" to 16.16 fixed point.
func ParseWeight(s string) (uint32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse weight %q: %w", s, err)
	}
	if f < 0 || f*weightOne > math.MaxUint32 {
		return 0, fmt.Errorf("weight %q out of range", s)
	}
	return uint32(math.Round(f * weightOne)), nil
}

var sizeSuffixes = map[string]float64{
	"":    1,
	"B":   1,
	"KB":  1e3,
	"MB":  1e6,
	"GB":  1e9,
	"TB":  1e12,
	"K":   KiB,
	"KiB": KiB,
	"M":   MiB,
	"MiB": MiB,
	"G":   GiB,
	"GiB": GiB,
	"T":   TiB,
	"TiB": TiB,
}

// ParseBytes parses a size such as "512MiB", "4GB", "1.5G", or "1024".
// Bare K/M/G/T suffixes are binary.
func ParseBytes(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	numEnd := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if numEnd < 0 {
		numEnd = len(s)
	}
	if numEnd == 0 {
		return 0, fmt.Errorf("parse size %q: missing number", s)
	}

	num, err := strconv.ParseFloat(s[:numEnd], 64)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}
	mult, ok := sizeSuffixes[strings.TrimSpace(s[numEnd:])]
	if !ok {
		return 0, fmt.Errorf("parse size %q: unknown suffix %q", s, s[numEnd:])
	}
	v := num * mult
	if v > math.MaxUint64 {
		return 0, fmt.Errorf("parse size %q: out of range", s)
	}
	return uint64(v), nil
}

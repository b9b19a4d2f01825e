package provider

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PeriodStart returns the first date covered by period counted back from now.
// Accepted forms are Nd, Nwk, Nmo, Ny, "ytd" and "max".
func PeriodStart(now time.Time, period string) (time.Time, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	switch p {
	case "max":
		return time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), nil
	case "ytd":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), nil
	}

	for _, unit := range []string{"wk", "mo", "d", "y"} {
		num, ok := strings.CutSuffix(p, unit)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil || n <= 0 {
			break
		}
		switch unit {
		case "d":
			return now.AddDate(0, 0, -n), nil
		case "wk":
			return now.AddDate(0, 0, -7*n), nil
		case "mo":
			return now.AddDate(0, -n, 0), nil
		default:
			return now.AddDate(-n, 0, 0), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid period %q", period)
}

// requireDaily rejects intervals other than daily for providers that only
// serve daily bars
func requireDaily(name, interval string) error {
	if interval == "" || interval == "1d" {
		return nil
	}
	return permanent(name, "interval %q: %w", interval, ErrNotSupported)
}

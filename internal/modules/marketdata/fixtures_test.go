package marketdata

import (
	"fmt"
	"time"
)

// dailySeries returns consecutive calendar days starting at start with the given closes.
func dailySeries(start string, closes ...float64) []DailyPrice {
	day, err := time.Parse(DateLayout, start)
	if err != nil {
		panic(fmt.Sprintf("bad start date %q", start))
	}
	out := make([]DailyPrice, len(closes))
	for i, c := range closes {
		out[i] = DailyPrice{Date: day.AddDate(0, 0, i).Format(DateLayout), Close: c}
	}
	return out
}

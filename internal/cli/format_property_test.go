package cli

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// FormatUSD must group thousands with commas, carry exactly two
// decimals and survive a parse round trip.
func TestFormatUSDProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("grouping and round trip hold for any amount", prop.ForAll(
		func(amount float64) bool {
			if math.IsNaN(amount) || math.IsInf(amount, 0) || math.Abs(amount) > 1e12 {
				return true
			}

			formatted := FormatUSD(amount)

			body := strings.TrimPrefix(formatted, "-")
			if !strings.HasPrefix(body, "$") {
				t.Logf("missing $ prefix: %s", formatted)
				return false
			}
			body = strings.TrimPrefix(body, "$")

			parts := strings.Split(body, ".")
			if len(parts) != 2 || len(parts[1]) != 2 {
				t.Logf("expected two decimals: %s", formatted)
				return false
			}

			// Every comma group except the first must be exactly
			// three digits.
			groups := strings.Split(parts[0], ",")
			for i, g := range groups {
				if i > 0 && len(g) != 3 {
					t.Logf("bad grouping: %s", formatted)
					return false
				}
				if i == 0 && (len(g) < 1 || len(g) > 3) {
					t.Logf("bad leading group: %s", formatted)
					return false
				}
			}

			parsed, err := strconv.ParseFloat(strings.ReplaceAll(parts[0], ",", "")+"."+parts[1], 64)
			if err != nil {
				t.Logf("unparseable: %s", formatted)
				return false
			}
			if strings.HasPrefix(formatted, "-") {
				parsed = -parsed
			}
			return math.Abs(parsed-amount) < 0.005+math.Abs(amount)*1e-9
		},
		gen.Float64Range(-1e12, 1e12),
	))

	properties.Property("share counts group the same way", prop.ForAll(
		func(qty int64) bool {
			formatted := strings.ReplaceAll(FormatShares(qty), ",", "")
			parsed, err := strconv.ParseInt(formatted, 10, 64)
			return err == nil && parsed == qty
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

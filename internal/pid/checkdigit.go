package pid

import "strconv"

// weights cycle left to right from the first digit. Changing the order or
// the starting position breaks compatibility with issued identifiers.
var weights = [...]int{2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

// Mod11Check computes the check digit over the ASCII digits of input.
// Non-digits are skipped, so the site code contributes nothing.
func Mod11Check(input string) string {
	sum, pos := 0, 0
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if ch < '0' || ch > '9' {
			continue
		}
		sum += int(ch-'0') * weights[pos%len(weights)]
		pos++
	}

	remainder := sum % 11
	if remainder < 2 {
		return strconv.Itoa(remainder)
	}
	return strconv.Itoa(11 - remainder)
}

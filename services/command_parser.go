package services

import (
	"regexp"
	"strconv"
)

// Bounty commands are embedded in free text (issue bodies, PR bodies,
// comments), so almost every event carries no command at all. Parsers report
// that with ok=false — it is the common case, never an error.
var (
	createBountyPattern = regexp.MustCompile(`(?i)/create-bounty\s+(\d+)`)
	claimBountyPattern  = regexp.MustCompile(`(?i)/claim-bounty\s+(\d+)`)
)

// ParseCreateBountyCommand extracts the amount from the first
// "/create-bounty <amount>" occurrence in text. A missing, non-numeric or
// out-of-range argument reads as "no command".
func ParseCreateBountyCommand(text string) (int64, bool) {
	return firstCommandArg(createBountyPattern, text)
}

// ParseClaimBountyCommand extracts the bounty id from the first
// "/claim-bounty <bountyId>" occurrence in text.
func ParseClaimBountyCommand(text string) (int64, bool) {
	return firstCommandArg(claimBountyPattern, text)
}

func firstCommandArg(pattern *regexp.Regexp, text string) (int64, bool) {
	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	arg, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || arg <= 0 {
		return 0, false
	}
	return arg, true
}

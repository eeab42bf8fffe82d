package check

import (
	"regexp"
	"strconv"
	"strings"
)

// maxErrorDetail bounds how much raw page text is kept on an unclassifiable
// response.
const maxErrorDetail = 300

// captchaRejections are substrings that mark a captcha-specific rejection.
// Order matters only for which fragment ends up in the error detail.
var captchaRejections = []string{
	"invalid captcha",
	"incorrect",
	"try again",
	"mismatch",
	"wrong",
}

var (
	// Production page prints "Congratulation Alloted !!! Alloted quantity : 10".
	quantityPattern = regexp.MustCompile(`(?i)(?:quantity|shares)\s*:?\s*(\d+)`)
)

// Classification is the outcome of classifying one aggregated page response.
type Classification struct {
	Status   Status
	ShareQty int
	Detail   string
}

// Classify maps the aggregated visible text of the result page to a closed
// set of statuses. Pure function: markup is not a stable contract, so only
// case-insensitive substring matching on text content is used.
//
// Rule order is significant: a captcha rejection must win over anything else
// because it alone re-enters the retry path.
func Classify(text string) Classification {
	lower := strings.ToLower(text)

	for _, frag := range captchaRejections {
		if strings.Contains(lower, frag) {
			return Classification{
				Status: StatusCaptchaError,
				Detail: matchingFragment(text, frag),
			}
		}
	}

	// "not alloted" must be tested before the bare "alloted" substring.
	if strings.Contains(lower, "not alloted") || strings.Contains(lower, "not allotted") || strings.Contains(lower, "sorry") {
		return Classification{Status: StatusNotAllotted}
	}

	if strings.Contains(lower, "congrat") || strings.Contains(lower, "alloted") || strings.Contains(lower, "allotted") {
		qty := 0
		if m := quantityPattern.FindStringSubmatch(text); m != nil {
			qty, _ = strconv.Atoi(m[1])
		}
		return Classification{Status: StatusAllotted, ShareQty: qty}
	}

	detail := strings.TrimSpace(text)
	if len(detail) > maxErrorDetail {
		detail = detail[:maxErrorDetail]
	}
	return Classification{Status: StatusError, Detail: detail}
}

// matchingFragment returns the sentence fragment around the matched
// rejection substring, for the error detail.
func matchingFragment(text, frag string) string {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, frag)
	if idx < 0 {
		return frag
	}
	start := strings.LastIndexAny(lower[:idx], ".!?\n") + 1
	end := idx + len(frag)
	if rel := strings.IndexAny(lower[end:], ".!?\n"); rel >= 0 {
		end += rel + 1
	} else {
		end = len(text)
	}
	return strings.TrimSpace(text[start:end])
}

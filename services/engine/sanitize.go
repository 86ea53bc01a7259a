package engine

import (
	"regexp"
	"strings"
)

// Quoted-reply markers. Anything from the first match onward is prior
// conversation echoed back by the client's mail program, not new input.
var (
	replyHeaderRe = regexp.MustCompile(`(?mi)^\s*(On .{0,200} wrote:|Am .{0,200} schrieb .{0,80}:|-{2,}\s*Original Message\s*-{2,}|From:\s.+|Von:\s.+)\s*$`)
	signatureRe   = regexp.MustCompile(`(?m)^--\s*$`)
	subjectRe     = regexp.MustCompile(`(?i)^\s*((re|aw|fwd|wg)\s*:\s*)+`)
)

var signoffPrefixes = []string{
	"best regards", "kind regards", "regards,", "cheers,", "thanks,",
	"thank you,", "sincerely", "mit freundlichen grüßen", "viele grüße",
	"beste grüße", "liebe grüße",
}

// SanitizeMessage strips quoted reply history, quote lines and signature
// blocks from an inbound email body. This runs before any agent sees the
// message: an unsanitized quote would feed the engine's own prior output
// back in as apparent new client input.
func SanitizeMessage(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")

	// Cut everything from the first reply header onward.
	if loc := replyHeaderRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	// Cut the signature block.
	if loc := signatureRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		// Quote lines.
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		// Everything below a sign-off is name/contact noise.
		lower := strings.ToLower(trimmed)
		stop := false
		for _, p := range signoffPrefixes {
			if strings.HasPrefix(lower, p) {
				stop = true
				break
			}
		}
		if stop {
			break
		}
		kept = append(kept, line)
	}

	out := strings.Join(kept, "\n")
	out = regexp.MustCompile(`\n{3,}`).ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// SanitizeSubject strips accumulated Re:/Fwd:/Aw: prefixes.
func SanitizeSubject(subject string) string {
	return strings.TrimSpace(subjectRe.ReplaceAllString(subject, ""))
}

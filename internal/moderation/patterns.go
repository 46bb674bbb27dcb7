package moderation

import "regexp"

// Hard-reject pattern sets. A match anywhere in the transcript makes the clip
// unusable; the sets are evaluated in order and the first match wins. The
// slur patterns tolerate the dash/underscore obfuscation that survives
// speech-to-text.
var slurPatterns = compilePatterns([]string{
	`\bn[-_]+(i|1)gg(a|er|ah?|uh?)s?\b`,
	`\bf[-_]*a[-_]*g(g[-_]*(o[-_]*t|i[-_]*t))?s?\b`,
	`\br[-_]*e[-_]*t[-_]*a[-_]*r[-_]*d(ed)?\b`,
	`\bk[-_]*i[-_]*k[-_]*e[-_]*s?\b`,
	`\bs[-_]*p[-_]*i[-_]*c[-_]*s?\b`,
	`\bch[-_]*i[-_]*n[-_]*k[-_]*s?\b`,
	`\btr[-_]*a[-_]*nn(y|ie)s?\b`,
	`\bw[-_]*e[-_]*t[-_]*b[-_]*a[-_]*c[-_]*k[-_]*s?\b`,
})

// Gambling/casino promotion gets shadow-banned on every target platform.
var gamblingPatterns = compilePatterns([]string{
	`\b(slots?|slot.?machine)\b`,
	`\b(blackjack|roulette|baccarat|craps)\b`,
	`\b(casino|gambling|gamble|wagering)\b`,
	`\b(stake\.com|stake\b)`,
	`\b(kick.*sponsor|sponsored.*gambling)\b`,
	`\b(house.?edge|jackpot|big.?win|max.?bet)\b`,
	`\b(online.?poker)\b`,
})

// Explicit sexual content, not innuendo.
var sexualExplicitPatterns = compilePatterns([]string{
	`\b(porn|pornhub|onlyfans|xxx|hentai)\b`,
	`\b(blow.?job|hand.?job|rim.?job)\b`,
	`\b(orgasm|cum(ming|shot)?|jerk(ing)?.?off|masturb)\b`,
	`\b(anal|dildo|vibrator|butt.?plug)\b`,
	`\b(nude|naked|tits|boobs|nipple)\b`,
	`\b(sex.?tape|sex.?act|intercourse)\b`,
	`\b(erection|penis|vagina|genitals?)\b`,
	`\b(fetish|bdsm|bondage|dominatrix)\b`,
	`\b(pedophile|pedo|grooming|minor)\b`,
})

// bleepWords are words that get muted in audio and replaced in captions. A
// few of these can stay in a good clip; past the caps below the clip is
// unwatchable even with bleeps. The trailing slur entries catch
// mis-transcriptions that slip past the hard-reject patterns.
var bleepWords = map[string]struct{}{
	"fuck": {}, "fucking": {}, "fucked": {}, "fucker": {}, "fuckin": {},
	"fucks": {}, "motherfucker": {}, "motherfucking": {}, "motherfuckers": {},
	"shit": {}, "shitting": {}, "shitty": {}, "bullshit": {}, "horseshit": {},
	"bitch": {}, "bitches": {}, "bitching": {}, "bitchass": {},
	"ass": {}, "asshole": {}, "assholes": {}, "dumbass": {}, "jackass": {}, "badass": {},
	"dick": {}, "dicks": {}, "dickhead": {},
	"pussy": {}, "pussies": {},
	"cock": {}, "cocks": {}, "cocksucker": {},
	"damn": {}, "goddamn": {}, "goddammit": {},
	"bastard": {}, "bastards": {},
	"whore": {}, "whores": {},
	"cunt": {}, "cunts": {},
	"nigga": {}, "niggas": {}, "nigger": {}, "niggers": {},
	"faggot": {}, "faggots": {}, "fag": {}, "fags": {},
	"retard": {}, "retarded": {}, "retards": {},
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		compiled = append(compiled, regexp.MustCompile(pattern))
	}
	return compiled
}

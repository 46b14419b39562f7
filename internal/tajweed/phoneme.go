package tajweed

// Category buckets an Arabic character by its phonetic role.
type Category string

const (
	CategoryVowel     Category = "vowel"
	CategoryConsonant Category = "consonant"
	CategoryDiacritic Category = "diacritic"
	CategoryGlottal   Category = "glottal"
	CategoryUnknown   Category = "unknown"
)

// UnknownMode selects what Classify does with characters absent from the
// phoneme table (Latin letters, punctuation, whitespace). Call sites differ
// on what they need, so the behaviour is an explicit parameter.
type UnknownMode int

const (
	// SkipUnknown drops unmapped characters from the output.
	SkipUnknown UnknownMode = iota

	// TagUnknown keeps unmapped characters, tagged [CategoryUnknown] with an
	// empty phoneme id.
	TagUnknown
)

// phonemeTable maps each Arabic character to its romanised phoneme id.
// Several letters share a label (ط and ت are both "ta", ح and ه both "ha");
// the character is the identity, the label is only a display hint, so the
// duplicates are intentional and must not be collapsed.
var phonemeTable = map[rune]string{
	// Consonants.
	'ا': "alif", 'ب': "ba", 'ت': "ta", 'ث': "tha", 'ج': "jim",
	'ح': "ha", 'خ': "kha", 'د': "dal", 'ذ': "dhal", 'ر': "ra",
	'ز': "zay", 'س': "sin", 'ش': "shin", 'ص': "sad", 'ض': "dad",
	'ط': "ta", 'ظ': "za", 'ع': "ayn", 'غ': "ghayn", 'ف': "fa",
	'ق': "qaf", 'ك': "kaf", 'ل': "lam", 'م': "mim", 'ن': "nun",
	'ه': "ha", 'و': "waw", 'ي': "ya",

	// Vowel marks and signs.
	'َ': "fatha", 'ُ': "damma", 'ِ': "kasra", 'ْ': "sukun",
	'ّ': "shadda", 'ً': "tanwin_fatha", 'ٌ': "tanwin_damma", 'ٍ': "tanwin_kasra",

	// Special characters.
	'ء': "hamza", 'ة': "ta_marbuta", 'ى': "alif_maqsura",
}

// diacritics is the tashkeel code-point set used for category assignment.
var diacritics = map[rune]bool{
	'َ': true, 'ُ': true, 'ِ': true, 'ْ': true,
	'ّ': true, 'ً': true, 'ٌ': true, 'ٍ': true,
}

// Token is one classified character of the input text.
type Token struct {
	// Char is the original character.
	Char string `json:"char"`

	// Phoneme is the romanised phoneme id, empty for unknown characters.
	Phoneme string `json:"phoneme"`

	// Position is the 0-based rune index of the character in the input text.
	Position int `json:"position"`

	// Category is the phonetic bucket.
	Category Category `json:"category"`
}

// categoryOf classifies a mapped Arabic character.
func categoryOf(c rune) Category {
	switch {
	case c == 'ا' || c == 'و' || c == 'ي':
		return CategoryVowel
	case diacritics[c]:
		return CategoryDiacritic
	case c == 'ء' || c == 'ه':
		return CategoryGlottal
	default:
		return CategoryConsonant
	}
}

// Classify maps each character of text to a phoneme [Token], in text order.
// Unmapped characters are skipped or tagged according to mode.
func Classify(text string, mode UnknownMode) []Token {
	var tokens []Token
	for i, c := range []rune(text) {
		phoneme, ok := phonemeTable[c]
		if !ok {
			if mode == TagUnknown {
				tokens = append(tokens, Token{Char: string(c), Position: i, Category: CategoryUnknown})
			}
			continue
		}
		tokens = append(tokens, Token{
			Char:     string(c),
			Phoneme:  phoneme,
			Position: i,
			Category: categoryOf(c),
		})
	}
	return tokens
}

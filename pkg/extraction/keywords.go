package extraction

import "regexp"

// typeKeywords maps a global_design_level.type enum value to the
// vocabulary that indicates it. Checked in this order; the first type whose
// vocabulary matches wins. "human" requires person-indicative vocabulary —
// there is no default type.
var typeOrder = []string{"cartoon", "animal", "fantasy_figure", "object", "human_video", "human"}

var typeKeywords = map[string]*regexp.Regexp{
	"cartoon":        regexp.MustCompile(`(?i)\b(cartoon|animated|animation|disney|mickey mouse|anime)\b`),
	"animal":         regexp.MustCompile(`(?i)\b(animal|dog|cat|bird|bear|fox|rabbit)\b`),
	"fantasy_figure": regexp.MustCompile(`(?i)\b(fantasy|dragon|wizard|elf|fairy|unicorn|mythical)\b`),
	"object":         regexp.MustCompile(`(?i)\b(robot|machine|device|gadget|inanimate object)\b`),
	"human_video":    regexp.MustCompile(`(?i)\b(video recording|recorded video|video footage) of a (person|man|woman)\b`),
	"human":          regexp.MustCompile(`(?i)\b(man|woman|person|male|female|teacher|professor|tutor|assistant|nurse|doctor|engineer|student|guide|he|she|girl|boy|lady|gentleman)\b`),
}

var cartoonRepresentation = regexp.MustCompile(`(?i)\b(mickey mouse|donald duck|spongebob|pikachu|[a-z]+ mouse|[a-z]+ the [a-z]+)\b`)
var cartoonAnimation = regexp.MustCompile(`(?i)\b(animated|animation|moves around|in motion)\b`)

var animalTypeKeyword = regexp.MustCompile(`(?i)\b(dog|cat|bird|bear|fox|rabbit|animal)\b`)
var fantasyTypeKeyword = regexp.MustCompile(`(?i)\b(dragon|wizard|elf|fairy|unicorn|fantasy creature)\b`)
var objectTypeKeyword = regexp.MustCompile(`(?i)\b(robot|machine|device|gadget)\b`)

var roleKeyword = regexp.MustCompile(`(?i)\b(teacher|professor|tutor|assistant|nurse|doctor|engineer|student|guide|mentor|coach|librarian|scientist)\b`)
var roleModelPattern = regexp.MustCompile(`(?i)role model(?: is| was)?:?\s+([a-zA-Z0-9 ,.'-]{3,49})`)
var partialRepresentationPattern = regexp.MustCompile(`(?i)(?:partial representation|partially shown|shown from the)\s*:?\s*([a-zA-Z0-9 ,.'-]{3,60})`)

var ageYearsPattern = regexp.MustCompile(`(?i)\b(\d{1,3})[\s-]*years?[\s-]*old\b`)
var ageWordPattern = regexp.MustCompile(`(?i)\b(child|young|teenager|adult|elderly)\b`)

var genderFemale = regexp.MustCompile(`(?i)\b(female|woman|girl|lady|she)\b`)
var genderMale = regexp.MustCompile(`(?i)\b(male|man|boy|gentleman|he)\b`)
var genderNonBinary = regexp.MustCompile(`(?i)\b(non-binary|nonbinary|enby)\b`)
var genderOther = regexp.MustCompile(`(?i)\bother gender\b`)

var clothingAnchored = regexp.MustCompile(`(?i)(?:wearing|dressed in|outfit:)\s+([a-zA-Z0-9 ,'-]+?)(?:[.,;]|$)`)
var clothingVocabulary = []string{"dress", "suit", "shirt", "jacket", "uniform", "robe", "gown", "jeans", "skirt", "coat", "sweater"}

var weightVocabulary = []string{"slim", "average", "heavy", "athletic", "petite"}

var otherFeaturePattern = regexp.MustCompile(`(?i)\b(hair|eyes|skin|voice):\s*([a-zA-Z0-9 '-]+?)(?:[,;.]|$)`)

// scalePattern is one ranked pattern for a 1-7 integer scale; patterns are
// tried in list order (the modifier patterns from Score 7 down to 1, then
// the bare root word at Score 5) and the first match wins.
type scalePattern struct {
	Pattern *regexp.Regexp
	Score   int
}

func scalePatterns(root string) []scalePattern {
	return []scalePattern{
		{regexp.MustCompile(`(?i)\bextremely ` + root), 7},
		{regexp.MustCompile(`(?i)\bvery ` + root), 6},
		{regexp.MustCompile(`(?i)\bquite ` + root), 5},
		{regexp.MustCompile(`(?i)\bmoderately ` + root), 4},
		{regexp.MustCompile(`(?i)\bsomewhat ` + root), 3},
		{regexp.MustCompile(`(?i)\bslightly ` + root), 2},
		{regexp.MustCompile(`(?i)\bnot ` + root), 1},
		{regexp.MustCompile(`(?i)\b` + root + `\b`), 5},
	}
}

var scaleRoots = map[string]string{
	"lifelikeness":   "lifelike",
	"realism":        "realistic",
	"animation_level": "animated",
	"likeability":    "likeable",
	"competence":     "competent",
}

// lifelikenessDescriptors maps a 1-7 scale value to a descriptive term
// used when building the compressed prompt.
var lifelikenessDescriptors = map[int]string{
	1: "not lifelike",
	2: "slightly lifelike",
	3: "somewhat lifelike",
	4: "moderately lifelike",
	5: "fairly lifelike",
	6: "very lifelike",
	7: "extremely lifelike",
}

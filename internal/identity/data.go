package identity

// dateLayout is the ISO calendar date format used for DateOfBirth.
const dateLayout = "2006-01-02"

const (
	minAge = 18
	maxAge = 55
)

// Location bundles a city with the values that must agree with it.
type Location struct {
	City        string
	Country     string
	PhonePrefix string
	Streets     []string
}

var firstNames = []string{
	"Alex", "Jordan", "Taylor", "Morgan", "Casey", "Riley", "Quinn",
	"Avery", "Blake", "Cameron", "Dakota", "Emerson", "Finley", "Harper",
	"Jamie", "Kai", "Logan", "Parker", "Reese", "Sage", "Skyler",
	"Rowan", "Ellis", "Drew", "Hayden", "Lennox", "Arden", "Marlowe",
	"Phoenix", "Remy", "Shiloh", "Wren", "Tatum", "Rain", "Onyx",
	"Ashton", "Blair", "Corin", "Darcy", "Eden", "Francis", "Glenn",
	"Haven", "Indigo", "Jules", "Kendall", "Lane", "Micah", "Noel",
	"Oakley", "Peyton", "River", "Sterling", "Sidney", "Tristan", "Val",
	"Winter", "Yael", "Zion", "Milan", "Soren", "Lyric", "Briar",
}

var lastNames = []string{
	"Andersen", "Bakker", "Chen", "Dubois", "Eriksson", "Fisher",
	"Garcia", "Huber", "Ivanov", "Jensen", "Kim", "Laurent", "Muller",
	"Nakamura", "Olsen", "Petrov", "Reyes", "Singh", "Torres", "Varga",
	"Weber", "Xu", "Yamamoto", "Zimmermann", "Berg", "Costa", "Dale",
	"Engel", "Frost", "Grant", "Holm", "Johansson", "Klein", "Strand",
	"Lindgren", "Maier", "Nord", "Park", "Richter", "Sato", "Tanaka",
	"Ueda", "Vogt", "Wolf", "Yun", "Zhu", "Reed", "Stone", "Blake",
	"Gray", "Hart", "Knight", "Lane", "Nash", "Cross", "Hayes", "Mercer",
}

var locations = []Location{
	{"Stockholm", "Sweden", "+46", []string{"Drottninggatan", "Sveavägen", "Birger Jarlsgatan", "Kungsgatan", "Strandvägen"}},
	{"Oslo", "Norway", "+47", []string{"Karl Johans gate", "Bogstadveien", "Grünerløkka", "Majorstuen Allé", "Frognerveien"}},
	{"Helsinki", "Finland", "+358", []string{"Mannerheimintie", "Aleksanterinkatu", "Esplanadi", "Hämeentie", "Fredrikinkatu"}},
	{"Berlin", "Germany", "+49", []string{"Friedrichstraße", "Torstraße", "Kastanienallee", "Oranienstraße", "Schönhauser Allee"}},
	{"Amsterdam", "Netherlands", "+31", []string{"Keizersgracht", "Prinsengracht", "Damstraat", "Leidsestraat", "Haarlemmerstraat"}},
	{"Zurich", "Switzerland", "+41", []string{"Bahnhofstrasse", "Limmatquai", "Niederdorfstrasse", "Rämistrasse", "Langstrasse"}},
	{"Copenhagen", "Denmark", "+45", []string{"Strøget", "Nørrebrogade", "Vesterbrogade", "Østerbrogade", "Gothersgade"}},
	{"Vienna", "Austria", "+43", []string{"Kärntner Straße", "Mariahilfer Straße", "Graben", "Währinger Straße", "Praterstraße"}},
	{"Prague", "Czech Republic", "+420", []string{"Národní třída", "Vinohradská", "Na Příkopě", "Celetná", "Karlova"}},
	{"Lisbon", "Portugal", "+351", []string{"Rua Augusta", "Avenida da Liberdade", "Rua da Prata", "Rua do Carmo", "Rua Garrett"}},
	{"Tokyo", "Japan", "+81", []string{"Omotesando", "Takeshita-dori", "Nakamise-dori", "Meiji-dori", "Shinjuku-dori"}},
	{"Seoul", "South Korea", "+82", []string{"Gangnam-daero", "Teheran-ro", "Itaewon-ro", "Hongdae-gil", "Insadong-gil"}},
	{"Toronto", "Canada", "+1", []string{"Queen Street", "Dundas Street", "Bloor Street", "College Street", "King Street"}},
	{"Melbourne", "Australia", "+61", []string{"Swanston Street", "Collins Street", "Bourke Street", "Flinders Lane", "Chapel Street"}},
	{"Reykjavik", "Iceland", "+354", []string{"Laugavegur", "Skólavörðustígur", "Bankastræti", "Hverfisgata", "Austurstræti"}},
}

// disposable-looking mail domains for fabricated addresses
var emailDomains = []string{
	"proton.me", "tuta.io", "disroot.org", "riseup.net", "cock.li",
	"dnmx.org", "autistici.org", "onionmail.org", "elude.in", "ctemplar.com",
}

var emailSeparators = []string{".", "_", ""}

// username fragments, combined in pairs
var usernameParts = []string{
	"void", "zero", "null", "nyx", "hex", "arc", "neo", "ash", "flux",
	"dusk", "echo", "iris", "onyx", "rune", "veil", "byte", "grid",
	"mist", "node", "rift", "sync", "core", "edge", "fuse", "glow",
	"haze", "jade", "kite", "lux", "mint", "nova", "opal", "peak",
}

var usernameSeparators = []string{"_", ".", ""}

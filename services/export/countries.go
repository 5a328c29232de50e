package export

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"cablequest/lib/scrapers/plusd"
)

// originCountryMap maps the post code embedded in a cable id to the
// modern name of the country it transmitted from.
var originCountryMap = map[string]string{
	// A
	"ABIDJAN": "Ivory Coast",
	"ABUDHABI": "United Arab Emirates",
	"ABUJA": "Nigeria",
	"ACCRA": "Ghana",
	"ADANA": "Turkey",
	"ADDISABABA": "Ethiopia",
	"ALGIERS": "Algeria",
	"ALMATY": "Kazakhstan",
	"AMMAN": "Jordan",
	"AMSTERDAM": "Netherlands",
	"ANKARA": "Turkey",
	"ANTANANARIVO": "Madagascar",
	"APIA": "Samoa",
	"ASHGABAT": "Turkmenistan",
	"ASMARA": "Eritrea",
	"ASTANA": "Kazakhstan",
	"ASUNCION": "Paraguay",
	"ATHENS": "Greece",
	"AUCKLAND": "New Zealand",
	// B
	"BAGHDAD": "Iraq",
	"BAKU": "Azerbaijan",
	"BAMAKO": "Mali",
	"BANDARSERIBEGAWAN": "Brunei",
	"BANGKOK": "Thailand",
	"BANGUI": "Central African Republic",
	"BANJUL": "Gambia",
	"BARCELONA": "Spain",
	"BASRAH": "Iraq",
	"BEIJING": "China",
	"BEIRUT": "Lebanon",
	"BELFAST": "United Kingdom",
	"BELGRADE": "Serbia",
	"BERLIN": "Germany",
	"BERN": "Switzerland",
	"BISHKEK": "Kyrgyzstan",
	"BOGOTA": "Colombia",
	"BOMBAY": "India",
	"BONN": "Germany",
	"BRASILIA": "Brazil",
	"BRATISLAVA": "Slovakia",
	"BRAZZAVILLE": "Republic of the Congo",
	"BRIDGETOWN": "Barbados",
	"BRUSSELS": "Belgium",
	"BUCHAREST": "Romania",
	"BUDAPEST": "Hungary",
	"BUENOSAIRES": "Argentina",
	"BUJUMBURA": "Burundi",
	// C
	"CAIRO": "Egypt",
	"CALCUTTA": "India",
	"CANBERRA": "Australia",
	"CAPETOWN": "South Africa",
	"CARACAS": "Venezuela",
	"CASABLANCA": "Morocco",
	"CHENGDU": "China",
	"CHENNAI": "India",
	"CHISINAU": "Moldova",
	"CIUDADJUAREZ": "Mexico",
	"COLOMBO": "Sri Lanka",
	"CONAKRY": "Guinea",
	"COPENHAGEN": "Denmark",
	"COTONOU": "Benin",
	"CURACAO": "Curacao",
	// D
	"DAKAR": "Senegal",
	"DAMASCUS": "Syria",
	"DARESSALAAM": "Tanzania",
	"DHAHRAN": "Saudi Arabia",
	"DHAKA": "Bangladesh",
	"DILI": "East Timor",
	"DJIBOUTI": "Djibouti",
	"DOHA": "Qatar",
	"DUBLIN": "Ireland",
	"DURBAN": "South Africa",
	"DUSHANBE": "Tajikistan",
	"DUSSELDORF": "Germany",
	// E
	"ECBRU": "Belgium",
	// F
	"FLORENCE": "Italy",
	"FRANKFURT": "Germany",
	"FREETOWN": "Sierra Leone",
	"FUKUOKA": "Japan",
	// G
	"GABORONE": "Botswana",
	"GENEVA": "Switzerland",
	"GEORGETOWN": "Guyana",
	"GUADALAJARA": "Mexico",
	"GUATEMALA": "Guatemala",
	"GUAYAQUIL": "Ecuador",
	// H
	"HAMBURG": "Germany",
	"HAMILTON": "Bermuda",
	"HANOI": "Vietnam",
	"HARARE": "Zimbabwe",
	"HAVANA": "Cuba",
	"HELSINKI": "Finland",
	"HERMOSILLO": "Mexico",
	"HOCHIMINHCITY": "Vietnam",
	"HONGKONG": "Hong Kong",
	// I
	"ISLAMABAD": "Pakistan",
	"ISTANBUL": "Turkey",
	// J
	"JAKARTA": "Indonesia",
	"JEDDAH": "Saudi Arabia",
	"JERUSALEM": "Israel",
	"JOHANNESBURG": "South Africa",
	// K
	"KABUL": "Afghanistan",
	"KAMPALA": "Uganda",
	"KARACHI": "Pakistan",
	"KATHMANDU": "Nepal",
	"KHARTOUM": "Sudan",
	"KIGALI": "Rwanda",
	"KINGSTON": "Jamaica",
	"KINSHASA": "Democratic Republic of the Congo",
	"KOLKATA": "India",
	"KOLONIA": "Micronesia",
	"KUALALUMPUR": "Malaysia",
	"KUWAIT": "Kuwait",
	"KYIV": "Ukraine",
	// L
	"LAGOS": "Nigeria",
	"LAHORE": "Pakistan",
	"LAPAZ": "Bolivia",
	"LENINGRAD": "Russia",
	"LIBREVILLE": "Gabon",
	"LILONGWE": "Malawi",
	"LIMA": "Peru",
	"LISBON": "Portugal",
	"LJUBLJANA": "Slovenia",
	"LOME": "Togo",
	"LONDON": "United Kingdom",
	"LUANDA": "Angola",
	"LUSAKA": "Zambia",
	"LUXEMBOURG": "Luxembourg",
	// M
	"MADRID": "Spain",
	"MADRAS": "India",
	"MALABO": "Equatorial Guinea",
	"MANAGUA": "Nicaragua",
	"MANAMA": "Bahrain",
	"MANILA": "Philippines",
	"MAPUTO": "Mozambique",
	"MARSEILLE": "France",
	"MASERU": "Lesotho",
	"MATAMOROS": "Mexico",
	"MBABANE": "Eswatini",
	"MELBOURNE": "Australia",
	"MERIDA": "Mexico",
	"MEXICOCITY": "Mexico",
	"MILAN": "Italy",
	"MINSK": "Belarus",
	"MOGADISHU": "Somalia",
	"MONROVIA": "Liberia",
	"MONTERREY": "Mexico",
	"MONTEVIDEO": "Uruguay",
	"MONTREAL": "Canada",
	"MOSCOW": "Russia",
	"MUMBAI": "India",
	"MUNICH": "Germany",
	"MUSCAT": "Oman",
	// N
	"NAHA": "Japan",
	"NAIROBI": "Kenya",
	"NAPLES": "Italy",
	"NASSAU": "Bahamas",
	"NDJAMENA": "Chad",
	"NEWDELHI": "India",
	"NIAMEY": "Niger",
	"NICOSIA": "Cyprus",
	"NOGALES": "Mexico",
	"NOUAKCHOTT": "Mauritania",
	"NUEVOLAREDO": "Mexico",
	// O
	"OSAKA": "Japan",
	"OSLO": "Norway",
	"OTTAWA": "Canada",
	"OUAGADOUGOU": "Burkina Faso",
	// P
	"PANAMA": "Panama",
	"PARAMARIBO": "Suriname",
	"PARIS": "France",
	"PEKING": "China",
	"PERTH": "Australia",
	"PESHAWAR": "Pakistan",
	"PHNOMPENH": "Cambodia",
	"PODGORICA": "Montenegro",
	"PORTAUPRINCE": "Haiti",
	"PORTLOUIS": "Mauritius",
	"PORTMORESBY": "Papua New Guinea",
	"PORTOFSPAIN": "Trinidad and Tobago",
	"PRAGUE": "Czech Republic",
	"PRETORIA": "South Africa",
	"PRISTINA": "Kosovo",
	// Q
	"QUITO": "Ecuador",
	// R
	"RABAT": "Morocco",
	"RANGOON": "Myanmar",
	"RECIFE": "Brazil",
	"REYKJAVIK": "Iceland",
	"RIGA": "Latvia",
	"RIODEJANEIRO": "Brazil",
	"RIYADH": "Saudi Arabia",
	"ROME": "Italy",
	"RPODUBAI": "United Arab Emirates",
	// S
	"SAIGON": "Vietnam",
	"SAPPORO": "Japan",
	"SANAA": "Yemen",
	"SANJOSE": "Costa Rica",
	"SANSALVADOR": "El Salvador",
	"SANTIAGO": "Chile",
	"SANTODOMINGO": "Dominican Republic",
	"SAOPAULO": "Brazil",
	"SARAJEVO": "Bosnia and Herzegovina",
	"SEOUL": "South Korea",
	"SHANGHAI": "China",
	"SHENYANG": "China",
	"SINGAPORE": "Singapore",
	"SKOPJE": "North Macedonia",
	"SOFIA": "Bulgaria",
	"STPETERSBURG": "Russia",
	"STOCKHOLM": "Sweden",
	"STRASBOURG": "France",
	"SURABAYA": "Indonesia",
	"SUVA": "Fiji",
	"SYDNEY": "Australia",
	// T
	"TAIPEI": "Taiwan",
	"TABRIZ": "Iran",
	"TALLINN": "Estonia",
	"TASHKENT": "Uzbekistan",
	"TBILISI": "Georgia",
	"TEGUCIGALPA": "Honduras",
	"TEHRAN": "Iran",
	"TELAVIV": "Israel",
	"THEHAGUE": "Netherlands",
	"THESSALONIKI": "Greece",
	"TIJUANA": "Mexico",
	"TIRANA": "Albania",
	"TOKYO": "Japan",
	"TORONTO": "Canada",
	"TRIPOLI": "Libya",
	"TUNIS": "Tunisia",
	// U
	"ULAANBAATAR": "Mongolia",
	"UNVIEVIENNA": "International Org (UN Vienna)",
	"USBERLIN": "Germany",
	"USDOCROME": "International Org",
	"USEUBRUSSELS": "International Org (EU Brussels)",
	"USMISSION": "International Org (US Mission)",
	"USMISSIONGENEVA": "International Org (US Mission Geneva)",
	"USNATO": "International Org (NATO)",
	"USUNNEWYORK": "International Org (UN New York)",
	// V
	"VALLETTA": "Malta",
	"VANCOUVER": "Canada",
	"VATICAN": "Vatican",
	"VIENTIANE": "Laos",
	"VILNIUS": "Lithuania",
	"VLADIVOSTOK": "Russia",
	// W
	"WARSAW": "Poland",
	"WELLINGTON": "New Zealand",
	"WINDHOEK": "Namibia",
	// Y
	"YAOUNDE": "Cameroon",
	"YEKATERINBURG": "Russia",
	"YEREVAN": "Armenia",
	// Z
	"ZAGREB": "Croatia",
	"ZURICH": "Switzerland",
	// US departments
	"STATE": "United States",
	"SECSTATE": "United States",
	"SECDEF": "United States",
	"RUEHC": "United States",
}

// transition is one sovereignty change. Cables dated strictly before
// Cutoff belong to Name; from the cutoff on, the modern name applies.
type transition struct {
	Cutoff string
	Name   string
}

// historicalTransitions covers sovereignty changes spanning the
// archive's 1966-2010 range, sorted ascending by cutoff date. An
// undated cable gets the modern name as the safe default.
var historicalTransitions = func() map[string][]transition {
	t := map[string][]transition{
		// Yugoslavia broke up piecewise, dates vary by successor state.
		"LJUBLJANA": {{"1991-06-25", "Yugoslavia"}},
		"ZAGREB":    {{"1991-06-25", "Yugoslavia"}},
		"SKOPJE":    {{"1991-09-08", "Yugoslavia"}},
		"SARAJEVO":  {{"1992-03-01", "Yugoslavia"}},
		// FRY kept the Yugoslavia name until Montenegro's exit.
		"BELGRADE":  {{"2006-06-03", "Yugoslavia"}},
		"PODGORICA": {{"2006-06-03", "Yugoslavia"}},
		"PRISTINA":  {{"1992-04-27", "Yugoslavia"}, {"2008-02-17", "Serbia"}},

		"ASMARA":      {{"1993-05-24", "Ethiopia"}},
		"COTONOU":     {{"1975-11-30", "Dahomey"}},
		"KINSHASA":    {{"1997-05-17", "Zaire"}},
		"OUAGADOUGOU": {{"1984-08-04", "Upper Volta"}},
		"RANGOON":     {{"1989-06-18", "Burma"}},
		"SAIGON":      {{"1975-04-30", "South Vietnam"}},
		"SANAA":       {{"1990-05-22", "North Yemen"}},
	}
	for _, code := range []string{
		"ALMATY", "ASHGABAT", "ASTANA", "BAKU", "BISHKEK", "CHISINAU",
		"DUSHANBE", "KYIV", "LENINGRAD", "MINSK", "MOSCOW", "RIGA",
		"STPETERSBURG", "TALLINN", "TASHKENT", "TBILISI", "VILNIUS",
		"VLADIVOSTOK", "YEKATERINBURG", "YEREVAN",
	} {
		t[code] = []transition{{"1991-12-26", "Soviet Union"}}
	}
	for _, code := range []string{
		"BERLIN", "BONN", "DUSSELDORF", "FRANKFURT", "HAMBURG", "MUNICH",
		"USBERLIN",
	} {
		t[code] = []transition{{"1990-10-03", "West Germany"}}
	}
	for _, code := range []string{"BRATISLAVA", "PRAGUE"} {
		t[code] = []transition{{"1993-01-01", "Czechoslovakia"}}
	}
	return t
}()

var cableIdRegex = regexp.MustCompile(`^(\d{2,4})([A-Z]+)(\d+)`)

// ExtractOriginCode pulls the post code out of a YY{ORIGIN}{SEQ} style
// cable id, or returns "" when the id has some other shape.
func ExtractOriginCode(cableId string) string {
	m := cableIdRegex.FindStringSubmatch(cableId)
	if m == nil {
		return ""
	}
	return m[2]
}

var originCodes = func() []string {
	codes := make([]string, 0, len(originCountryMap))
	for code := range originCountryMap {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}()

const fuzzyOriginThreshold = 0.93

// fuzzyOriginCountry rescues post codes that arrived slightly mangled
// by scanning the static map for a near identical code. Short codes
// are excluded, they collide too easily.
func fuzzyOriginCountry(code string) (string, bool) {
	if len(code) < 5 {
		return "", false
	}

	var bestSimilarity float64
	var bestCountry string
	for _, known := range originCodes {
		similarity := matchr.JaroWinkler(code, known, false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			bestCountry = originCountryMap[known]
		}
	}
	if bestSimilarity >= fuzzyOriginThreshold {
		return bestCountry, true
	}
	return "", false
}

func originToCountry(code string, countryMap map[string]string) string {
	if code == "" {
		return "Unknown"
	}
	if country, ok := countryMap[code]; ok {
		return country
	}
	if country, ok := fuzzyOriginCountry(code); ok {
		return country
	}
	return fmt.Sprintf("Unknown (%s)", code)
}

// ResolveCountry names the country a cable came from as of the date it
// was written. A 1980 Moscow cable belongs to the Soviet Union, a 1995
// one to Russia.
func ResolveCountry(code, date string, countryMap map[string]string) string {
	if date != "" {
		for _, tr := range historicalTransitions[code] {
			if date < tr.Cutoff {
				return tr.Name
			}
		}
	}
	return originToCountry(code, countryMap)
}

// parseFromField extracts the country prefix from a "Country City"
// origin field by matching the post code against the end of the field.
// The comparison ignores spaces so HOCHIMINHCITY matches
// "Ho Chi Minh City".
func parseFromField(originField, originCode string) string {
	if originField == "" || originCode == "" {
		return ""
	}
	// Placeholders and non-geographic origins carry no country.
	if strings.HasPrefix(originField, "--") || strings.HasPrefix(originField, "Secretary") {
		return ""
	}

	codeLower := strings.ToLower(originCode)
	fieldNospace := strings.ToLower(strings.ReplaceAll(originField, " ", ""))
	if !strings.HasSuffix(fieldNospace, codeLower) || len(fieldNospace) == len(codeLower) {
		return ""
	}

	// Walk backwards counting non-space characters until the city is
	// consumed; whatever remains is the country.
	charsToMatch := len(codeLower)
	idx := len(originField)
	for idx > 0 && charsToMatch > 0 {
		idx--
		if originField[idx] != ' ' {
			charsToMatch--
		}
	}
	return strings.TrimSpace(originField[:idx])
}

// LearnCountryMappings scans fetched cables for origin metadata and
// derives country names for post codes the static map does not know.
// Returns the static map merged with anything learned.
func LearnCountryMappings(cables []plusd.CableRecord) map[string]string {
	learned := map[string]string{}
	for _, cable := range cables {
		if cable.Origin == "" {
			continue
		}
		code := ExtractOriginCode(cable.CableID)
		if code == "" {
			continue
		}
		if _, ok := originCountryMap[code]; ok {
			continue
		}
		if _, ok := learned[code]; ok {
			continue
		}
		if country := parseFromField(cable.Origin, code); country != "" {
			learned[code] = country
		}
	}

	if len(learned) == 0 {
		return originCountryMap
	}
	merged := make(map[string]string, len(originCountryMap)+len(learned))
	for code, country := range originCountryMap {
		merged[code] = country
	}
	for code, country := range learned {
		merged[code] = country
	}
	return merged
}

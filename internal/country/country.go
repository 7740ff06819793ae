// Package country resolves free-text country names to ISO-3166 alpha-2 codes.
//
// Sanctions feeds spell countries every way imaginable ("Russian Federation",
// "Korea, North", "Iran (Islamic Republic of)", "Côte d'Ivoire"), so lookups
// go through a fold that strips accents and punctuation before hitting the
// table. Two-letter alpha inputs pass through upper-cased without validation.
package country

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Resolve maps a textual country name to its ISO-3166 alpha-2 code.
// Returns "" when the name is empty or unrecognised.
func Resolve(name string) string {
	s := strings.TrimSpace(name)
	if s == "" {
		return ""
	}
	if len(s) == 2 && isAlpha(s) {
		return strings.ToUpper(s)
	}
	return nameToAlpha2[foldName(s)]
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// foldName lower-cases, strips accents, drops apostrophes and periods,
// turns remaining punctuation into spaces, and removes "the" tokens so
// that "Gambia (the)" and "the Gambia" fold to the same key.
func foldName(name string) string {
	// chained transformers carry buffers, so build one per call
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(stripper, name)
	if err != nil {
		s = name
	}
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '\'' || r == '’' || r == 'ʼ' || r == '.':
			// dropped entirely: "cote d'ivoire" -> "cote divoire"
		default:
			b.WriteByte(' ')
		}
	}
	fields := strings.Fields(b.String())
	out := fields[:0]
	for _, f := range fields {
		if f != "the" {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

// nameToAlpha2 maps folded country names to alpha-2 codes. Keys must be in
// folded form (see foldName). Entries cover the ISO-3166 short names plus
// the variants observed across the OFAC, UK, UN, EU, AU, CA and SECO feeds.
var nameToAlpha2 = map[string]string{
	"afghanistan":                     "AF",
	"islamic republic of afghanistan": "AF",
	"aland islands":                   "AX",
	"albania":                         "AL",
	"algeria":                         "DZ",
	"american samoa":                  "AS",
	"andorra":                         "AD",
	"angola":                          "AO",
	"anguilla":                        "AI",
	"antarctica":                      "AQ",
	"antigua and barbuda":             "AG",
	"argentina":                       "AR",
	"armenia":                         "AM",
	"aruba":                           "AW",
	"australia":                       "AU",
	"austria":                         "AT",
	"azerbaijan":                      "AZ",

	"bahamas":                          "BS",
	"bahrain":                          "BH",
	"bangladesh":                       "BD",
	"barbados":                         "BB",
	"belarus":                          "BY",
	"byelorussia":                      "BY",
	"belgium":                          "BE",
	"belize":                           "BZ",
	"benin":                            "BJ",
	"bermuda":                          "BM",
	"bhutan":                           "BT",
	"bolivia":                          "BO",
	"bolivia plurinational state of":   "BO",
	"plurinational state of bolivia":   "BO",
	"bonaire sint eustatius and saba":  "BQ",
	"bosnia and herzegovina":           "BA",
	"bosnia herzegovina":               "BA",
	"bosnia":                           "BA",
	"botswana":                         "BW",
	"bouvet island":                    "BV",
	"brazil":                           "BR",
	"british indian ocean territory":   "IO",
	"british virgin islands":           "VG",
	"virgin islands british":           "VG",
	"brunei":                           "BN",
	"brunei darussalam":                "BN",
	"bulgaria":                         "BG",
	"burkina faso":                     "BF",
	"burma":                            "MM",
	"burundi":                          "BI",

	"cabo verde":               "CV",
	"cape verde":               "CV",
	"cambodia":                 "KH",
	"cameroon":                 "CM",
	"canada":                   "CA",
	"cayman islands":           "KY",
	"central african republic": "CF",
	"chad":                     "TD",
	"chile":                    "CL",
	"china":                    "CN",
	"peoples republic of china": "CN",
	"christmas island":         "CX",
	"cocos keeling islands":    "CC",
	"colombia":                 "CO",
	"comoros":                  "KM",
	"congo":                    "CG",
	"republic of congo":        "CG",
	"congo brazzaville":        "CG",
	"democratic republic of congo": "CD",
	"congo democratic republic of": "CD",
	"congo kinshasa":               "CD",
	"drc":                          "CD",
	"zaire":                        "CD",
	"cook islands":                 "CK",
	"costa rica":                   "CR",
	"cote divoire":                 "CI",
	"ivory coast":                  "CI",
	"croatia":                      "HR",
	"cuba":                         "CU",
	"curacao":                      "CW",
	"cyprus":                       "CY",
	"czechia":                      "CZ",
	"czech republic":               "CZ",

	"denmark":            "DK",
	"djibouti":           "DJ",
	"dominica":           "DM",
	"dominican republic": "DO",

	"ecuador":           "EC",
	"egypt":             "EG",
	"el salvador":       "SV",
	"equatorial guinea": "GQ",
	"eritrea":           "ER",
	"estonia":           "EE",
	"eswatini":          "SZ",
	"swaziland":         "SZ",
	"ethiopia":          "ET",

	"falkland islands":           "FK",
	"falkland islands malvinas":  "FK",
	"faroe islands":              "FO",
	"fiji":                       "FJ",
	"finland":                    "FI",
	"france":                     "FR",
	"french guiana":              "GF",
	"french polynesia":           "PF",
	"french southern territories": "TF",

	"gabon":                       "GA",
	"gambia":                      "GM",
	"georgia":                     "GE",
	"germany":                     "DE",
	"federal republic of germany": "DE",
	"ghana":                       "GH",
	"gibraltar":                   "GI",
	"greece":                      "GR",
	"greenland":                   "GL",
	"grenada":                     "GD",
	"guadeloupe":                  "GP",
	"guam":                        "GU",
	"guatemala":                   "GT",
	"guernsey":                    "GG",
	"guinea":                      "GN",
	"guinea bissau":               "GW",
	"guyana":                      "GY",

	"haiti":                             "HT",
	"heard island and mcdonald islands": "HM",
	"holy see":                          "VA",
	"vatican":                           "VA",
	"vatican city":                      "VA",
	"vatican city state":                "VA",
	"honduras":                          "HN",
	"hong kong":                         "HK",
	"hong kong sar":                     "HK",
	"china hong kong special administrative region": "HK",
	"hungary": "HU",

	"iceland":                  "IS",
	"india":                    "IN",
	"indonesia":                "ID",
	"iran":                     "IR",
	"iran islamic republic of": "IR",
	"islamic republic of iran": "IR",
	"iraq":                     "IQ",
	"republic of iraq":         "IQ",
	"ireland":                  "IE",
	"isle of man":              "IM",
	"israel":                   "IL",
	"italy":                    "IT",

	"jamaica":                     "JM",
	"japan":                       "JP",
	"jersey":                      "JE",
	"jordan":                      "JO",
	"hashemite kingdom of jordan": "JO",

	"kazakhstan": "KZ",
	"kenya":      "KE",
	"kiribati":   "KI",
	"north korea":                           "KP",
	"korea north":                           "KP",
	"democratic peoples republic of korea":  "KP",
	"korea democratic peoples republic of":  "KP",
	"dprk":                                  "KP",
	"south korea":                           "KR",
	"korea south":                           "KR",
	"republic of korea":                     "KR",
	"korea republic of":                     "KR",
	"kosovo":                                "XK",
	"kuwait":                                "KW",
	"kyrgyzstan":                            "KG",
	"kyrgyz republic":                       "KG",

	"lao peoples democratic republic": "LA",
	"laos":                            "LA",
	"latvia":                          "LV",
	"lebanon":                         "LB",
	"lesotho":                         "LS",
	"liberia":                         "LR",
	"libya":                           "LY",
	"libyan arab jamahiriya":          "LY",
	"liechtenstein":                   "LI",
	"lithuania":                       "LT",
	"luxembourg":                      "LU",

	"macao":            "MO",
	"macau":            "MO",
	"madagascar":       "MG",
	"malawi":           "MW",
	"malaysia":         "MY",
	"maldives":         "MV",
	"mali":             "ML",
	"malta":            "MT",
	"marshall islands": "MH",
	"martinique":       "MQ",
	"mauritania":       "MR",
	"mauritius":        "MU",
	"mayotte":          "YT",
	"mexico":           "MX",
	"micronesia":       "FM",
	"micronesia federated states of": "FM",
	"federated states of micronesia": "FM",
	"moldova":             "MD",
	"republic of moldova": "MD",
	"moldova republic of": "MD",
	"monaco":              "MC",
	"mongolia":            "MN",
	"montenegro":          "ME",
	"montserrat":          "MS",
	"morocco":             "MA",
	"mozambique":          "MZ",
	"myanmar":             "MM",

	"namibia":     "NA",
	"nauru":       "NR",
	"nepal":       "NP",
	"netherlands": "NL",
	"netherlands kingdom of": "NL",
	"holland":                "NL",
	"new caledonia":          "NC",
	"new zealand":            "NZ",
	"nicaragua":              "NI",
	"niger":                  "NE",
	"nigeria":                "NG",
	"niue":                   "NU",
	"norfolk island":         "NF",
	"north macedonia":        "MK",
	"macedonia":              "MK",
	"former yugoslav republic of macedonia": "MK",
	"northern mariana islands":              "MP",
	"norway":                                "NO",

	"oman": "OM",

	"pakistan":                     "PK",
	"islamic republic of pakistan": "PK",
	"palau":                        "PW",
	"palestine":                    "PS",
	"palestine state of":           "PS",
	"state of palestine":           "PS",
	"palestinian territories":      "PS",
	"palestinian":                  "PS",
	"west bank":                    "PS",
	"gaza":                         "PS",
	"panama":                       "PA",
	"papua new guinea":             "PG",
	"paraguay":                     "PY",
	"peru":                         "PE",
	"philippines":                  "PH",
	"pitcairn":                     "PN",
	"pitcairn islands":             "PN",
	"poland":                       "PL",
	"portugal":                     "PT",
	"puerto rico":                  "PR",

	"qatar": "QA",

	"reunion":            "RE",
	"romania":            "RO",
	"russia":             "RU",
	"russian federation": "RU",
	"rwanda":             "RW",

	"saint barthelemy": "BL",
	"saint helena ascension and tristan da cunha": "SH",
	"saint helena":              "SH",
	"saint kitts and nevis":     "KN",
	"saint lucia":               "LC",
	"saint martin french part":  "MF",
	"saint martin":              "MF",
	"saint pierre and miquelon": "PM",
	"saint vincent and grenadines": "VC",
	"samoa":                   "WS",
	"san marino":              "SM",
	"sao tome and principe":   "ST",
	"saudi arabia":            "SA",
	"kingdom of saudi arabia": "SA",
	"senegal":                 "SN",
	"serbia":                  "RS",
	"republic of serbia":      "RS",
	"seychelles":              "SC",
	"sierra leone":            "SL",
	"singapore":               "SG",
	"sint maarten dutch part": "SX",
	"sint maarten":            "SX",
	"slovakia":                "SK",
	"slovak republic":         "SK",
	"slovenia":                "SI",
	"solomon islands":         "SB",
	"somalia":                 "SO",
	"south africa":            "ZA",
	"south georgia and south sandwich islands": "GS",
	"south sudan": "SS",
	"spain":       "ES",
	"sri lanka":   "LK",
	"sudan":       "SD",
	"suriname":    "SR",
	"svalbard and jan mayen": "SJ",
	"sweden":               "SE",
	"switzerland":          "CH",
	"syria":                "SY",
	"syrian arab republic": "SY",

	"taiwan":                   "TW",
	"taiwan province of china": "TW",
	"republic of china taiwan": "TW",
	"tajikistan":               "TJ",
	"tanzania":                 "TZ",
	"united republic of tanzania": "TZ",
	"tanzania united republic of": "TZ",
	"thailand":                 "TH",
	"timor leste":              "TL",
	"east timor":               "TL",
	"togo":                     "TG",
	"tokelau":                  "TK",
	"tonga":                    "TO",
	"trinidad and tobago":      "TT",
	"tunisia":                  "TN",
	"turkey":                   "TR",
	"turkiye":                  "TR",
	"turkmenistan":             "TM",
	"turks and caicos islands": "TC",
	"tuvalu":                   "TV",

	"uganda":               "UG",
	"ukraine":              "UA",
	"united arab emirates": "AE",
	"uae":                  "AE",
	"united kingdom":       "GB",
	"uk":                   "GB",
	"great britain":        "GB",
	"united kingdom of great britain and northern ireland": "GB",
	"england":          "GB",
	"scotland":         "GB",
	"wales":            "GB",
	"northern ireland": "GB",
	"united states":    "US",
	"united states of america": "US",
	"usa":                      "US",
	"united states minor outlying islands": "UM",
	"uruguay":                      "UY",
	"us virgin islands":            "VI",
	"virgin islands us":            "VI",
	"united states virgin islands": "VI",
	"uzbekistan":                   "UZ",

	"vanuatu":   "VU",
	"venezuela": "VE",
	"venezuela bolivarian republic of": "VE",
	"bolivarian republic of venezuela": "VE",
	"vietnam":                          "VN",
	"viet nam":                         "VN",
	"socialist republic of vietnam":    "VN",
	"socialist republic of viet nam":   "VN",

	"wallis and futuna": "WF",
	"western sahara":    "EH",

	"yemen":             "YE",
	"republic of yemen": "YE",

	"zambia":   "ZM",
	"zimbabwe": "ZW",
}

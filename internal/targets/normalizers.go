package targets

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Provinces maps province names (pinyin or Chinese, lowercase) to the
// canonical pinyin spelling stored on a city.
var Provinces = map[string]string{
	"anhui":          "Anhui",
	"安徽":             "Anhui",
	"beijing":        "Beijing",
	"北京":             "Beijing",
	"chongqing":      "Chongqing",
	"重庆":             "Chongqing",
	"fujian":         "Fujian",
	"福建":             "Fujian",
	"gansu":          "Gansu",
	"甘肃":             "Gansu",
	"guangdong":      "Guangdong",
	"广东":             "Guangdong",
	"guangxi":        "Guangxi",
	"广西":             "Guangxi",
	"guizhou":        "Guizhou",
	"贵州":             "Guizhou",
	"hainan":         "Hainan",
	"海南":             "Hainan",
	"hebei":          "Hebei",
	"河北":             "Hebei",
	"heilongjiang":   "Heilongjiang",
	"黑龙江":            "Heilongjiang",
	"henan":          "Henan",
	"河南":             "Henan",
	"hubei":          "Hubei",
	"湖北":             "Hubei",
	"hunan":          "Hunan",
	"湖南":             "Hunan",
	"inner mongolia": "Inner Mongolia",
	"内蒙古":            "Inner Mongolia",
	"jiangsu":        "Jiangsu",
	"江苏":             "Jiangsu",
	"jiangxi":        "Jiangxi",
	"江西":             "Jiangxi",
	"jilin":          "Jilin",
	"吉林":             "Jilin",
	"liaoning":       "Liaoning",
	"辽宁":             "Liaoning",
	"ningxia":        "Ningxia",
	"宁夏":             "Ningxia",
	"qinghai":        "Qinghai",
	"青海":             "Qinghai",
	"shaanxi":        "Shaanxi",
	"陕西":             "Shaanxi",
	"shandong":       "Shandong",
	"山东":             "Shandong",
	"shanghai":       "Shanghai",
	"上海":             "Shanghai",
	"shanxi":         "Shanxi",
	"山西":             "Shanxi",
	"sichuan":        "Sichuan",
	"四川":             "Sichuan",
	"tianjin":        "Tianjin",
	"天津":             "Tianjin",
	"tibet":          "Tibet",
	"xizang":         "Tibet",
	"西藏":             "Tibet",
	"xinjiang":       "Xinjiang",
	"新疆":             "Xinjiang",
	"yunnan":         "Yunnan",
	"云南":             "Yunnan",
	"zhejiang":       "Zhejiang",
	"浙江":             "Zhejiang",
	"hong kong":      "Hong Kong",
	"香港":             "Hong Kong",
	"macau":          "Macau",
	"澳门":             "Macau",
}

// provinceSuffixes are administrative suffixes dropped before lookup.
var provinceSuffixes = []string{"省", "市", "自治区", " province"}

// NormalizeProvince converts a province name to its canonical spelling.
// If the name is not recognized, returns the trimmed input.
func NormalizeProvince(s string) string {
	s = strings.TrimSpace(s)
	key := strings.ToLower(s)

	if p, ok := Provinces[key]; ok {
		return p
	}
	for _, suffix := range provinceSuffixes {
		if trimmed := strings.TrimSuffix(key, suffix); trimmed != key {
			if p, ok := Provinces[strings.TrimSpace(trimmed)]; ok {
				return p
			}
		}
	}
	return s
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// IsSlug reports whether s is lowercase kebab-case.
func IsSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Slugify derives a lowercase kebab-case slug from s. Characters outside
// ASCII letters and digits become separators, so a purely Chinese name
// yields an empty slug.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
			continue
		}
		if r != '\'' {
			pendingDash = true
		}
	}
	return b.String()
}

// ParseBool parses yes/no style booleans. An empty cell yields def.
func ParseBool(s string, def bool) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "":
		return def, nil
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q: use yes/no, true/false or 1/0", s)
	}
}

// ParseInt parses a whole number. An empty cell yields def.
func ParseInt(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return n, nil
}

// IsHTTPURL reports whether s is an absolute http or https URL.
func IsHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// CleanCell trims whitespace from a cell value.
func CleanCell(s string) string {
	return strings.TrimSpace(s)
}

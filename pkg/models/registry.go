// Package models holds the static device-family catalog: model bases,
// their capability predicates, the SKU lookup table, and serial-number
// derivation.
package models

// Base is a coarse device-family key that determines wire-compatible
// capabilities.
type Base int

const (
	Unknown Base = iota
	B181
	B157
	B155
	B163
	B171
	B162
	B164
	B168
	B172
	B174
)

func (b Base) String() string {
	switch b {
	case B181:
		return "B181"
	case B157:
		return "B157"
	case B155:
		return "B155"
	case B163:
		return "B163"
	case B171:
		return "B171"
	case B162:
		return "B162"
	case B164:
		return "B164"
	case B168:
		return "B168"
	case B172:
		return "B172"
	case B174:
		return "B174"
	default:
		return "UNKNOWN"
	}
}

// BaseFromCode parses a model-base code string, returning Unknown for
// anything unrecognized.
func BaseFromCode(code string) Base {
	switch code {
	case "B181":
		return B181
	case "B157":
		return B157
	case "B155":
		return B155
	case "B163":
		return B163
	case "B171":
		return B171
	case "B162":
		return B162
	case "B164":
		return B164
	case "B168":
		return B168
	case "B172":
		return B172
	case "B174":
		return B174
	default:
		return Unknown
	}
}

// SupportsCaseLED reports whether base exposes the case LED pixel
// table.
func (b Base) SupportsCaseLED() bool { return b == B181 }

// SupportsPersonalizedANC reports whether base exposes the
// personalized-ANC toggle.
func (b Base) SupportsPersonalizedANC() bool { return b == B155 }

// SupportsEnhancedBass reports whether base exposes the enhanced-bass
// toggle and level.
func (b Base) SupportsEnhancedBass() bool {
	return b == B171 || b == B172 || b == B168 || b == B162
}

// SupportsInEarDetection reports whether base exposes in-ear detection.
// Every base does except B174.
func (b Base) SupportsInEarDetection() bool { return b != B174 }

// SupportsCustomEQ reports whether base exposes the custom 3-band EQ.
// Every base does except B181.
func (b Base) SupportsCustomEQ() bool { return b != B181 }

// SupportsListeningModes reports whether base exposes ANC listening
// modes.
func (b Base) SupportsListeningModes() bool { return b == B168 || b == B172 }

// SupportsANC reports whether base exposes ANC read/write at all.
// Every base does except B157.
func (b Base) SupportsANC() bool { return b != B157 }

// Info is a static catalog entry.
type Info struct {
	ID         string
	Name       string
	Base       Base
	ANCCapable bool
}

// List is the fixed model catalog, preserved bit-for-bit from the
// source material (24 entries).
var List = []Info{
	{ID: "ear_1_white", Name: "Nothing Ear (1)", Base: B181, ANCCapable: true},
	{ID: "ear_1_black", Name: "Nothing Ear (1)", Base: B181, ANCCapable: true},
	{ID: "ear_stick", Name: "Nothing Ear (stick)", Base: B157, ANCCapable: false},
	{ID: "ear_2_white", Name: "Nothing Ear (2)", Base: B155, ANCCapable: true},
	{ID: "ear_2_black", Name: "Nothing Ear (2)", Base: B155, ANCCapable: true},
	{ID: "corsola_orange", Name: "CMF Buds Pro", Base: B163, ANCCapable: true},
	{ID: "corsola_black", Name: "CMF Buds Pro", Base: B163, ANCCapable: true},
	{ID: "corsola_white", Name: "CMF Buds Pro", Base: B163, ANCCapable: true},
	{ID: "entei_black", Name: "Nothing Ear", Base: B171, ANCCapable: true},
	{ID: "entei_white", Name: "Nothing Ear", Base: B171, ANCCapable: true},
	{ID: "cleffa_black", Name: "Nothing Ear (a)", Base: B162, ANCCapable: true},
	{ID: "cleffa_white", Name: "Nothing Ear (a)", Base: B162, ANCCapable: true},
	{ID: "cleffa_yellow", Name: "Nothing Ear (a)", Base: B162, ANCCapable: true},
	{ID: "crobat_orange", Name: "CMF Neckband Pro", Base: B164, ANCCapable: true},
	{ID: "crobat_white", Name: "CMF Neckband Pro", Base: B164, ANCCapable: true},
	{ID: "crobat_black", Name: "CMF Neckband Pro", Base: B164, ANCCapable: true},
	{ID: "donphan_black", Name: "CMF Buds", Base: B168, ANCCapable: true},
	{ID: "donphan_white", Name: "CMF Buds", Base: B168, ANCCapable: true},
	{ID: "donphan_orange", Name: "CMF Buds", Base: B168, ANCCapable: true},
	{ID: "espeon_black", Name: "CMF Buds Pro 2", Base: B172, ANCCapable: true},
	{ID: "espeon_white", Name: "CMF Buds Pro 2", Base: B172, ANCCapable: true},
	{ID: "espeon_orange", Name: "CMF Buds Pro 2", Base: B172, ANCCapable: true},
	{ID: "espeon_blue", Name: "CMF Buds Pro 2", Base: B172, ANCCapable: true},
	{ID: "flaaffy_white", Name: "Nothing Ear (open)", Base: B174, ANCCapable: false},
}

var skuToModelID = []struct {
	sku     string
	modelID string
}{
	{"01", "ear_1_white"},
	{"02", "ear_1_black"},
	{"03", "ear_1_white"},
	{"04", "ear_1_black"},
	{"06", "ear_1_black"},
	{"07", "ear_1_white"},
	{"08", "ear_1_black"},
	{"10", "ear_1_black"},
	{"14", "ear_stick"},
	{"15", "ear_stick"},
	{"16", "ear_stick"},
	{"17", "ear_2_white"},
	{"18", "ear_2_white"},
	{"19", "ear_2_white"},
	{"27", "ear_2_black"},
	{"28", "ear_2_black"},
	{"29", "ear_2_black"},
	{"30", "corsola_black"},
	{"31", "corsola_black"},
	{"32", "corsola_white"},
	{"33", "corsola_white"},
	{"34", "corsola_orange"},
	{"35", "corsola_orange"},
	{"48", "crobat_orange"},
	{"49", "crobat_white"},
	{"50", "crobat_black"},
	{"51", "crobat_black"},
	{"52", "crobat_white"},
	{"53", "crobat_orange"},
	{"54", "donphan_black"},
	{"55", "donphan_black"},
	{"56", "donphan_white"},
	{"57", "donphan_white"},
	{"58", "donphan_orange"},
	{"59", "donphan_orange"},
	{"61", "entei_black"},
	{"62", "entei_white"},
	{"63", "cleffa_black"},
	{"64", "cleffa_white"},
	{"65", "cleffa_yellow"},
	{"66", "cleffa_black"},
	{"67", "cleffa_white"},
	{"68", "cleffa_yellow"},
	{"69", "entei_black"},
	{"70", "entei_white"},
	{"71", "cleffa_black"},
	{"72", "cleffa_white"},
	{"73", "cleffa_yellow"},
	{"74", "entei_black"},
	{"75", "entei_white"},
	{"76", "espeon_black"},
	{"77", "espeon_white"},
	{"78", "espeon_orange"},
	{"79", "espeon_blue"},
	{"80", "espeon_blue"},
	{"81", "espeon_orange"},
	{"82", "espeon_white"},
	{"83", "espeon_black"},
	{"11200005", "flaaffy_white"},
}

var byID = func() map[string]Info {
	m := make(map[string]Info, len(List))
	for _, info := range List {
		m[info.ID] = info
	}
	return m
}()

var bySKU = func() map[string]Info {
	m := make(map[string]Info, len(skuToModelID))
	for _, pair := range skuToModelID {
		if info, ok := byID[pair.modelID]; ok {
			m[pair.sku] = info
		}
	}
	return m
}()

// FromID looks up a model by its catalog id.
func FromID(id string) (Info, bool) {
	info, ok := byID[id]
	return info, ok
}

// FromSKU looks up a model by its two-digit (or "11200005") SKU code.
func FromSKU(sku string) (Info, bool) {
	info, ok := bySKU[sku]
	return info, ok
}

// DeriveSKUFromSerial decodes a device serial number into its SKU code.
func DeriveSKUFromSerial(serial string) (string, bool) {
	if serial == "12345678901234567" {
		return "01", true
	}
	if len(serial) < 6 {
		return "", false
	}
	head := serial[:2]
	if head == "MA" {
		if len(serial) < 8 {
			return "", false
		}
		year := serial[6:8]
		switch year {
		case "22", "23":
			return "14", true
		case "24":
			return "11200005", true
		}
		return "", false
	}
	if head == "SH" || head == "13" {
		return serial[4:6], true
	}
	return "", false
}
